// Package profile 实现用户偏好画像：按演员/类型/语言累积兴趣权重，
// 维护交互历史的文本向量空间，对候选电影打分并缓存分数，
// 并在偏好漂移超过阈值时使缓存失效、重建索引、把画像落盘。
//
// 画像是显式句柄，由宿主持有生命周期；同一画像的写入与打分需要串行化。
package profile

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/metrics"
	"github.com/rushteam/movieprofile/space"
)

const (
	// DefaultDimension 默认文本向量维度
	DefaultDimension = 512

	// DefaultThreshold 默认漂移阈值：|relative_change| 超过 5% 时失效缓存并重建
	DefaultThreshold = 0.05

	// DefaultWorkers 批量打分默认并发数
	DefaultWorkers = 4

	// DefaultKeyPrefix 画像在存储中的 key 前缀
	DefaultKeyPrefix = "profile:"
)

// Profile 是单个用户的偏好画像。
type Profile struct {
	mu sync.RWMutex

	id        string
	cast      *WeightMap[uuid.UUID]
	genres    *WeightMap[core.Genre]
	languages *WeightMap[core.Language]
	text      *space.Space

	// cache 是分数缓存：失效前同一物品总是返回同一个分数
	cache map[uuid.UUID]float64

	// profileWeight 是创建以来吸收的累计交互权重
	profileWeight float64
	// queuedWeight 是上次重建以来缓冲的交互权重
	queuedWeight float64

	opts options
}

type options struct {
	dimension    int
	spaceOptions []space.Option
	store        core.Store
	keyPrefix    string
	threshold    float64
	workers      int
	logger       zerolog.Logger
}

// Option 配置 Profile
type Option func(*options)

// WithDimension 设置文本向量维度（仅对新建画像生效，加载时以快照为准）
func WithDimension(dim int) Option {
	return func(o *options) { o.dimension = dim }
}

// WithSpaceOptions 设置向量空间选项（索引类型等）
func WithSpaceOptions(opts ...space.Option) Option {
	return func(o *options) { o.spaceOptions = append(o.spaceOptions, opts...) }
}

// WithStore 设置持久化存储；失效时画像会同步写入该存储
func WithStore(store core.Store) Option {
	return func(o *options) { o.store = store }
}

// WithKeyPrefix 设置存储 key 前缀
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
}

// WithThreshold 设置漂移阈值
func WithThreshold(threshold float64) Option {
	return func(o *options) { o.threshold = threshold }
}

// WithWorkers 设置批量打分并发数
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger 设置日志
//
//nolint:gocritic // zerolog.Logger is passed by value by convention
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		dimension: DefaultDimension,
		keyPrefix: DefaultKeyPrefix,
		threshold: DefaultThreshold,
		workers:   DefaultWorkers,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.threshold <= 0 || math.IsNaN(o.threshold) {
		return o, core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("profile: threshold must be greater than 0, got %v", o.threshold))
	}
	if o.workers <= 0 {
		o.workers = 1
	}
	return o, nil
}

// New 创建一个空画像。
func New(id string, opts ...Option) (*Profile, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	text, err := space.New(o.dimension, o.spaceOptions...)
	if err != nil {
		return nil, err
	}
	return newProfile(id, text, o), nil
}

func newProfile(id string, text *space.Space, o options) *Profile {
	return &Profile{
		id:        id,
		cast:      NewWeightMap[uuid.UUID](),
		genres:    NewWeightMap[core.Genre](),
		languages: NewWeightMap[core.Language](),
		text:      text,
		cache:     make(map[uuid.UUID]float64),
		opts:      o,
	}
}

// ID 返回画像 ID
func (p *Profile) ID() string { return p.id }

// InsertInteraction 吸收一次交互：把 weight 分配到电影的各特征维度上，
// 把简介向量追加进向量空间，然后执行缓存失效策略。
//
//   - 演员各得 weight/演员数，类型各得 weight/类型数，语言得到全部 weight
//   - 空的演员/类型列表对该维度不做任何事
//
// 返回 PERSISTENCE 错误时内存中的画像已更新且仍可用，只是本批次未能落盘。
func (p *Profile) InsertInteraction(ctx context.Context, movie *core.Movie, weight float64) error {
	if err := movie.Validate(); err != nil {
		return err
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidInput,
			fmt.Sprintf("profile: interaction weight must be a finite value >= 0, got %v", weight))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if movie.Description != nil && len(movie.Description) != p.text.Dimension() {
		return core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidInput,
			fmt.Sprintf("profile: description dimension %d != space dimension %d",
				len(movie.Description), p.text.Dimension()))
	}

	distribute(p.cast, movie.CastIDs(), weight)
	distribute(p.genres, movie.Genres, weight)
	distribute(p.languages, []core.Language{movie.Language}, weight)
	if movie.Description != nil {
		if _, err := p.text.Insert(movie.Description); err != nil {
			return err
		}
	}
	metrics.Interactions.Inc()

	return p.invalidateLocked(ctx, weight)
}

// relativeChange 计算本次交互后的偏好漂移比例：
// 上次重建以来（含本次）缓冲的权重占画像累计权重的比例；首次交互恒为 1。
func (p *Profile) relativeChange(weight float64) float64 {
	if p.profileWeight == 0 {
		return 1
	}
	return (p.queuedWeight + weight) / p.profileWeight
}

// invalidateLocked 是缓存失效策略，每次交互后都会执行。
// 漂移超过阈值：清零缓冲、清空缓存、重建索引、同步落盘；否则只累积缓冲权重。
func (p *Profile) invalidateLocked(ctx context.Context, weight float64) error {
	change := p.relativeChange(weight)
	p.profileWeight += weight

	if math.Abs(change) <= p.opts.threshold {
		p.queuedWeight += weight
		return nil
	}

	p.queuedWeight = 0
	clear(p.cache)
	metrics.ScoreCacheInvalidations.Inc()

	start := time.Now()
	if err := p.text.Build(); err != nil {
		return err
	}
	metrics.RecordRebuild(p.text.IndexName(), time.Since(start))

	p.opts.logger.Debug().
		Str("profile", p.id).
		Float64("relative_change", change).
		Float64("profile_weight", p.profileWeight).
		Int("embeddings", p.text.Len()).
		Msg("profile invalidated, index rebuilt")

	return p.flushLocked(ctx)
}

// flushLocked 把快照同步写入存储；未配置存储时不做任何事。
func (p *Profile) flushLocked(ctx context.Context) error {
	store := p.opts.store
	if store == nil {
		return nil
	}
	data, err := p.marshalLocked()
	if err != nil {
		metrics.RecordFlush(store.Name(), err)
		return core.WrapDomainError(core.ModuleProfile, core.ErrorCodePersistence, "profile: encode snapshot", err)
	}
	err = store.Set(ctx, p.opts.keyPrefix+p.id, data)
	metrics.RecordFlush(store.Name(), err)
	if err != nil {
		p.opts.logger.Warn().
			Err(err).
			Str("profile", p.id).
			Str("store", store.Name()).
			Msg("profile flush failed, in-memory state kept")
		return core.WrapDomainError(core.ModuleProfile, core.ErrorCodePersistence, "profile: save snapshot", err)
	}
	return nil
}

// Save 立即把画像写入存储（不改变缓冲状态）。
func (p *Profile) Save(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.opts.store == nil {
		return core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidConfig, "profile: no store configured")
	}
	return p.flushLocked(ctx)
}

// Similarity 返回电影与画像的相似度，在 [0,1]。
// 命中缓存则直接返回；否则计算并写入缓存，直到下次失效前保持不变。
func (p *Profile) Similarity(ctx context.Context, movie *core.Movie) (float64, error) {
	scores, err := p.ScoreBatch(ctx, []*core.Movie{movie})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// ScoreBatch 为一批电影打分（实现 core.Scorer）。
// 未缓存的电影按 ID 去重后并发计算，完成后统一写入缓存；重复 ID 第二次起即为缓存命中。
func (p *Profile) ScoreBatch(ctx context.Context, movies []*core.Movie) ([]float64, error) {
	for _, m := range movies {
		if m == nil {
			return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidInput, "profile: movie is nil")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var pending []*core.Movie
	queued := make(map[uuid.UUID]struct{})
	for _, m := range movies {
		if _, ok := p.cache[m.ID]; ok {
			metrics.RecordCacheLookup(true)
			continue
		}
		if _, ok := queued[m.ID]; ok {
			metrics.RecordCacheLookup(true)
			continue
		}
		metrics.RecordCacheLookup(false)
		queued[m.ID] = struct{}{}
		pending = append(pending, m)
	}

	if len(pending) > 0 {
		// 懒构建必须在并发打分前完成，之后向量空间只读
		if !p.text.Built() && p.text.Len() > 0 {
			start := time.Now()
			if err := p.text.EnsureBuilt(); err != nil {
				return nil, err
			}
			metrics.RecordRebuild(p.text.IndexName(), time.Since(start))
		}

		computed := make([]float64, len(pending))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.workers)
		for i, m := range pending {
			i, m := i, m
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				s, err := p.score(m)
				if err != nil {
					return err
				}
				computed[i] = s
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for i, m := range pending {
			p.cache[m.ID] = computed[i]
		}
	}

	out := make([]float64, len(movies))
	for i, m := range movies {
		s, ok := p.cache[m.ID]
		if !ok {
			panic(core.InternalError(core.ModuleProfile,
				fmt.Sprintf("profile: score for %s missing from cache after fill", m.ID)))
		}
		out[i] = s
	}
	return out, nil
}

// score 计算四项子分数的加权平均：
//
//	(cast·12 + genre·9 + language·4 + text·13) / 38
//
// 只读，调用前向量索引必须已构建。
func (p *Profile) score(m *core.Movie) (float64, error) {
	castScore := p.cast.Overlap(m.CastIDs())
	genreScore := p.genres.Overlap(m.Genres)
	langScore := p.languages.Share(m.Language)

	var textScore float64
	if m.Description != nil && p.text.Len() > 0 {
		ev, err := p.text.Evaluate(m.Description)
		if err != nil {
			return 0, err
		}
		textScore = core.Clamp01(ev)
	}

	return (castScore*core.CastWeight +
		genreScore*core.GenreWeight +
		langScore*core.LanguageWeight +
		textScore*core.TextWeight) / core.ProfileWeight, nil
}

// ProfileWeight 返回创建以来的累计权重
func (p *Profile) ProfileWeight() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profileWeight
}

// QueuedWeight 返回上次重建以来缓冲的权重
func (p *Profile) QueuedWeight() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.queuedWeight
}

// CachedScores 返回缓存中的分数条数
func (p *Profile) CachedScores() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}

// CachedScore 返回缓存中的分数
func (p *Profile) CachedScore(id uuid.UUID) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.cache[id]
	return s, ok
}

// CastWeight 返回演员的累积权重
func (p *Profile) CastWeight(id uuid.UUID) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cast.Get(id)
}

// GenreWeight 返回类型的累积权重
func (p *Profile) GenreWeight(g core.Genre) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.genres.Get(g)
}

// LanguageWeight 返回语言的累积权重
func (p *Profile) LanguageWeight(l core.Language) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.languages.Get(l)
}

// EmbeddingCount 返回向量空间中已存储的向量数
func (p *Profile) EmbeddingCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text.Len()
}

// IndexedCount 返回最近一次索引重建覆盖的向量数
func (p *Profile) IndexedCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text.Indexed()
}

var _ core.Scorer = (*Profile)(nil)
