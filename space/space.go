// Package space 实现文本向量空间：只追加的向量序列 + 可重建的余弦近邻索引。
package space

import (
	"fmt"
	"math"
	"sort"

	"github.com/goccy/go-json"

	"github.com/rushteam/movieprofile/core"
)

const (
	// neighborhoodRatio 决定 Evaluate 使用的近邻数：k = max(1, round(ratio * n))
	neighborhoodRatio = 0.2

	// evaluateBeta 是 F-beta 融合的 β
	evaluateBeta = 1.2
)

// Space 是一个用户交互历史的文本向量空间。
//
// 不变式：
//   - 插入顺序即稳定句柄
//   - Build 之后每个已插入向量都有索引项；Build 之前插入的向量合法但不可检索
//   - 索引从不作为向量的事实来源
//
// Space 不是并发安全的，由持有者（Profile）串行化访问。
type Space struct {
	dim      int
	vectors  []core.TextVector
	index    Index
	newIndex func() Index
	built    bool
	indexed  int
}

// Option 配置 Space
type Option func(*Space)

// WithBruteForce 使用精确暴力扫描索引
func WithBruteForce() Option {
	return func(s *Space) {
		s.newIndex = func() Index { return NewBruteForce() }
	}
}

// WithHNSW 使用图索引，适合向量很多的空间
func WithHNSW(params HNSWParams) Option {
	return func(s *Space) {
		s.newIndex = func() Index { return NewHNSW(params) }
	}
}

// WithIndex 使用自定义索引构造函数
func WithIndex(fn func() Index) Option {
	return func(s *Space) {
		if fn != nil {
			s.newIndex = fn
		}
	}
}

// New 创建指定维度的空向量空间，默认使用精确的暴力扫描索引。维度 <= 0 属于配置错误，直接拒绝。
func New(dimension int, opts ...Option) (*Space, error) {
	if dimension <= 0 {
		return nil, core.NewDomainError(core.ModuleSpace, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("space: dimension must be greater than 0, got %d", dimension))
	}
	s := &Space{
		dim:      dimension,
		newIndex: func() Index { return NewBruteForce() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.index = s.newIndex()
	return s, nil
}

// Dimension 返回向量维度
func (s *Space) Dimension() int { return s.dim }

// Len 返回已存储的向量数
func (s *Space) Len() int { return len(s.vectors) }

// Indexed 返回最近一次 Build 覆盖的向量数
func (s *Space) Indexed() int { return s.indexed }

// Built 表示索引是否至少构建过一次
func (s *Space) Built() bool { return s.built }

// IndexName 返回索引类型
func (s *Space) IndexName() string { return s.index.Name() }

// Vector 返回句柄对应向量的副本
func (s *Space) Vector(handle int) (core.TextVector, bool) {
	if handle < 0 || handle >= len(s.vectors) {
		return nil, false
	}
	return s.vectors[handle].Clone(), true
}

func (s *Space) checkDim(v []float32) error {
	if len(v) != s.dim {
		return core.NewDomainError(core.ModuleSpace, core.ErrorCodeInvalidInput,
			fmt.Sprintf("space: vector dimension %d != space dimension %d", len(v), s.dim))
	}
	return nil
}

// Insert 追加向量副本并返回句柄。在下一次 Build 之前不影响检索结果。
func (s *Space) Insert(v core.TextVector) (int, error) {
	if err := s.checkDim(v); err != nil {
		return 0, err
	}
	s.vectors = append(s.vectors, v.Clone())
	return len(s.vectors) - 1, nil
}

// InsertAndBuild 追加向量并立即重建索引。批量插入时应使用 Insert + Build。
func (s *Space) InsertAndBuild(v core.TextVector) (int, error) {
	handle, err := s.Insert(v)
	if err != nil {
		return 0, err
	}
	if err := s.Build(); err != nil {
		return 0, err
	}
	return handle, nil
}

// Build 用全部已存储向量重建索引。内容不变时重建是幂等的。
func (s *Space) Build() error {
	vecs := make([][]float32, len(s.vectors))
	for i, v := range s.vectors {
		vecs[i] = v
	}
	idx := s.newIndex()
	if err := idx.Build(vecs); err != nil {
		return core.WrapDomainError(core.ModuleSpace, core.ErrorCodeInternalError, "space: build index", err)
	}
	s.index = idx
	s.built = true
	s.indexed = len(vecs)
	return nil
}

// EnsureBuilt 在索引从未构建过时构建一次（懒构建）。
func (s *Space) EnsureBuilt() error {
	if s.built {
		return nil
	}
	return s.Build()
}

// Search 返回最多 k 个余弦相似度最高的已索引向量，按相似度降序。
// 从未构建过索引时会先隐式构建，因此首个查询会有一次重建延迟。
func (s *Space) Search(query core.TextVector, k int) ([]Neighbor, error) {
	if err := s.checkDim(query); err != nil {
		return nil, err
	}
	if err := s.EnsureBuilt(); err != nil {
		return nil, err
	}
	return s.search(query, k)
}

// search 要求索引已构建，只读，可被多个 goroutine 同时调用。
func (s *Space) search(query core.TextVector, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	handles, err := s.index.Search(query, k)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleSpace, core.ErrorCodeInvalidInput, "space: search", err)
	}

	out := make([]Neighbor, 0, len(handles))
	for _, h := range handles {
		if h < 0 || h >= s.indexed {
			panic(core.InternalError(core.ModuleSpace,
				fmt.Sprintf("space: index returned handle %d outside indexed range [0,%d)", h, s.indexed)))
		}
		out = append(out, Neighbor{Handle: h, Similarity: core.Cosine(query, s.vectors[h])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Handle < out[j].Handle
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Evaluate 计算 query 与整个空间的相关度（而不仅是最近邻）。
// 索引已构建时 Evaluate 只读，可并发调用。
//
// k = max(1, round(0.2 * n))，取 k 个近邻的相似度 s_1..s_k（负值按 0 计）：
//
//	metric1 = Σ s_i / log2(i+1)   排名折损累积，奖励靠前的强匹配
//	metric2 = Σ s_i / k           平均相似度，奖励整体相似
//	result  = (1+β²)·m1·m2 / (β²·m2 + m1),  β = 1.2
//
// 空空间返回 0。
func (s *Space) Evaluate(query core.TextVector) (float64, error) {
	if err := s.checkDim(query); err != nil {
		return 0, err
	}
	if len(s.vectors) == 0 {
		return 0, nil
	}
	if err := s.EnsureBuilt(); err != nil {
		return 0, err
	}
	return s.evaluate(query)
}

func (s *Space) evaluate(query core.TextVector) (float64, error) {
	n := len(s.vectors)
	if n == 0 {
		return 0, nil
	}
	k := int(math.Round(neighborhoodRatio * float64(n)))
	if k < 1 {
		k = 1
	}

	neighbors, err := s.search(query, k)
	if err != nil {
		return 0, err
	}

	var metric1, sum float64
	for i, nb := range neighbors {
		sim := math.Max(nb.Similarity, 0)
		metric1 += sim / math.Log2(float64(i+2))
		sum += sim
	}
	metric2 := sum / float64(k)

	beta2 := evaluateBeta * evaluateBeta
	den := beta2*metric2 + metric1
	if den == 0 {
		return 0, nil
	}
	return (1 + beta2) * metric1 * metric2 / den, nil
}

type spaceJSON struct {
	Dimension int               `json:"dimension"`
	Index     string            `json:"index"`
	Vectors   []core.TextVector `json:"vectors"`
}

// MarshalJSON 只序列化维度与向量；索引是派生状态，不持久化。
func (s *Space) MarshalJSON() ([]byte, error) {
	vecs := s.vectors
	if vecs == nil {
		vecs = []core.TextVector{}
	}
	return json.Marshal(spaceJSON{Dimension: s.dim, Index: s.index.Name(), Vectors: vecs})
}

// UnmarshalJSON 恢复向量；恢复后索引处于未构建状态，首次查询时懒构建。
// 索引类型沿用接收者已配置的构造函数（未配置时为暴力扫描）。
func (s *Space) UnmarshalJSON(data []byte) error {
	var raw spaceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("space: decode: %w", err)
	}
	if raw.Dimension <= 0 {
		return core.NewDomainError(core.ModuleSpace, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("space: dimension must be greater than 0, got %d", raw.Dimension))
	}
	for i, v := range raw.Vectors {
		if len(v) != raw.Dimension {
			return core.NewDomainError(core.ModuleSpace, core.ErrorCodeInvalidInput,
				fmt.Sprintf("space: stored vector %d has dimension %d, want %d", i, len(v), raw.Dimension))
		}
	}
	if s.newIndex == nil {
		s.newIndex = func() Index { return NewBruteForce() }
	}
	s.dim = raw.Dimension
	s.vectors = raw.Vectors
	s.index = s.newIndex()
	s.built = false
	s.indexed = 0
	return nil
}
