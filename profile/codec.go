package profile

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/space"
)

// snapshotVersion 是快照格式版本
const snapshotVersion = 1

// snapshot 是画像的持久化格式。分数缓存是派生状态，不写入快照。
type snapshot struct {
	Version       int                       `json:"version"`
	ID            string                    `json:"id"`
	Cast          *WeightMap[uuid.UUID]     `json:"cast"`
	Genres        *WeightMap[core.Genre]    `json:"genres"`
	Languages     *WeightMap[core.Language] `json:"languages"`
	Text          *space.Space              `json:"text"`
	ProfileWeight float64                   `json:"profile_weight"`
	QueuedWeight  float64                   `json:"queued_weight"`
}

func (p *Profile) marshalLocked() ([]byte, error) {
	return json.Marshal(snapshot{
		Version:       snapshotVersion,
		ID:            p.id,
		Cast:          p.cast,
		Genres:        p.genres,
		Languages:     p.languages,
		Text:          p.text,
		ProfileWeight: p.profileWeight,
		QueuedWeight:  p.queuedWeight,
	})
}

// MarshalJSON 序列化画像快照
func (p *Profile) MarshalJSON() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.marshalLocked()
}

// Decode 从快照恢复画像。恢复后分数缓存为空，向量索引在首次查询时懒构建。
// 向量维度以快照为准，WithDimension 在此被忽略。
func Decode(data []byte, opts ...Option) (*Profile, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	// 先用占位维度创建空间以携带索引选项，UnmarshalJSON 会覆盖维度与向量
	text, err := space.New(1, o.spaceOptions...)
	if err != nil {
		return nil, err
	}
	snap := snapshot{
		Cast:      NewWeightMap[uuid.UUID](),
		Genres:    NewWeightMap[core.Genre](),
		Languages: NewWeightMap[core.Language](),
		Text:      text,
	}
	if err := checkSnapshotFields(data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, core.WrapDomainError(core.ModuleProfile, core.ErrorCodePersistence, "profile: decode snapshot", err)
	}
	if snap.Cast == nil || snap.Genres == nil || snap.Languages == nil || snap.Text == nil {
		return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodePersistence, "profile: snapshot has null sections")
	}
	if snap.Version != snapshotVersion {
		return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodePersistence,
			fmt.Sprintf("profile: unsupported snapshot version %d", snap.Version))
	}
	if snap.ProfileWeight < 0 || snap.QueuedWeight < 0 {
		return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodePersistence, "profile: negative weight in snapshot")
	}

	p := newProfile(snap.ID, snap.Text, o)
	p.cast = snap.Cast
	p.genres = snap.Genres
	p.languages = snap.Languages
	p.profileWeight = snap.ProfileWeight
	p.queuedWeight = snap.QueuedWeight
	return p, nil
}

// snapshotSections 是快照中必须存在且非 null 的字段
var snapshotSections = []string{"cast", "genres", "languages", "text"}

// checkSnapshotFields 拒绝缺少或为 null 的画像字段，否则解码会留下 nil 权重表或占位维度
func checkSnapshotFields(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return core.WrapDomainError(core.ModuleProfile, core.ErrorCodePersistence, "profile: decode snapshot", err)
	}
	for _, name := range snapshotSections {
		raw, ok := fields[name]
		if !ok || len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return core.NewDomainError(core.ModuleProfile, core.ErrorCodePersistence,
				fmt.Sprintf("profile: snapshot missing %q", name))
		}
	}
	return nil
}

// Load 从存储加载画像；不存在时返回的错误满足 core.IsNotFound。
// 加载出的画像会继续使用同一个存储落盘。
func Load(ctx context.Context, store core.Store, id string, opts ...Option) (*Profile, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	data, err := store.Get(ctx, o.keyPrefix+id)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, err
		}
		return nil, core.WrapDomainError(core.ModuleProfile, core.ErrorCodePersistence, "profile: load snapshot", err)
	}
	p, err := Decode(data, append(opts, WithStore(store))...)
	if err != nil {
		return nil, err
	}
	if p.id != id {
		return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodePersistence,
			fmt.Sprintf("profile: snapshot id %q does not match key %q", p.id, id))
	}
	return p, nil
}

// LoadOrNew 加载画像，不存在时创建空画像。
func LoadOrNew(ctx context.Context, store core.Store, id string, opts ...Option) (*Profile, error) {
	p, err := Load(ctx, store, id, opts...)
	if err == nil {
		return p, nil
	}
	if !core.IsNotFound(err) {
		return nil, err
	}
	return New(id, append(opts, WithStore(store))...)
}
