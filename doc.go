// Package movieprofile 是一个电影偏好画像打分与排序引擎。
//
// 设计要点：
// - 画像显式持有：每个用户一个 profile.Profile，由宿主决定生命周期与持久化位置
// - 分数缓存 + 漂移失效：偏好漂移超过阈值才清空缓存、重建向量索引、落盘
// - Pipeline 可组合：filter → rank.profile（升序）→ rerank.best_first → rerank.topn
package movieprofile

import (
	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pipeline"
	"github.com/rushteam/movieprofile/profile"
)

// 轻量 facade：便于用户直接 import "movieprofile" 使用核心抽象。
type (
	Movie    = core.Movie
	Profile  = profile.Profile
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
	Kind     = pipeline.Kind
)

const (
	KindFilter = pipeline.KindFilter
	KindRank   = pipeline.KindRank
	KindReRank = pipeline.KindReRank
)

// NewProfile 创建空画像，等价于 profile.New。
func NewProfile(id string, opts ...profile.Option) (*Profile, error) {
	return profile.New(id, opts...)
}
