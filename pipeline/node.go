package pipeline

import (
	"context"

	"github.com/rushteam/movieprofile/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindFilter Kind = "filter" // 过滤阶段：剔除不符合约束的候选
	KindRank   Kind = "rank"   // 排序阶段：按画像分数排序候选
	KindReRank Kind = "rerank" // 重排阶段：翻转顺序、截断等
)

// stage 返回 Kind 在 Pipeline 中的先后次序；未知 Kind 返回 -1。
func (k Kind) stage() int {
	switch k {
	case KindFilter:
		return 0
	case KindRank:
		return 1
	case KindReRank:
		return 2
	default:
		return -1
	}
}

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 movies -> 输出 movies”的形态，排序、翻转、截断都在同一个切片上完成。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		movies []*core.Movie,
	) ([]*core.Movie, error)
}
