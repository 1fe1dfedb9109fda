package core

import "context"

// Scorer 是画像打分的领域接口，由 profile.Profile 实现。
// 返回的分数与 movies 一一对应；打分的副作用（缓存）由实现负责。
type Scorer interface {
	ScoreBatch(ctx context.Context, movies []*Movie) ([]float64, error)
}

// RecommendContext 承载用户/场景信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string

	// Scorer 是当前用户画像的显式句柄（不使用进程级全局画像）
	Scorer Scorer

	// Store 是请求使用的存储（可选），供按用户读取的过滤器使用
	Store Store

	// Params 请求级参数，例如 top_n 覆盖
	Params map[string]any
}

// Param 读取请求参数，不存在返回 nil。
func (rctx *RecommendContext) Param(key string) any {
	if rctx == nil || rctx.Params == nil {
		return nil
	}
	return rctx.Params[key]
}
