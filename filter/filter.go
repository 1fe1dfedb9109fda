// Package filter 在排序前剔除不应出现的候选电影。
package filter

import (
	"context"

	"github.com/rushteam/movieprofile/core"
)

// Filter 是过滤器的抽象接口，用于判断一部电影是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 movie 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, movie *core.Movie) (bool, error)
}
