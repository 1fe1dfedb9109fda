package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该电影就会被过滤掉。
// 过滤器出错时记录日志并视为不过滤，不中断排序。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	movies []*core.Movie,
) ([]*core.Movie, error) {
	if len(n.Filters) == 0 || len(movies) == 0 {
		return movies, nil
	}

	out := make([]*core.Movie, 0, len(movies))
	for _, m := range movies {
		if m == nil {
			continue
		}

		drop := false
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, m)
			if err != nil {
				n.Logger.Warn().Err(err).Str("filter", f.Name()).Msg("filter failed, keeping candidate")
				continue
			}
			if ok {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, m)
		}
	}

	return out, nil
}
