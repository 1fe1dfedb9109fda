package rank

import (
	"context"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pipeline"
)

// ProfileNode 是使用请求画像（rctx.Scorer）排序的 Node，输出升序。
// rctx 未携带画像时原样返回候选。
type ProfileNode struct{}

func (n *ProfileNode) Name() string        { return "rank.profile" }
func (n *ProfileNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *ProfileNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	movies []*core.Movie,
) ([]*core.Movie, error) {
	if rctx == nil || rctx.Scorer == nil || len(movies) == 0 {
		return movies, nil
	}
	return Rank(ctx, rctx.Scorer, movies)
}

// AnchorNode 按与 Anchor 的相似度升序排序（"更多类似"场景）。
type AnchorNode struct {
	Anchor *core.Movie
}

func (n *AnchorNode) Name() string        { return "rank.anchor" }
func (n *AnchorNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *AnchorNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	movies []*core.Movie,
) ([]*core.Movie, error) {
	if n.Anchor == nil || len(movies) == 0 {
		return movies, nil
	}
	return ByAnchor(n.Anchor, movies)
}
