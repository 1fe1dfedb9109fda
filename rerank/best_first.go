package rerank

import (
	"context"
	"slices"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pipeline"
)

// BestFirst 把升序排序结果就地翻转为最佳优先。
type BestFirst struct{}

func (n *BestFirst) Name() string {
	return "rerank.best_first"
}

func (n *BestFirst) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *BestFirst) Process(
	_ context.Context,
	_ *core.RecommendContext,
	movies []*core.Movie,
) ([]*core.Movie, error) {
	slices.Reverse(movies)
	return movies, nil
}
