// Package rank 按画像分数对候选电影排序。
//
// 排序结果是升序：匹配度最低的电影在前，最高的在最后。
// 需要最佳优先时使用 rerank.BestFirst 翻转，或从切片尾部读取。
package rank

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/metrics"
)

// Rank 用 scorer 为每部电影打分，按分数升序就地稳定排序并返回同一切片。
// 分数相同的电影保持输入顺序；重复的电影各自保留位置。
// 打分的副作用（例如画像的分数缓存）由 scorer 负责。
func Rank(ctx context.Context, scorer core.Scorer, movies []*core.Movie) ([]*core.Movie, error) {
	if scorer == nil {
		return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "rank: scorer is nil")
	}
	if len(movies) == 0 {
		return movies, nil
	}
	start := time.Now()

	scores, err := scorer.ScoreBatch(ctx, movies)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(movies) {
		return nil, core.InternalError(core.ModuleRank,
			fmt.Sprintf("rank: scorer returned %d scores for %d movies", len(scores), len(movies)))
	}
	sortAscending(movies, scores)

	metrics.RecordRank(len(movies), time.Since(start))
	return movies, nil
}

// ByAnchor 按与 anchor 的物品-物品相似度升序稳定排序（"更多类似"）。
func ByAnchor(anchor *core.Movie, movies []*core.Movie) ([]*core.Movie, error) {
	if anchor == nil {
		return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "rank: anchor is nil")
	}
	scores := make([]float64, len(movies))
	for i, m := range movies {
		if m == nil {
			return nil, core.NewDomainError(core.ModuleRank, core.ErrorCodeInvalidInput,
				fmt.Sprintf("rank: movie at %d is nil", i))
		}
		scores[i] = core.MovieSimilarity(anchor, m)
	}
	sortAscending(movies, scores)
	return movies, nil
}

// sortAscending 让 movies 与 scores 一起按分数升序稳定排序
func sortAscending(movies []*core.Movie, scores []float64) {
	sort.Stable(byScore{movies: movies, scores: scores})
}

type byScore struct {
	movies []*core.Movie
	scores []float64
}

func (b byScore) Len() int           { return len(b.movies) }
func (b byScore) Less(i, j int) bool { return b.scores[i] < b.scores[j] }
func (b byScore) Swap(i, j int) {
	b.movies[i], b.movies[j] = b.movies[j], b.movies[i]
	b.scores[i], b.scores[j] = b.scores[j], b.scores[i]
}
