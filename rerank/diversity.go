package rerank

import (
	"context"

	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pipeline"
)

// Diversity 是按主类型限额的多样性重排：每个主类型（Genres[0]）最多保留 MaxPerGenre 部，
// 按输入顺序保留先出现的。没有类型的电影不受限。
// 应放在 BestFirst 之后，否则保留的是匹配度最低的那些。
type Diversity struct {
	MaxPerGenre int // 默认 1
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	movies []*core.Movie,
) ([]*core.Movie, error) {
	if len(movies) == 0 {
		return movies, nil
	}

	limit := n.MaxPerGenre
	if limit <= 0 {
		limit = 1
	}

	seen := make(map[core.Genre]int, 16)
	out := make([]*core.Movie, 0, len(movies))

	for _, m := range movies {
		if m == nil {
			continue
		}
		if len(m.Genres) == 0 {
			out = append(out, m)
			continue
		}
		g := m.Genres[0]
		if seen[g] >= limit {
			continue
		}
		seen[g]++
		out = append(out, m)
	}

	return out, nil
}
