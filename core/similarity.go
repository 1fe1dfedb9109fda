package core

import "math"

// MovieSimilarity 计算两部电影之间的物品-物品相似度，结果在 [0,1]。
//
// 子分数：
//   - 热度：1 - |a-b| / max(a,b)，两者都为 0 时记 1
//   - 评分：1 - |a-b| / 10
//   - 演员/类型：去重后的 Jaccard 系数
//   - 语言：相同记 1
//   - 文本：简介向量余弦，截断到 [0,1]
func MovieSimilarity(a, b *Movie) float64 {
	if a == nil || b == nil {
		return 0
	}

	pop := relativeCloseness(a.Popularity, b.Popularity)
	vote := 1 - math.Abs(clampVote(a.VoteAverage)-clampVote(b.VoteAverage))/10
	cast := jaccard(a.CastIDs(), b.CastIDs())
	genres := jaccard(a.Genres, b.Genres)
	lang := 0.0
	if a.Language == b.Language {
		lang = 1
	}
	text := Clamp01(Cosine(a.Description, b.Description))

	return (pop*PopularityWeight +
		vote*VoteWeight +
		cast*CastWeight +
		genres*GenreWeight +
		lang*LanguageWeight +
		text*TextWeight) / TotalWeight
}

func relativeCloseness(a, b float64) float64 {
	a, b = math.Max(a, 0), math.Max(b, 0)
	hi := math.Max(a, b)
	if hi == 0 {
		return 1
	}
	return 1 - math.Abs(a-b)/hi
}

func clampVote(v float64) float64 {
	return math.Min(math.Max(v, 0), 10)
}

func jaccard[K comparable](a, b []K) float64 {
	setA := make(map[K]struct{}, len(a))
	for _, k := range a {
		setA[k] = struct{}{}
	}
	setB := make(map[K]struct{}, len(b))
	for _, k := range b {
		setB[k] = struct{}{}
	}
	inter := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
