package core

// 各特征的相似度权重。子分数均落在 [0,1]，加权和除以对应总和后仍在 [0,1]。
const (
	PopularityWeight = 3.0
	VoteWeight       = 3.0
	CastWeight       = 12.0
	GenreWeight      = 9.0
	LanguageWeight   = 4.0
	TextWeight       = 13.0
)

const (
	// TotalWeight 是六项特征权重之和（物品-物品相似度使用）。
	TotalWeight = PopularityWeight + VoteWeight + CastWeight + GenreWeight + LanguageWeight + TextWeight

	// ProfileWeight 是画像打分使用的四项权重之和：演员、类型、语言、文本。
	ProfileWeight = CastWeight + GenreWeight + LanguageWeight + TextWeight
)

// Clamp01 把 x 截断到 [0,1]；NaN 视为 0。
func Clamp01(x float64) float64 {
	switch {
	case x != x, x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
