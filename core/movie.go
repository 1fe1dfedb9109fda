package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Movie 是候选物品的特征向量：演员、类型、语言、简介向量、热度与评分统计。
// 构造后不可变；由调用方持有，打分函数只借用。
type Movie struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title,omitempty"`
	Cast        []CastMember `json:"cast"`
	Genres      []Genre      `json:"genres"`
	Language    Language     `json:"language"`
	Description TextVector   `json:"description"`
	Popularity  float64      `json:"popularity"`
	VoteAverage float64      `json:"vote_average"` // 0-10
	VoteCount   int          `json:"vote_count"`
}

// CastMember 是演员标识及其热度。
type CastMember struct {
	ID         uuid.UUID `json:"id"`
	Popularity float64   `json:"popularity"`
}

// CastIDs 返回演员 ID 列表（保持顺序）。
func (m *Movie) CastIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Cast))
	for i, c := range m.Cast {
		ids[i] = c.ID
	}
	return ids
}

// Genre 是封闭枚举的电影类型。
type Genre string

const (
	GenreDrama          Genre = "drama"
	GenreComedy         Genre = "comedy"
	GenreCrime          Genre = "crime"
	GenreAction         Genre = "action"
	GenreThriller       Genre = "thriller"
	GenreRomance        Genre = "romance"
	GenreHorror         Genre = "horror"
	GenreDocumentary    Genre = "documentary"
	GenreAnimation      Genre = "animation"
	GenreScienceFiction Genre = "science_fiction"
)

// Valid 检查是否为已知类型
func (g Genre) Valid() bool {
	switch g {
	case GenreDrama, GenreComedy, GenreCrime, GenreAction, GenreThriller,
		GenreRomance, GenreHorror, GenreDocumentary, GenreAnimation, GenreScienceFiction:
		return true
	default:
		return false
	}
}

// Language 是封闭枚举的原始语言（ISO 639-1）。
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageFrench   Language = "fr"
	LanguageSpanish  Language = "es"
	LanguageGerman   Language = "de"
	LanguageItalian  Language = "it"
	LanguageJapanese Language = "ja"
	LanguageKorean   Language = "ko"
)

// Valid 检查是否为已知语言
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageFrench, LanguageSpanish, LanguageGerman,
		LanguageItalian, LanguageJapanese, LanguageKorean:
		return true
	default:
		return false
	}
}

// Validate 检查 Movie 的枚举字段；不校验向量维度（维度由向量空间决定）。
func (m *Movie) Validate() error {
	if m == nil {
		return NewDomainError(ModuleProfile, ErrorCodeInvalidInput, "movie is nil")
	}
	for _, g := range m.Genres {
		if !g.Valid() {
			return NewDomainError(ModuleProfile, ErrorCodeInvalidInput, fmt.Sprintf("unknown genre %q", g))
		}
	}
	if !m.Language.Valid() {
		return NewDomainError(ModuleProfile, ErrorCodeInvalidInput, fmt.Sprintf("unknown language %q", m.Language))
	}
	return nil
}
