package builders

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/rushteam/movieprofile/config"
	"github.com/rushteam/movieprofile/core"
	"github.com/rushteam/movieprofile/pipeline"
	"github.com/rushteam/movieprofile/profile"
	"github.com/rushteam/movieprofile/space"
	"github.com/rushteam/movieprofile/store"
)

const rankingPipeline = `
pipeline:
  name: recommend
  nodes:
    - type: filter
      config:
        filters:
          - type: language
            allowed: [en, fr]
    - type: rank.profile
    - type: rerank.best_first
    - type: rerank.diversity
      config:
        max_per_genre: 2
    - type: rerank.topn
      config:
        n: 2
`

func TestSupportedTypes(t *testing.T) {
	want := map[string]bool{
		"filter":            true,
		"rank.profile":      true,
		"rerank.best_first": true,
		"rerank.diversity":  true,
		"rerank.topn":       true,
	}
	for _, typ := range config.SupportedTypes() {
		delete(want, typ)
	}
	if len(want) != 0 {
		t.Errorf("missing registered types: %v", want)
	}

	bad := &pipeline.Config{}
	bad.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "rank.lr"}}
	if err := config.ValidatePipelineConfig(bad); err == nil {
		t.Error("expected unsupported node type error")
	}
}

func TestPipeline_FromYAML(t *testing.T) {
	ctx := context.Background()
	cfg, err := pipeline.ParseYAML([]byte(rankingPipeline))
	if err != nil {
		t.Fatal(err)
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		t.Fatal(err)
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		t.Fatal(err)
	}

	prof, err := profile.New("u1", profile.WithDimension(2), profile.WithSpaceOptions(space.WithBruteForce()))
	if err != nil {
		t.Fatal(err)
	}
	liked := &core.Movie{
		ID:          uuid.New(),
		Genres:      []core.Genre{core.GenreScienceFiction},
		Language:    core.LanguageEnglish,
		Description: core.TextVector{1, 0},
	}
	if err := prof.InsertInteraction(ctx, liked, 3); err != nil {
		t.Fatal(err)
	}

	mk := func(title string, g core.Genre, lang core.Language, desc core.TextVector) *core.Movie {
		return &core.Movie{ID: uuid.New(), Title: title, Genres: []core.Genre{g}, Language: lang, Description: desc}
	}
	candidates := []*core.Movie{
		mk("unrelated", core.GenreRomance, core.LanguageFrench, core.TextVector{0, 1}),
		mk("close", core.GenreScienceFiction, core.LanguageEnglish, core.TextVector{1, 0.1}),
		mk("half", core.GenreScienceFiction, core.LanguageFrench, core.TextVector{1, 1}),
		mk("filtered", core.GenreScienceFiction, core.LanguageEnglish, core.TextVector{1, 0}),
	}
	candidates[3].Language = core.LanguageGerman

	rctx := &core.RecommendContext{UserID: "u1", Scorer: prof}
	out, err := p.Run(ctx, rctx, candidates)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Title != "close" || out[1].Title != "half" {
		got := make([]string, len(out))
		for i, m := range out {
			got[i] = m.Title
		}
		t.Errorf("pipeline output = %v, want [close half]", got)
	}
}

func TestBuildFilterNode_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]interface{}
	}{
		{"missing filters", map[string]interface{}{}},
		{"unknown type", map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "exposed"}}}},
		{"bad uuid", map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "blacklist", "ids": []interface{}{"nope"}}}}},
		{"bad language", map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "language", "allowed": []interface{}{"xx"}}}}},
		{"empty blacklist", map[string]interface{}{"filters": []interface{}{map[string]interface{}{"type": "blacklist"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BuildFilterNode(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidatePipelineConfig_Order(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		ok    bool
	}{
		{"ranked best first", []string{"rank.profile", "rerank.best_first", "rerank.topn"}, true},
		{"topn before best_first", []string{"rank.profile", "rerank.topn", "rerank.best_first"}, false},
		{"diversity on ascending order", []string{"rank.profile", "rerank.diversity"}, false},
		{"rerank without rank", []string{"rerank.best_first"}, false},
		{"filter after rank", []string{"rank.profile", "filter"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &pipeline.Config{}
			for _, typ := range tt.types {
				nc := pipeline.NodeConfig{Type: typ}
				if typ == "filter" {
					nc.Config = map[string]interface{}{"filters": []interface{}{
						map[string]interface{}{"type": "language", "allowed": []interface{}{"en"}},
					}}
				}
				cfg.Pipeline.Nodes = append(cfg.Pipeline.Nodes, nc)
			}
			err := config.ValidatePipelineConfig(cfg)
			if tt.ok && err != nil {
				t.Errorf("error = %v", err)
			}
			if !tt.ok && !core.IsInvalidConfig(err) {
				t.Errorf("error = %v, want invalid config", err)
			}
		})
	}
}

const blacklistPipeline = `
pipeline:
  name: blocked
  nodes:
    - type: filter
      config:
        filters:
          - type: blacklist
            key_prefix: "blacklist:"
    - type: rank.profile
`

func TestPipeline_BlacklistFromRequestStore(t *testing.T) {
	ctx := context.Background()
	cfg, err := pipeline.ParseYAML([]byte(blacklistPipeline))
	if err != nil {
		t.Fatal(err)
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		t.Fatal(err)
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		t.Fatal(err)
	}

	kept := &core.Movie{ID: uuid.New(), Title: "kept", Language: core.LanguageEnglish}
	hidden := &core.Movie{ID: uuid.New(), Title: "hidden", Language: core.LanguageEnglish}
	s := store.NewMemoryStore()
	if err := s.Set(ctx, "blacklist:u1", []byte(`["`+hidden.ID.String()+`"]`)); err != nil {
		t.Fatal(err)
	}
	prof, err := profile.New("u1", profile.WithDimension(2), profile.WithSpaceOptions(space.WithBruteForce()))
	if err != nil {
		t.Fatal(err)
	}

	out, err := p.Run(ctx, &core.RecommendContext{UserID: "u1", Scorer: prof, Store: s}, []*core.Movie{hidden, kept})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != kept {
		t.Errorf("pipeline kept %d movies, want only kept", len(out))
	}
}
