package space

import (
	"math"
	"math/rand"
	"testing"

	"github.com/goccy/go-json"

	"github.com/rushteam/movieprofile/core"
)

func TestNew_InvalidDimension(t *testing.T) {
	for _, dim := range []int{0, -3} {
		if _, err := New(dim); !core.IsInvalidConfig(err) {
			t.Errorf("New(%d) error = %v, want INVALID_CONFIG", dim, err)
		}
	}
}

func TestInsert_NotSearchableUntilBuild(t *testing.T) {
	s, err := New(2, WithBruteForce())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	h0, _ := s.Insert(core.TextVector{1, 0})
	if h0 != 0 {
		t.Fatalf("first handle = %d, want 0", h0)
	}

	// first query triggers the lazy build
	got, err := s.Search(core.TextVector{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].Handle != 0 {
		t.Fatalf("Search() = %+v, want handle 0", got)
	}

	h1, _ := s.Insert(core.TextVector{0, 1})
	if h1 != 1 {
		t.Fatalf("second handle = %d, want 1", h1)
	}
	got, _ = s.Search(core.TextVector{0, 1}, 5)
	if len(got) != 1 {
		t.Fatalf("vector inserted after build must not be searchable, got %+v", got)
	}
	if s.Indexed() != 1 || s.Len() != 2 {
		t.Fatalf("Indexed=%d Len=%d, want 1 and 2", s.Indexed(), s.Len())
	}

	if err := s.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got, _ = s.Search(core.TextVector{0, 1}, 5)
	if len(got) != 2 || got[0].Handle != 1 {
		t.Fatalf("after Build Search() = %+v, want handle 1 first", got)
	}
}

func TestInsert_ClonesAndValidates(t *testing.T) {
	s, _ := New(2, WithBruteForce())
	v := core.TextVector{1, 2}
	h, _ := s.Insert(v)
	v[0] = 100
	stored, ok := s.Vector(h)
	if !ok || stored[0] != 1 {
		t.Fatalf("stored vector was aliased: %v", stored)
	}
	if _, err := s.Insert(core.TextVector{1}); !core.IsInvalidInput(err) {
		t.Fatalf("Insert() wrong dim error = %v, want INVALID_INPUT", err)
	}
	if _, err := s.Search(core.TextVector{1, 2, 3}, 1); !core.IsInvalidInput(err) {
		t.Fatalf("Search() wrong dim error = %v, want INVALID_INPUT", err)
	}
}

func TestEvaluate_EmptySpace(t *testing.T) {
	s, _ := New(3)
	got, err := s.Evaluate(core.TextVector{1, 0, 0})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got != 0 {
		t.Fatalf("Evaluate() on empty space = %v, want 0", got)
	}
}

func TestEvaluate_Formula(t *testing.T) {
	s, _ := New(2, WithBruteForce())
	// 10 vectors -> k = round(0.2*10) = 2
	for i := 0; i < 8; i++ {
		s.Insert(core.TextVector{0, 1})
	}
	s.Insert(core.TextVector{1, 0})
	s.Insert(core.TextVector{1, 1})

	got, err := s.Evaluate(core.TextVector{1, 0})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	s1, s2 := 1.0, 1/math.Sqrt2
	m1 := s1/math.Log2(2) + s2/math.Log2(3)
	m2 := (s1 + s2) / 2
	beta2 := 1.2 * 1.2
	want := (1 + beta2) * m1 * m2 / (beta2*m2 + m1)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Evaluate() = %v, want %v", got, want)
	}
}

func TestEvaluate_NegativeSimilarityFloorsAtZero(t *testing.T) {
	s, _ := New(2, WithBruteForce())
	s.Insert(core.TextVector{-1, 0})
	got, err := s.Evaluate(core.TextVector{1, 0})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got != 0 {
		t.Fatalf("Evaluate() = %v, want 0", got)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	for _, opt := range []Option{WithBruteForce(), WithHNSW(DefaultHNSWParams())} {
		s, _ := New(8, opt)
		for _, v := range randomVectors(rand.New(rand.NewSource(1)), 50, 8) {
			s.Insert(v)
		}
		q := randomVectors(rand.New(rand.NewSource(2)), 1, 8)[0]

		s.Build()
		first, _ := s.Search(q, 5)
		s.Build()
		second, _ := s.Search(q, 5)

		if len(first) != len(second) {
			t.Fatalf("%s: rebuild changed result size %d -> %d", s.IndexName(), len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("%s: rebuild changed result %d: %+v -> %+v", s.IndexName(), i, first[i], second[i])
			}
		}
	}
}

func TestHNSW_MatchesBruteForce(t *testing.T) {
	const (
		n   = 60
		dim = 16
		k   = 5
	)
	rng := rand.New(rand.NewSource(7))
	vecs := randomVectors(rng, n, dim)

	exact, _ := New(dim, WithBruteForce())
	approx, _ := New(dim, WithHNSW(HNSWParams{M: 16, EfSearch: 128, Seed: 1}))
	for _, v := range vecs {
		exact.Insert(v)
		approx.Insert(v)
	}

	for q := 0; q < 10; q++ {
		query := randomVectors(rng, 1, dim)[0]
		want, err := exact.Search(query, k)
		if err != nil {
			t.Fatalf("exact Search() error = %v", err)
		}
		got, err := approx.Search(query, k)
		if err != nil {
			t.Fatalf("approx Search() error = %v", err)
		}

		wantSet := make(map[int]bool, len(want))
		for _, nb := range want {
			wantSet[nb.Handle] = true
		}
		hits := 0
		for _, nb := range got {
			if wantSet[nb.Handle] {
				hits++
			}
		}
		// small graph with a wide ef: recall should be near perfect
		if hits < k-1 {
			t.Fatalf("query %d: HNSW recall %d/%d, exact=%+v approx=%+v", q, hits, k, want, got)
		}

		ev1, _ := exact.Evaluate(query)
		ev2, _ := approx.Evaluate(query)
		if math.Abs(ev1-ev2) > 0.05 {
			t.Fatalf("query %d: Evaluate differs: exact=%v approx=%v", q, ev1, ev2)
		}
	}
}

func TestNew_DefaultsToExactIndex(t *testing.T) {
	s, _ := New(4)
	if s.IndexName() != "bruteforce" {
		t.Fatalf("IndexName() = %q, want bruteforce", s.IndexName())
	}
}

func TestHNSW_SameInputSameGraph(t *testing.T) {
	vecs := randomVectors(rand.New(rand.NewSource(3)), 200, 12)
	queries := randomVectors(rand.New(rand.NewSource(4)), 20, 12)

	build := func() *HNSW {
		h := NewHNSW(HNSWParams{M: 4, EfSearch: 8})
		in := make([][]float32, len(vecs))
		for i, v := range vecs {
			in[i] = v
		}
		if err := h.Build(in); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		return h
	}
	a, b := build(), build()
	if a.entry != b.entry || a.maxLevel != b.maxLevel {
		t.Fatalf("entry/level differ: %d/%d vs %d/%d", a.entry, a.maxLevel, b.entry, b.maxLevel)
	}
	for qi, q := range queries {
		ra, _ := a.Search(q, 10)
		rb, _ := b.Search(q, 10)
		if len(ra) != len(rb) {
			t.Fatalf("query %d: len %d vs %d", qi, len(ra), len(rb))
		}
		for i := range ra {
			if ra[i] != rb[i] {
				t.Fatalf("query %d: %v vs %v", qi, ra, rb)
			}
		}
	}
}

func TestHNSW_SkipsZeroVectors(t *testing.T) {
	h := NewHNSW(DefaultHNSWParams())
	if err := h.Build([][]float32{{0, 0}, {1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	got, _ := h.Search([]float32{1, 0.1}, 5)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Search() = %v, want [1 2]", got)
	}
	if got, _ := h.Search([]float32{0, 0}, 5); got != nil {
		t.Fatalf("zero query Search() = %v, want nil", got)
	}
	if err := h.Build([][]float32{{1, 0}, {1}}); err == nil {
		t.Fatal("expected error for mixed dimensions")
	}
}

func TestSearch_DescendingOrder(t *testing.T) {
	s, _ := New(2, WithBruteForce())
	s.Insert(core.TextVector{0, 1})
	s.Insert(core.TextVector{1, 0})
	s.Insert(core.TextVector{1, 1})

	got, _ := s.Search(core.TextVector{1, 0}, 3)
	want := []int{1, 2, 0}
	for i, h := range want {
		if got[i].Handle != h {
			t.Fatalf("Search() order = %+v, want handles %v", got, want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s, _ := New(3, WithBruteForce())
	s.Insert(core.TextVector{1, 0, 0})
	s.Insert(core.TextVector{0.5, 0.25, 0})
	s.Build()

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	restored, _ := New(1, WithBruteForce())
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if restored.Dimension() != 3 || restored.Len() != 2 {
		t.Fatalf("restored dim=%d len=%d", restored.Dimension(), restored.Len())
	}
	if restored.Built() {
		t.Fatalf("restored index must start unbuilt")
	}
	v, _ := restored.Vector(1)
	if v[0] != 0.5 || v[1] != 0.25 {
		t.Fatalf("restored vector = %v", v)
	}
	a, _ := s.Evaluate(core.TextVector{1, 0, 0})
	b, _ := restored.Evaluate(core.TextVector{1, 0, 0})
	if a != b {
		t.Fatalf("Evaluate differs after round trip: %v vs %v", a, b)
	}
}

func randomVectors(rng *rand.Rand, n, dim int) []core.TextVector {
	out := make([]core.TextVector, n)
	for i := range out {
		v := make(core.TextVector, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		out[i] = v
	}
	return out
}
