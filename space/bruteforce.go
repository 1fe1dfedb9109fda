package space

import (
	"fmt"
	"math"
	"sort"
)

// BruteForce 是精确的暴力扫描索引，作为正确性基线（测试）与小规模场景使用。
type BruteForce struct {
	vecs [][]float32
	mags []float64
	dim  int
}

// NewBruteForce 创建暴力扫描索引
func NewBruteForce() *BruteForce { return &BruteForce{} }

func (b *BruteForce) Name() string { return "bruteforce" }

// Build 载入向量并预计算范数
func (b *BruteForce) Build(vectors [][]float32) error {
	if len(vectors) == 0 {
		b.vecs, b.mags, b.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	mags := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", len(v), dim)
		}
		mags[i] = magnitude(v)
	}
	b.vecs = append([][]float32(nil), vectors...)
	b.mags = mags
	b.dim = dim
	return nil
}

// Search 返回余弦相似度最高的 k 个句柄；相同分数按句柄升序，保证确定性。
func (b *BruteForce) Search(query []float32, k int) ([]int, error) {
	if b.dim == 0 || len(b.vecs) == 0 {
		return nil, nil
	}
	if len(query) != b.dim {
		return nil, fmt.Errorf("bruteforce: query dim %d != index dim %d", len(query), b.dim)
	}
	qm := magnitude(query)
	if qm == 0 {
		return nil, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scoreds := make([]scored, 0, len(b.vecs))
	for i, v := range b.vecs {
		if b.mags[i] == 0 {
			continue
		}
		s := dot(query, v) / (qm * b.mags[i])
		if math.IsNaN(s) {
			continue
		}
		scoreds = append(scoreds, scored{idx: i, score: s})
	}
	sort.SliceStable(scoreds, func(i, j int) bool { return scoreds[i].score > scoreds[j].score })

	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = scoreds[i].idx
	}
	return out, nil
}

func (b *BruteForce) Len() int { return len(b.vecs) }

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func magnitude(v []float32) float64 { return math.Sqrt(dot(v, v)) }

var _ Index = (*BruteForce)(nil)
