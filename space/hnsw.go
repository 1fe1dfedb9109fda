package space

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// HNSWParams 是图索引参数。
type HNSWParams struct {
	// M 每个节点在上层保留的最大邻居数，第 0 层为 2M
	M int `json:"m" yaml:"m" koanf:"m"`

	// EfConstruction 建图阶段的候选集大小
	EfConstruction int `json:"ef_construction" yaml:"ef_construction" koanf:"ef_construction"`

	// EfSearch 检索阶段的候选集大小；越大越精确、越慢
	EfSearch int `json:"ef_search" yaml:"ef_search" koanf:"ef_search"`

	// Seed 层级生成的随机种子
	Seed int64 `json:"seed" yaml:"seed" koanf:"seed"`
}

// DefaultHNSWParams 返回默认参数
func DefaultHNSWParams() HNSWParams {
	return HNSWParams{M: 16, EfConstruction: 200, EfSearch: 64, Seed: 42}
}

// HNSW 是分层可导航小世界图索引，适合交互历史很长的用户。
//
// 节点按句柄顺序插入，层级由固定种子生成，入口点是最早到达最高层的节点，
// 距离相同时按句柄升序；同样的输入总是得到同样的图和同样的检索结果。
type HNSW struct {
	params HNSWParams
	ml     float64

	dim      int
	vecs     [][]float32 // 单位化后的向量，零向量为 nil 且不入图
	links    [][][]int   // links[node][level]
	entry    int
	maxLevel int
	count    int
}

// NewHNSW 创建图索引；零值参数取默认值。
func NewHNSW(params HNSWParams) *HNSW {
	def := DefaultHNSWParams()
	if params.M <= 1 {
		params.M = def.M
	}
	if params.EfConstruction <= 0 {
		params.EfConstruction = def.EfConstruction
	}
	if params.EfSearch <= 0 {
		params.EfSearch = def.EfSearch
	}
	return &HNSW{params: params, ml: 1 / math.Log(float64(params.M)), entry: -1}
}

func (h *HNSW) Name() string { return "hnsw" }

// Build 每次都从空图开始。零向量在余弦度量下没有方向，不进入图。
func (h *HNSW) Build(vectors [][]float32) error {
	h.dim, h.count, h.entry, h.maxLevel = 0, 0, -1, 0
	h.vecs = make([][]float32, len(vectors))
	h.links = make([][][]int, len(vectors))

	for i, v := range vectors {
		if h.dim == 0 {
			h.dim = len(v)
		} else if len(v) != h.dim {
			return fmt.Errorf("hnsw: inconsistent vector dims %d vs %d", len(v), h.dim)
		}
		h.vecs[i] = unit(v)
	}

	rng := rand.New(rand.NewSource(h.params.Seed)) //nolint:gosec // level generation only
	for i := range vectors {
		if h.vecs[i] == nil {
			continue
		}
		h.insert(i, h.randomLevel(rng))
	}
	return nil
}

func (h *HNSW) randomLevel(rng *rand.Rand) int {
	// 1-Float64 落在 (0,1]，避免 log(0)
	return int(math.Floor(-math.Log(1-rng.Float64()) * h.ml))
}

func (h *HNSW) maxLinks(level int) int {
	if level == 0 {
		return 2 * h.params.M
	}
	return h.params.M
}

func (h *HNSW) insert(node, level int) {
	h.links[node] = make([][]int, level+1)
	h.count++
	if h.entry < 0 {
		h.entry, h.maxLevel = node, level
		return
	}

	q := h.vecs[node]
	ep := h.entry
	for l := h.maxLevel; l > level; l-- {
		ep = h.searchLayer(q, ep, 1, l)[0].id
	}
	for l := min(level, h.maxLevel); l >= 0; l-- {
		found := h.searchLayer(q, ep, h.params.EfConstruction, l)
		limit := h.maxLinks(l)
		neighbors := make([]int, 0, limit)
		for _, c := range found {
			if len(neighbors) == limit {
				break
			}
			neighbors = append(neighbors, c.id)
		}
		h.links[node][l] = neighbors
		for _, n := range neighbors {
			h.links[n][l] = append(h.links[n][l], node)
			if len(h.links[n][l]) > limit {
				h.prune(n, l, limit)
			}
		}
		ep = found[0].id
	}
	if level > h.maxLevel {
		h.entry, h.maxLevel = node, level
	}
}

// prune 只保留离 node 最近的 limit 个邻居
func (h *HNSW) prune(node, level, limit int) {
	cands := make([]candidate, len(h.links[node][level]))
	for i, n := range h.links[node][level] {
		cands[i] = candidate{id: n, dist: h.distance(h.vecs[node], n)}
	}
	sort.Slice(cands, func(i, j int) bool { return closer(cands[i], cands[j]) })
	kept := h.links[node][level][:0]
	for _, c := range cands[:limit] {
		kept = append(kept, c.id)
	}
	h.links[node][level] = kept
}

// searchLayer 在第 level 层从 ep 出发做 beam search，返回至多 ef 个节点，由近到远
func (h *HNSW) searchLayer(q []float32, ep, ef, level int) []candidate {
	visited := make(map[int]struct{}, ef*2)
	start := candidate{id: ep, dist: h.distance(q, ep)}
	visited[ep] = struct{}{}

	cands := &nearHeap{start}
	results := &farHeap{start}
	for cands.Len() > 0 {
		c := heap.Pop(cands).(candidate)
		if results.Len() >= ef && closer((*results)[0], c) {
			break
		}
		for _, n := range h.links[c.id][level] {
			if _, ok := visited[n]; ok {
				continue
			}
			visited[n] = struct{}{}
			nc := candidate{id: n, dist: h.distance(q, n)}
			if results.Len() < ef || closer(nc, (*results)[0]) {
				heap.Push(cands, nc)
				heap.Push(results, nc)
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

func (h *HNSW) distance(q []float32, node int) float64 {
	return 1 - dot(q, h.vecs[node])
}

// Search 返回近似的 k 个近邻句柄，由近到远
func (h *HNSW) Search(query []float32, k int) ([]int, error) {
	if h.entry < 0 {
		return nil, nil
	}
	if len(query) != h.dim {
		return nil, fmt.Errorf("hnsw: query dim %d != index dim %d", len(query), h.dim)
	}
	q := unit(query)
	if q == nil {
		return nil, nil
	}
	if k <= 0 || k > h.count {
		k = h.count
	}

	ep := h.entry
	for l := h.maxLevel; l > 0; l-- {
		ep = h.searchLayer(q, ep, 1, l)[0].id
	}
	found := h.searchLayer(q, ep, max(h.params.EfSearch, k), 0)
	if len(found) > k {
		found = found[:k]
	}
	out := make([]int, len(found))
	for i, c := range found {
		out[i] = c.id
	}
	return out, nil
}

func (h *HNSW) Len() int { return h.count }

type candidate struct {
	id   int
	dist float64
}

func closer(a, b candidate) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.id < b.id
}

// nearHeap 堆顶是最近的候选
type nearHeap []candidate

func (h nearHeap) Len() int           { return len(h) }
func (h nearHeap) Less(i, j int) bool { return closer(h[i], h[j]) }
func (h nearHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nearHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *nearHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// farHeap 堆顶是最远的结果
type farHeap []candidate

func (h farHeap) Len() int           { return len(h) }
func (h farHeap) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h farHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *farHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *farHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

func unit(v []float32) []float32 {
	m := magnitude(v)
	if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / m)
	}
	return out
}

var _ Index = (*HNSW)(nil)
