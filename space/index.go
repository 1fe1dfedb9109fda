package space

// Index 是基于余弦相似度的近邻索引。
// 索引是可重建的派生状态，向量本身以 Space 为准；句柄即向量在 Build 输入中的下标。
type Index interface {
	// Name 返回索引类型（用于日志/监控）
	Name() string

	// Build 用给定向量重建索引，句柄为下标。
	Build(vectors [][]float32) error

	// Search 返回最多 k 个近邻句柄，按相似度降序（近似索引可能不完全有序，Space 会再排序）。
	Search(query []float32, k int) ([]int, error)

	// Len 返回已索引的向量数
	Len() int
}

// Neighbor 是一次检索命中的句柄与余弦相似度。
type Neighbor struct {
	Handle     int     `json:"handle"`
	Similarity float64 `json:"similarity"`
}
