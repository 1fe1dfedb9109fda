package core

import "math"

// TextVector 是定长的文本（简介）向量，值语义：存储时总是 Clone。
type TextVector []float32

// Clone 返回独立副本
func (v TextVector) Clone() TextVector {
	if v == nil {
		return nil
	}
	out := make(TextVector, len(v))
	copy(out, v)
	return out
}

// Norm 返回 L2 范数
func (v TextVector) Norm() float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

// Cosine 计算余弦相似度；维度不一致或任一向量范数为 0 时返回 0。
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
