package profile

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/rushteam/movieprofile/core"
)

// WeightMap 是特征值 -> 累积兴趣权重的映射。
//
// 除 map 外还维护两个视图：
//   - keys：插入顺序，序列化时保持稳定
//   - sorted：权重升序，用于 TopSum/Max
//
// 所有权重 >= 0。WeightMap 的写入需要外部串行化；只读方法可并发。
type WeightMap[K comparable] struct {
	keys    []K
	weights map[K]float64
	sorted  []float64
	total   float64
}

// NewWeightMap 创建空的权重映射
func NewWeightMap[K comparable]() *WeightMap[K] {
	return &WeightMap[K]{weights: make(map[K]float64)}
}

// Add 累加权重（不存在则创建，永不覆盖）。
func (m *WeightMap[K]) Add(key K, weight float64) {
	old, ok := m.weights[key]
	if ok {
		m.removeSorted(old)
	} else {
		m.keys = append(m.keys, key)
	}
	v := old + weight
	m.weights[key] = v
	m.insertSorted(v)
	m.total += weight
}

func (m *WeightMap[K]) insertSorted(v float64) {
	i := sort.SearchFloat64s(m.sorted, v)
	m.sorted = append(m.sorted, 0)
	copy(m.sorted[i+1:], m.sorted[i:])
	m.sorted[i] = v
}

func (m *WeightMap[K]) removeSorted(v float64) {
	i := sort.SearchFloat64s(m.sorted, v)
	if i >= len(m.sorted) || m.sorted[i] != v {
		panic(core.InternalError(core.ModuleProfile, fmt.Sprintf("profile: weight %v missing from sorted view", v)))
	}
	m.sorted = append(m.sorted[:i], m.sorted[i+1:]...)
}

// Get 返回权重，不存在为 0
func (m *WeightMap[K]) Get(key K) float64 { return m.weights[key] }

// Len 返回键数
func (m *WeightMap[K]) Len() int { return len(m.weights) }

// Total 返回权重总和
func (m *WeightMap[K]) Total() float64 { return m.total }

// Max 返回最大权重，空映射为 0
func (m *WeightMap[K]) Max() float64 {
	m.checkConsistency()
	if len(m.sorted) == 0 {
		return 0
	}
	return m.sorted[len(m.sorted)-1]
}

// TopSum 返回最大的 k 个权重之和（按权重降序取前 k 个，k 超过键数时取全部）。
func (m *WeightMap[K]) TopSum(k int) float64 {
	m.checkConsistency()
	if k > len(m.sorted) {
		k = len(m.sorted)
	}
	var sum float64
	for i := len(m.sorted) - 1; i >= len(m.sorted)-k; i-- {
		sum += m.sorted[i]
	}
	return sum
}

// checkConsistency 检查排序视图与映射一致；不一致说明不变式已被破坏，继续打分会静默产生错误结果。
func (m *WeightMap[K]) checkConsistency() {
	if len(m.sorted) != len(m.weights) || len(m.keys) != len(m.weights) {
		panic(core.InternalError(core.ModuleProfile, fmt.Sprintf(
			"profile: weight map views out of sync (keys=%d weights=%d sorted=%d)",
			len(m.keys), len(m.weights), len(m.sorted))))
	}
}

// Overlap 计算一组特征值与画像的重合度，结果在 [0,1]：
// 去重后各特征值权重之和 / 画像中最大的 k 个权重之和，
// k = max(去重后的特征数, 画像已记录的特征数)，超出画像大小时取全部。
func (m *WeightMap[K]) Overlap(keys []K) float64 {
	if len(keys) == 0 || len(m.weights) == 0 {
		return 0
	}
	seen := make(map[K]struct{}, len(keys))
	var num float64
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		num += m.weights[k]
	}
	den := m.TopSum(max(len(seen), len(m.weights)))
	if den == 0 {
		return 0
	}
	return core.Clamp01(num / den)
}

// Share 返回 key 的权重相对最大权重的比例，在 [0,1]；未见过的 key 为 0。
func (m *WeightMap[K]) Share(key K) float64 {
	hi := m.Max()
	if hi == 0 {
		return 0
	}
	return core.Clamp01(m.weights[key] / hi)
}

// Range 按插入顺序遍历，fn 返回 false 时停止
func (m *WeightMap[K]) Range(fn func(key K, weight float64) bool) {
	for _, k := range m.keys {
		if !fn(k, m.weights[k]) {
			return
		}
	}
}

// distribute 把 weight 平均分配到 keys 上：每个 key 得到 weight/len(keys)。
// 演员、类型、语言三个维度共用这一个操作；空列表不做任何事。
func distribute[K comparable](m *WeightMap[K], keys []K, weight float64) {
	if len(keys) == 0 {
		return
	}
	share := weight / float64(len(keys))
	for _, k := range keys {
		m.Add(k, share)
	}
}

type weightEntry[K comparable] struct {
	Key    K       `json:"key"`
	Weight float64 `json:"weight"`
}

// MarshalJSON 以插入顺序输出 [{key, weight}]
func (m *WeightMap[K]) MarshalJSON() ([]byte, error) {
	entries := make([]weightEntry[K], 0, len(m.keys))
	for _, k := range m.keys {
		entries = append(entries, weightEntry[K]{Key: k, Weight: m.weights[k]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON 按顺序重放条目；负权重视为损坏的快照。
func (m *WeightMap[K]) UnmarshalJSON(data []byte) error {
	var entries []weightEntry[K]
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	fresh := NewWeightMap[K]()
	for _, e := range entries {
		if e.Weight < 0 {
			return core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidInput,
				fmt.Sprintf("profile: negative weight %v in snapshot", e.Weight))
		}
		fresh.Add(e.Key, e.Weight)
	}
	*m = *fresh
	return nil
}
