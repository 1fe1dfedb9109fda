// Package metrics 提供画像打分链路的 Prometheus 指标：
// 分数缓存命中、索引重建、画像落盘、交互写入与排序耗时。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScoreCacheHits 分数缓存命中次数
	ScoreCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movieprofile_score_cache_hits_total",
			Help: "Total number of similarity lookups served from the score cache",
		},
	)

	// ScoreCacheMisses 分数缓存未命中（需要重新计算）次数
	ScoreCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movieprofile_score_cache_misses_total",
			Help: "Total number of similarity computations",
		},
	)

	// ScoreCacheInvalidations 缓存整体失效次数
	ScoreCacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movieprofile_score_cache_invalidations_total",
			Help: "Total number of times the score cache was cleared by preference drift",
		},
	)

	// IndexRebuilds 向量索引重建次数与耗时
	IndexRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieprofile_index_rebuilds_total",
			Help: "Total number of text embedding index rebuilds",
		},
		[]string{"index"},
	)

	IndexRebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movieprofile_index_rebuild_duration_seconds",
			Help:    "Duration of text embedding index rebuilds in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"index"},
	)

	// ProfileFlushes 画像落盘次数，result 为 success / failure
	ProfileFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movieprofile_profile_flushes_total",
			Help: "Total number of profile snapshots written to the store",
		},
		[]string{"store", "result"},
	)

	// Interactions 写入画像的交互数
	Interactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movieprofile_interactions_total",
			Help: "Total number of interactions absorbed into profiles",
		},
	)

	// RankDuration 一次排序的耗时
	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "movieprofile_rank_duration_seconds",
			Help:    "Duration of candidate batch ranking in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StoreBreakerState 存储熔断器状态：0 = closed, 1 = half-open, 2 = open
	StoreBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movieprofile_store_breaker_state",
			Help: "Circuit breaker state of the profile store (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// RankedCandidates 排序过的候选数
	RankedCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movieprofile_ranked_candidates_total",
			Help: "Total number of candidates ranked",
		},
	)
)

// RecordCacheLookup 记录一次分数缓存查询
func RecordCacheLookup(hit bool) {
	if hit {
		ScoreCacheHits.Inc()
		return
	}
	ScoreCacheMisses.Inc()
}

// RecordRebuild 记录一次索引重建
func RecordRebuild(index string, d time.Duration) {
	IndexRebuilds.WithLabelValues(index).Inc()
	IndexRebuildDuration.WithLabelValues(index).Observe(d.Seconds())
}

// RecordFlush 记录一次画像落盘
func RecordFlush(store string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ProfileFlushes.WithLabelValues(store, result).Inc()
}

// RecordRank 记录一次排序
func RecordRank(candidates int, d time.Duration) {
	RankedCandidates.Add(float64(candidates))
	RankDuration.Observe(d.Seconds())
}
