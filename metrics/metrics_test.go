package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(ScoreCacheHits)
	misses := testutil.ToFloat64(ScoreCacheMisses)

	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)

	if got := testutil.ToFloat64(ScoreCacheHits) - hits; got != 1 {
		t.Errorf("hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ScoreCacheMisses) - misses; got != 2 {
		t.Errorf("misses delta = %v, want 2", got)
	}
}

func TestRecordFlush(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"success", nil, "success"},
		{"failure", errors.New("boom"), "failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ProfileFlushes.WithLabelValues("test", tt.result)
			before := testutil.ToFloat64(c)
			RecordFlush("test", tt.err)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("flush %s delta = %v, want 1", tt.result, got)
			}
		})
	}
}

func TestRecordRebuildAndRank(t *testing.T) {
	c := IndexRebuilds.WithLabelValues("bruteforce")
	before := testutil.ToFloat64(c)
	RecordRebuild("bruteforce", 3*time.Millisecond)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("rebuild delta = %v, want 1", got)
	}

	ranked := testutil.ToFloat64(RankedCandidates)
	RecordRank(7, time.Millisecond)
	if got := testutil.ToFloat64(RankedCandidates) - ranked; got != 7 {
		t.Errorf("ranked delta = %v, want 7", got)
	}
}

func TestMetricGathering(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Logf("metric lint problem: %s: %s", p.Metric, p.Text)
	}
}
