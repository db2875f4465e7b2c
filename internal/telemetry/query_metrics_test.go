package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		add      []string
		want     []string
	}{
		{name: "empty", capacity: 3, want: []string{}},
		{name: "partial", capacity: 3, add: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "full", capacity: 3, add: []string{"a", "b", "c"}, want: []string{"a", "b", "c"}},
		{name: "evicts oldest", capacity: 3, add: []string{"a", "b", "c", "d", "e"}, want: []string{"c", "d", "e"}},
		{name: "default capacity", capacity: 0, add: []string{"a"}, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewCircularBuffer[string](tt.capacity)
			for _, item := range tt.add {
				buf.Add(item)
			}

			assert.Equal(t, tt.want, buf.Items())
			assert.Equal(t, len(tt.want), buf.Size())
		})
	}
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{500 * time.Microsecond, BucketP1},
		{time.Millisecond, BucketP10},
		{9 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{100 * time.Millisecond, BucketP1000},
		{2 * time.Second, BucketP1000},
	}

	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LatencyToBucket(tt.latency))
		})
	}
}

func TestQueryMetrics_Record(t *testing.T) {
	// Given: a collector
	m := NewQueryMetrics()

	// When: three queries are recorded, one without matches
	m.Record(QueryEvent{Query: "ownership model", Tokens: []string{"ownership", "model"}, ResultCount: 3, Latency: 200 * time.Microsecond})
	m.Record(QueryEvent{Query: "Ownership", Tokens: []string{"ownership"}, ResultCount: 2, Latency: 2 * time.Millisecond})
	m.Record(QueryEvent{Query: "quantum", Tokens: []string{"quantum"}, ResultCount: 0, Latency: 200 * time.Microsecond})

	// Then: counts, terms, zero results and latency are aggregated
	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.Equal(t, []string{"quantum"}, snap.ZeroResultQueries)
	assert.InDelta(t, 33.33, snap.ZeroResultPercentage(), 0.01)
	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, TermCount{Term: "ownership", Count: 2}, snap.TopTerms[0])
	assert.Equal(t, []TermCount{{"ownership", 2}, {"model", 1}, {"quantum", 1}}, snap.TopTerms)
	assert.Equal(t, int64(2), snap.LatencyDistribution[BucketP1])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP10])
}

func TestQueryMetrics_RepeatedTokensCountOnce(t *testing.T) {
	m := NewQueryMetrics()

	m.Record(QueryEvent{Query: "go go go", Tokens: []string{"go", "go", "go"}, ResultCount: 1})

	assert.Equal(t, []TermCount{{"go", 1}}, m.Snapshot().TopTerms)
}

func TestQueryMetrics_ExactRepeats(t *testing.T) {
	tests := []struct {
		name       string
		queries    []string
		wantRepeat int64
		wantUnique int64
	}{
		{name: "distinct", queries: []string{"a", "b"}, wantRepeat: 0, wantUnique: 2},
		{name: "same query", queries: []string{"rust", "rust"}, wantRepeat: 1, wantUnique: 1},
		{name: "case and space insensitive", queries: []string{"Rust", "  rust "}, wantRepeat: 1, wantUnique: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewQueryMetrics()
			for _, q := range tt.queries {
				m.Record(QueryEvent{Query: q, ResultCount: 1})
			}

			snap := m.Snapshot()
			assert.Equal(t, tt.wantRepeat, snap.ExactRepeatCount)
			assert.Equal(t, tt.wantUnique, snap.UniqueQueryCount)
		})
	}
}

func TestQueryMetrics_Bounded(t *testing.T) {
	// Given: tiny capacities
	m := NewQueryMetricsWithConfig(Config{TopTermsCapacity: 2, ZeroResultsCapacity: 2, RecentQueriesCapacity: 2})

	// When: more distinct misses than fit
	for _, q := range []string{"a", "b", "c"} {
		m.Record(QueryEvent{Query: q, Tokens: []string{q}})
	}

	// Then: only the most recent entries are kept
	snap := m.Snapshot()
	assert.Equal(t, []string{"b", "c"}, snap.ZeroResultQueries)
	assert.Len(t, snap.TopTerms, 2)
	assert.Equal(t, int64(2), snap.UniqueQueryCount)
	assert.Equal(t, int64(3), snap.ZeroResultCount)
}

func TestQueryMetrics_Concurrent(t *testing.T) {
	m := NewQueryMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Record(QueryEvent{Query: "q", Tokens: []string{"q"}, ResultCount: j % 2})
				_ = m.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(1000), snap.TotalQueries)
	assert.Equal(t, int64(500), snap.ZeroResultCount)
	assert.Equal(t, []TermCount{{"q", 1000}}, snap.TopTerms)
}

func TestSnapshot_ZeroResultPercentage_Empty(t *testing.T) {
	assert.Zero(t, NewQueryMetrics().Snapshot().ZeroResultPercentage())
}
