package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memori-store/internal/store"
)

func TestGetStats_WeightedAverage(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := e.StoreShortTermMemory(ctx, shortTerm("ns", "short", 0.4))
			require.NoError(t, err)
		}
		_, err := e.StoreLongTermMemory(ctx, longTerm("ns", "long", 0.8))
		require.NoError(t, err)

		stats, err := e.GetStats(ctx, "ns", StatsOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, stats.ShortTermCount)
		assert.Equal(t, 1, stats.LongTermCount)
		assert.InDelta(t, 0.5, stats.AverageImportance, 1e-9)
	})
}

func TestGetStats_Empty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		stats, err := e.GetStats(context.Background(), "nobody", StatsOptions{})
		require.NoError(t, err)
		assert.Equal(t, "nobody", stats.Namespace)
		assert.Zero(t, stats.ShortTermCount+stats.LongTermCount+stats.ChatHistoryCount)
		assert.Zero(t, stats.AverageImportance)
		assert.Empty(t, stats.ByCategory)
	})
}

func TestGetStats_MergedCategories(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		s := shortTerm("ns", "a", 0.5)
		s.CategoryPrimary = "preference"
		_, err := e.StoreShortTermMemory(ctx, s)
		require.NoError(t, err)

		l := longTerm("ns", "b", 0.5)
		l.CategoryPrimary = "preference"
		_, err = e.StoreLongTermMemory(ctx, l)
		require.NoError(t, err)

		_, err = e.StoreLongTermMemory(ctx, longTerm("ns", "c", 0.5))
		require.NoError(t, err)

		stats, err := e.GetStats(ctx, "ns", StatsOptions{})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"preference": 2, "fact": 1}, stats.ByCategory)
		require.NotNil(t, stats.Storage)
		assert.Equal(t, 3, stats.Storage.Collections)
	})
}

func TestGetStats_ExpiryAndIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		past := testNow.Add(-time.Hour)
		expired := shortTerm("ns", "expired", 1.0)
		expired.ExpiresAt = &past
		_, err := e.StoreShortTermMemory(ctx, expired)
		require.NoError(t, err)
		_, err = e.StoreShortTermMemory(ctx, shortTerm("ns", "active", 0.2))
		require.NoError(t, err)
		_, err = e.StoreLongTermMemory(ctx, longTerm("elsewhere", "other tenant", 0.9))
		require.NoError(t, err)

		stats, err := e.GetStats(ctx, "ns", StatsOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ShortTermCount)
		assert.Equal(t, 1, stats.ExpiredShortTerm)
		assert.Zero(t, stats.LongTermCount)
		assert.InDelta(t, 0.2, stats.AverageImportance, 1e-9)

		stats, err = e.GetStats(ctx, "ns", StatsOptions{IncludeExpired: true})
		require.NoError(t, err)
		assert.Equal(t, 2, stats.ShortTermCount)
		assert.InDelta(t, 0.6, stats.AverageImportance, 1e-9)
	})
}

func TestWeightedAverage(t *testing.T) {
	assert.Zero(t, weightedAverage())
	assert.Zero(t, weightedAverage(store.KindStats{}, store.KindStats{}))
	assert.InDelta(t, 0.5, weightedAverage(
		store.KindStats{Count: 3, AvgImportance: 0.4},
		store.KindStats{Count: 1, AvgImportance: 0.8},
	), 1e-9)
}
