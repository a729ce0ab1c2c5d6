package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memori-store/internal/model"
)

func TestSearch_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		m := longTerm("ns", "The user mentioned their favorite color during onboarding", 0.6)
		m.Summary = "User's favorite color is blue"
		id, err := e.StoreLongTermMemory(ctx, m)
		require.NoError(t, err)

		results, err := e.Search(ctx, SearchRequest{Query: "favorite color", Namespace: "ns"})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, id, results[0].Memory().MemoryID)
		assert.Equal(t, model.KindLongTerm, results[0].Kind)
	})
}

func TestSearch_NamespaceIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		_, err := e.StoreLongTermMemory(ctx, longTerm("tenant-a", "alice owns a cat", 0.5))
		require.NoError(t, err)
		_, err = e.StoreShortTermMemory(ctx, shortTerm("tenant-a", "alice is online", 0.5))
		require.NoError(t, err)

		for _, q := range []string{"alice", ""} {
			results, err := e.Search(ctx, SearchRequest{Query: q, Namespace: "tenant-b"})
			require.NoError(t, err)
			assert.Empty(t, results, "query %q", q)
		}

		results, err := e.Search(ctx, SearchRequest{Query: "alice", Namespace: "tenant-a"})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})
}

func TestSearch_ExcludesExpired(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		past := testNow.Add(-time.Minute)
		expired := shortTerm("ns", "meeting with alice at noon", 0.9)
		expired.ExpiresAt = &past
		_, err := e.StoreShortTermMemory(ctx, expired)
		require.NoError(t, err)

		for _, q := range []string{"alice", ""} {
			results, err := e.Search(ctx, SearchRequest{Query: q, Namespace: "ns"})
			require.NoError(t, err)
			assert.Empty(t, results, "query %q", q)
		}
	})
}

func TestSearch_FallbackWithoutTextIndex(t *testing.T) {
	check := func(t *testing.T, e *Engine) {
		ctx := context.Background()
		_, err := e.StoreLongTermMemory(ctx, longTerm("ns", "Lunch with ALICE on Friday", 0.4))
		require.NoError(t, err)
		_, err = e.StoreShortTermMemory(ctx, shortTerm("ns", "alice called back", 0.7))
		require.NoError(t, err)
		_, err = e.StoreShortTermMemory(ctx, shortTerm("ns", "bob called", 0.9))
		require.NoError(t, err)

		results, err := e.Search(ctx, SearchRequest{Query: "alice", Namespace: "ns"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Equal(t, model.StrategyRegexFallback, r.Strategy)
			assert.Contains(t, strings.ToLower(r.Memory().SearchableContent), "alice")
		}
		// Equal scores fall back to importance.
		assert.Equal(t, "alice called back", results[0].Memory().SearchableContent)

		_, err = e.StoreLongTermMemory(ctx, longTerm("ns", "Meeting at CAFÉ ÉTOILE", 0.5))
		require.NoError(t, err)
		results, err = e.Search(ctx, SearchRequest{Query: "café", Namespace: "ns"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, model.StrategyRegexFallback, results[0].Strategy)
		assert.Equal(t, "Meeting at CAFÉ ÉTOILE", results[0].Memory().SearchableContent)
	}

	t.Run("badger", func(t *testing.T) {
		check(t, newTestEngine(t, "badger"))
	})
	t.Run("sqlite without fts", func(t *testing.T) {
		e := newTestEngine(t, "sqlite")
		dropTextIndex(t, e)
		check(t, e)
	})
}

func TestSearch_TextStrategy(t *testing.T) {
	e := newTestEngine(t, "sqlite")
	ctx := context.Background()

	_, err := e.StoreLongTermMemory(ctx, longTerm("ns", "golang generics tutorial", 0.2))
	require.NoError(t, err)
	_, err = e.StoreShortTermMemory(ctx, shortTerm("ns", "reading about golang", 0.9))
	require.NoError(t, err)
	_, err = e.StoreShortTermMemory(ctx, shortTerm("ns", "python notes", 0.9))
	require.NoError(t, err)

	results, err := e.Search(ctx, SearchRequest{Query: "golang", Namespace: "ns"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, model.StrategyText, r.Strategy)
		assert.Greater(t, r.Score, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}
}

func TestSearch_PunctuationOnlyQueryFallsBack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		_, err := e.StoreShortTermMemory(ctx, shortTerm("ns", "empty tuple () in python", 0.5))
		require.NoError(t, err)
		_, err = e.StoreShortTermMemory(ctx, shortTerm("ns", "plain words", 0.5))
		require.NoError(t, err)

		results, err := e.Search(ctx, SearchRequest{Query: "()", Namespace: "ns"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, model.StrategyRegexFallback, results[0].Strategy)
		assert.Equal(t, "empty tuple () in python", results[0].Memory().SearchableContent)
	})
}

func TestSearch_CategoryFilter(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		pref := longTerm("ns", "prefers dark mode", 0.5)
		pref.CategoryPrimary = "preference"
		_, err := e.StoreLongTermMemory(ctx, pref)
		require.NoError(t, err)
		_, err = e.StoreLongTermMemory(ctx, longTerm("ns", "dark mode shipped in v2", 0.5))
		require.NoError(t, err)

		results, err := e.Search(ctx, SearchRequest{
			Query: "dark mode", Namespace: "ns", Categories: []string{"preference"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "preference", results[0].Memory().CategoryPrimary)
	})
}

func TestSearch_EmptyQuerySplitsRecent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			s := shortTerm("ns", fmt.Sprintf("short %d", i), 0.9)
			s.CreatedAt = testNow.Add(time.Duration(i) * time.Minute)
			_, err := e.StoreShortTermMemory(ctx, s)
			require.NoError(t, err)

			l := longTerm("ns", fmt.Sprintf("long %d", i), 0.1*float64(i+1))
			_, err = e.StoreLongTermMemory(ctx, l)
			require.NoError(t, err)
		}

		results, err := e.Search(ctx, SearchRequest{Query: "   ", Namespace: "ns", Limit: 4})
		require.NoError(t, err)
		require.Len(t, results, 4)

		counts := map[model.Kind]int{}
		for _, r := range results {
			assert.Equal(t, model.StrategyRecent, r.Strategy)
			counts[r.Kind]++
		}
		assert.Equal(t, 2, counts[model.KindShortTerm])
		assert.Equal(t, 2, counts[model.KindLongTerm])

		// Newest short-term first among equal importance.
		assert.Equal(t, "short 2", results[0].Memory().SearchableContent)
		assert.Equal(t, "short 1", results[1].Memory().SearchableContent)
		assert.Equal(t, "long 2", results[2].Memory().SearchableContent)
	})
}

func TestSearch_LimitAndDefault(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		for i := 0; i < 12; i++ {
			_, err := e.StoreLongTermMemory(ctx, longTerm("ns", fmt.Sprintf("widget report %d", i), 0.5))
			require.NoError(t, err)
		}

		results, err := e.Search(ctx, SearchRequest{Query: "widget", Namespace: "ns", Limit: 3})
		require.NoError(t, err)
		assert.Len(t, results, 3)

		results, err = e.Search(ctx, SearchRequest{Query: "widget", Namespace: "ns"})
		require.NoError(t, err)
		assert.Len(t, results, DefaultSearchLimit)
	})
}

func TestSearch_NoResultsIsNotAnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		results, err := e.Search(context.Background(), SearchRequest{Query: "nothing", Namespace: "empty"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSearch_TracksAccess(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		id, err := e.StoreLongTermMemory(ctx, longTerm("ns", "quarterly planning notes", 0.5))
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			_, err := e.Search(ctx, SearchRequest{Query: "planning", Namespace: "ns"})
			require.NoError(t, err)
		}

		got, err := e.GetLongTermMemory(ctx, "ns", id)
		require.NoError(t, err)
		assert.Equal(t, 2, got.AccessCount)
		require.NotNil(t, got.LastAccessedAt)
		assert.True(t, got.LastAccessedAt.Equal(testNow))
	})
}
