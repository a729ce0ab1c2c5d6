package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

func shortTerm(ns, content string, importance float64) model.ShortTermMemory {
	return model.ShortTermMemory{Memory: model.Memory{
		Namespace:         ns,
		CategoryPrimary:   "context",
		ImportanceScore:   importance,
		SearchableContent: content,
		Summary:           content,
	}}
}

func longTerm(ns, content string, importance float64) model.LongTermMemory {
	return model.LongTermMemory{Memory: model.Memory{
		Namespace:         ns,
		CategoryPrimary:   "fact",
		ImportanceScore:   importance,
		SearchableContent: content,
		Summary:           content,
	}}
}

func chat(ns, id, output string) model.ChatInteraction {
	return model.ChatInteraction{
		ChatID:    id,
		UserInput: "question",
		AIOutput:  output,
		Model:     "test-model",
		SessionID: "session-1",
		Namespace: ns,
	}
}

func TestStoreChatInteraction_Upsert(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		id, err := e.StoreChatInteraction(ctx, chat("ns", "c1", "first answer"))
		require.NoError(t, err)
		assert.Equal(t, "c1", id)

		_, err = e.StoreChatInteraction(ctx, chat("ns", "c1", "second answer"))
		require.NoError(t, err)

		chats, err := e.GetChatHistory(ctx, "ns", "", 10)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		assert.Equal(t, "second answer", chats[0].AIOutput)
		assert.True(t, chats[0].Timestamp.Equal(testNow))

		stats, err := e.GetStats(ctx, "ns", StatsOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ChatHistoryCount)
	})
}

func TestStoreChatInteraction_GeneratesID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		c := chat("ns", "", "answer")
		c.Metadata = map[string]any{"turn": "3"}

		id, err := e.StoreChatInteraction(context.Background(), c)
		require.NoError(t, err)
		assert.Len(t, id, 36)

		chats, err := e.GetChatHistory(context.Background(), "ns", "session-1", 10)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		assert.Equal(t, id, chats[0].ChatID)
		assert.Equal(t, "3", chats[0].Metadata["turn"])
	})
}

func TestStoreChatInteraction_Invalid(t *testing.T) {
	e := newTestEngine(t, "sqlite")
	_, err := e.StoreChatInteraction(context.Background(), chat("", "c1", "answer"))

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, model.KindChat, writeErr.Kind)
	assert.ErrorIs(t, err, model.ErrInvalidChat)
}

func TestGetChatHistory_Order(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		for i, id := range []string{"c1", "c2", "c3"} {
			c := chat("ns", id, id)
			c.Timestamp = testNow.Add(time.Duration(i) * time.Minute)
			if i == 1 {
				c.SessionID = "session-2"
			}
			_, err := e.StoreChatInteraction(ctx, c)
			require.NoError(t, err)
		}

		chats, err := e.GetChatHistory(ctx, "ns", "", 2)
		require.NoError(t, err)
		require.Len(t, chats, 2)
		assert.Equal(t, "c3", chats[0].ChatID)
		assert.Equal(t, "c2", chats[1].ChatID)

		chats, err = e.GetChatHistory(ctx, "ns", "session-1", 10)
		require.NoError(t, err)
		require.Len(t, chats, 2)
		assert.Equal(t, "c1", chats[1].ChatID)

		chats, err = e.GetChatHistory(ctx, "other", "", 10)
		require.NoError(t, err)
		assert.Empty(t, chats)
	})
}

func TestStoreLongTermMemory_Defaults(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		m := longTerm("ns", "Alice works on the payments team", 0.8)
		m.AccessCount = 7
		m.Entities = []string{"Alice"}
		id, err := e.StoreLongTermMemory(ctx, m)
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		got, err := e.GetLongTermMemory(ctx, "ns", id)
		require.NoError(t, err)
		assert.Equal(t, id, got.MemoryID)
		assert.Zero(t, got.AccessCount)
		assert.False(t, got.ConsciousProcessed)
		assert.Equal(t, []string{"Alice"}, got.Entities)
		assert.True(t, got.CreatedAt.Equal(testNow))
		for _, s := range []*float64{got.NoveltyScore, got.RelevanceScore, got.ActionabilityScore} {
			require.NotNil(t, s)
			assert.Equal(t, model.NeutralScore, *s)
		}
		require.NotNil(t, got.ExtractionTimestamp)
	})
}

func TestStoreMemory_Invalid(t *testing.T) {
	e := newTestEngine(t, "sqlite")
	ctx := context.Background()

	_, err := e.StoreShortTermMemory(ctx, shortTerm("ns", "  ", 0.5))
	assert.ErrorIs(t, err, model.ErrEmptyContent)

	_, err = e.StoreLongTermMemory(ctx, longTerm("ns", "content", 1.5))
	assert.ErrorIs(t, err, model.ErrScoreOutOfRange)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, model.KindLongTerm, writeErr.Kind)
}

func TestStoreMemory_DuplicateID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		m := shortTerm("ns", "first", 0.5)
		m.MemoryID = "fixed-id"

		_, err := e.StoreShortTermMemory(ctx, m)
		require.NoError(t, err)
		_, err = e.StoreShortTermMemory(ctx, m)

		var writeErr *WriteError
		require.ErrorAs(t, err, &writeErr)
		assert.Equal(t, "fixed-id", writeErr.Key)
	})
}

func TestStoreMemory_PromoteKeepsID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		s := shortTerm("ns", "user is moving to Lisbon", 0.8)
		s.MemoryID = "mem-1"
		_, err := e.StoreShortTermMemory(ctx, s)
		require.NoError(t, err)

		l := longTerm("ns", "user is moving to Lisbon", 0.8)
		l.MemoryID = "mem-1"
		id, err := e.StoreLongTermMemory(ctx, l)
		require.NoError(t, err)
		assert.Equal(t, "mem-1", id)

		got, err := e.GetLongTermMemory(ctx, "ns", "mem-1")
		require.NoError(t, err)
		assert.Equal(t, "user is moving to Lisbon", got.SearchableContent)

		_, err = e.StoreLongTermMemory(ctx, l)
		var writeErr *WriteError
		require.ErrorAs(t, err, &writeErr)
		assert.ErrorIs(t, err, store.ErrDuplicateKey)
	})
}

func TestBatchStore_PartialResult(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		records := []any{
			longTerm("ns", "one", 0.5),
			longTerm("ns", "two", 0.5),
			longTerm("ns", "", 0.5), // malformed
			&model.LongTermMemory{Memory: model.Memory{Namespace: "ns", SearchableContent: "four"}},
			longTerm("ns", "five", 0.5),
		}

		res, err := e.BatchStore(ctx, model.KindLongTerm, records)
		require.NoError(t, err)
		assert.Equal(t, 4, res.Stored)
		assert.Len(t, res.IDs, 4)
		require.Len(t, res.Failures, 1)
		assert.Equal(t, 2, res.Failures[0].Index)
		assert.ErrorIs(t, res.Failures[0].Err, model.ErrEmptyContent)

		stats, err := e.GetStats(ctx, "ns", StatsOptions{})
		require.NoError(t, err)
		assert.Equal(t, 4, stats.LongTermCount)
	})
}

func TestBatchStore_KindMismatch(t *testing.T) {
	e := newTestEngine(t, "sqlite")
	ctx := context.Background()

	res, err := e.BatchStore(ctx, model.KindShortTerm, []any{
		shortTerm("ns", "ok", 0.5),
		longTerm("ns", "wrong kind", 0.5),
		"not a record",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Len(t, res.Failures, 2)

	_, err = e.BatchStore(ctx, model.Kind("episodic"), nil)
	assert.ErrorIs(t, err, model.ErrInvalidKind)
}

func TestBatchStore_Chats(t *testing.T) {
	e := newTestEngine(t, "badger")
	res, err := e.BatchStore(context.Background(), model.KindChat, []any{
		chat("ns", "c1", "a"),
		chat("ns", "c1", "b"),
		chat("", "c2", "no namespace"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)

	chats, err := e.GetChatHistory(context.Background(), "ns", "", 10)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "b", chats[0].AIOutput)
}

func TestUpdateLongTermMemory(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		id, err := e.StoreLongTermMemory(ctx, longTerm("ns", "draft", 0.5))
		require.NoError(t, err)

		processed := true
		importance := 0.9
		ok, err := e.UpdateLongTermMemory(ctx, "ns", id, model.LongTermPatch{
			ConsciousProcessed: &processed,
			ImportanceScore:    &importance,
		})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := e.GetLongTermMemory(ctx, "ns", id)
		require.NoError(t, err)
		assert.True(t, got.ConsciousProcessed)
		assert.Equal(t, 0.9, got.ImportanceScore)
		assert.Equal(t, "draft", got.SearchableContent)

		ok, err = e.UpdateLongTermMemory(ctx, "ns", "missing", model.LongTermPatch{ConsciousProcessed: &processed})
		require.NoError(t, err)
		assert.False(t, ok)

		// Updates are scoped to the namespace.
		ok, err = e.UpdateLongTermMemory(ctx, "other", id, model.LongTermPatch{ConsciousProcessed: &processed})
		require.NoError(t, err)
		assert.False(t, ok)

		bad := 2.0
		_, err = e.UpdateLongTermMemory(ctx, "ns", id, model.LongTermPatch{RelevanceScore: &bad})
		assert.ErrorIs(t, err, model.ErrScoreOutOfRange)
	})
}

func TestGetLongTermMemory_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		_, err := e.GetLongTermMemory(context.Background(), "ns", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestClear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()
		_, err := e.StoreChatInteraction(ctx, chat("ns", "c1", "a"))
		require.NoError(t, err)
		_, err = e.StoreShortTermMemory(ctx, shortTerm("ns", "s", 0.5))
		require.NoError(t, err)
		_, err = e.StoreLongTermMemory(ctx, longTerm("ns", "l", 0.5))
		require.NoError(t, err)
		_, err = e.StoreLongTermMemory(ctx, longTerm("keep", "l", 0.5))
		require.NoError(t, err)

		n, err := e.Clear(ctx, "ns", model.KindShortTerm)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = e.Clear(ctx, "ns", "")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		stats, err := e.GetStats(ctx, "ns", StatsOptions{})
		require.NoError(t, err)
		assert.Zero(t, stats.ChatHistoryCount+stats.ShortTermCount+stats.LongTermCount)

		stats, err = e.GetStats(ctx, "keep", StatsOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.LongTermCount)

		_, err = e.Clear(ctx, "ns", model.Kind("bogus"))
		assert.ErrorIs(t, err, model.ErrInvalidKind)
	})
}

func TestCleanupExpired(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		ctx := context.Background()

		past := testNow.Add(-time.Hour)
		future := testNow.Add(time.Hour)
		expired := shortTerm("ns", "stale", 0.5)
		expired.ExpiresAt = &past
		live := shortTerm("ns", "fresh", 0.5)
		live.ExpiresAt = &future

		_, err := e.StoreShortTermMemory(ctx, expired)
		require.NoError(t, err)
		_, err = e.StoreShortTermMemory(ctx, live)
		require.NoError(t, err)

		n, err := e.CleanupExpired(ctx, "ns")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		stats, err := e.GetStats(ctx, "ns", StatsOptions{IncludeExpired: true})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ShortTermCount)
		assert.Zero(t, stats.ExpiredShortTerm)
	})
}
