package memory

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memori-store/internal/config"
	"github.com/rcliao/memori-store/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var backends = []string{"sqlite", "badger"}

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg := config.Default()
	dir := filepath.ToSlash(t.TempDir())
	switch backend {
	case "sqlite":
		cfg.Database = "sqlite://" + dir + "/memori.db"
	case "badger":
		cfg.Database = "badger://" + dir + "/badger"
	default:
		t.Fatalf("unknown backend %q", backend)
	}
	cfg.ConnectTimeout = 5 * time.Second
	cfg.OperationTimeout = 10 * time.Second
	return cfg
}

func newTestEngine(t *testing.T, backend string) *Engine {
	t.Helper()
	e, err := New(testConfig(t, backend), WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// forEachBackend runs fn against a fresh engine per backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, e *Engine)) {
	for _, b := range backends {
		t.Run(b, func(t *testing.T) {
			fn(t, newTestEngine(t, b))
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.SearchWorkers = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNew_LazyConnect(t *testing.T) {
	cfg := config.Default()
	cfg.Database = "nosuchscheme://nowhere/db"

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.GetStats(context.Background(), "ns", StatsOptions{})
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, store.ErrInvalidDescriptor)
}

func TestClose_Idempotent(t *testing.T) {
	e, err := New(testConfig(t, "sqlite"))
	require.NoError(t, err)

	_, err = e.StoreShortTermMemory(context.Background(), shortTerm("ns", "before close", 0.5))
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.StoreShortTermMemory(context.Background(), shortTerm("ns", "after close", 0.5))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.Search(context.Background(), SearchRequest{Namespace: "ns", Query: "close"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnection_Memoized(t *testing.T) {
	e := newTestEngine(t, "sqlite")
	ctx := context.Background()

	b1, err := e.backend(ctx)
	require.NoError(t, err)
	b2, err := e.backend(ctx)
	require.NoError(t, err)
	assert.Same(t, b1, b2)
}

func TestConnection_FallbackToNormalized(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	cfg.Database += "?reject=true"

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	var attempts []string
	e.conn.openers = map[string]opener{
		"sqlite": func(d store.Descriptor, logger *slog.Logger) (store.Backend, error) {
			attempts = append(attempts, d.Raw)
			if d.Options["reject"] == "true" {
				return nil, errors.New("option rejected")
			}
			return openSQLite(d, logger)
		},
	}

	_, err = e.StoreChatInteraction(context.Background(), chat("ns", "c1", "hello"))
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Contains(t, attempts[0], "reject=true")
	assert.NotContains(t, attempts[1], "reject")

	// Later operations reuse the fallback connection.
	_, err = e.GetChatHistory(context.Background(), "ns", "", 10)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	info, err := e.Info(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, info.Descriptor, "reject")
}

func TestConnection_BothAttemptsFail(t *testing.T) {
	cfg := config.Default()
	cfg.Database = "sqlite://alice:hunter2@/tmp/memori.db?x=1"

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	attempts := 0
	e.conn.openers = map[string]opener{
		"sqlite": func(store.Descriptor, *slog.Logger) (store.Backend, error) {
			attempts++
			return nil, errors.New("unreachable")
		},
	}

	_, err = e.GetChatHistory(context.Background(), "ns", "", 10)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 2, attempts)
	assert.NotContains(t, connErr.Error(), "hunter2")
	assert.Contains(t, connErr.Descriptor, "alice")

	// Failures are not cached; the next call tries again.
	_, err = e.GetChatHistory(context.Background(), "ns", "", 10)
	require.Error(t, err)
	assert.Equal(t, 4, attempts)
}

// stalledBackend never answers a ping.
type stalledBackend struct {
	store.Backend
}

func (stalledBackend) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledBackend) Close() error { return nil }

func TestConnection_Timeout(t *testing.T) {
	cfg := config.Default()
	cfg.Database = "sqlite:///tmp/memori.db"
	cfg.ConnectTimeout = 20 * time.Millisecond

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	e.conn.openers = map[string]opener{
		"sqlite": func(store.Descriptor, *slog.Logger) (store.Backend, error) {
			return stalledBackend{}, nil
		},
	}

	start := time.Now()
	_, err = e.GetChatHistory(context.Background(), "ns", "", 10)
	assert.ErrorIs(t, err, ErrTimeout)
	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSchemaInit_Disabled(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	cfg.SchemaInit = false

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	// Without tables the write fails, surfaced as a WriteError.
	_, err = e.StoreLongTermMemory(context.Background(), longTerm("ns", "no tables yet", 0.5))
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "store", writeErr.Op)
}

func TestSchemaInit_RunsOnce(t *testing.T) {
	e := newTestEngine(t, "sqlite")
	ctx := context.Background()

	id, err := e.StoreLongTermMemory(ctx, longTerm("ns", "survives", 0.5))
	require.NoError(t, err)

	b, err := e.backend(ctx)
	require.NoError(t, err)
	require.NoError(t, b.InitSchema(ctx))

	got, err := e.GetLongTermMemory(ctx, "ns", id)
	require.NoError(t, err)
	assert.Equal(t, "survives", got.SearchableContent)
}

func TestInfo(t *testing.T) {
	forEachBackend(t, func(t *testing.T, e *Engine) {
		info, err := e.Info(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, info.Backend)
		assert.NotEmpty(t, info.Descriptor)
		assert.Equal(t, info.Backend == "sqlite", info.SupportsFullText)
	})
}

// dropTextIndex removes the FTS5 tables and triggers from a SQLite engine
// through a second connection to the same file.
func dropTextIndex(t *testing.T, e *Engine) {
	t.Helper()
	_, err := e.backend(context.Background())
	require.NoError(t, err)

	d, err := store.ParseDescriptor(e.cfg.Database)
	require.NoError(t, err)
	db, err := sql.Open("sqlite", d.Database+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"short_term_memory", "long_term_memory"} {
		for _, stmt := range []string{
			`DROP TRIGGER IF EXISTS ` + table + `_ai`,
			`DROP TRIGGER IF EXISTS ` + table + `_ad`,
			`DROP TRIGGER IF EXISTS ` + table + `_au`,
			`DROP TABLE IF EXISTS ` + table + `_fts`,
		} {
			_, err := db.Exec(stmt)
			require.NoError(t, err)
		}
	}
}
