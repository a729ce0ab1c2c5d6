// Package store defines the narrow adapter interfaces every backing store
// implements, plus the descriptor and codecs they share.
package store

import (
	"context"
	"time"

	"github.com/rcliao/memori-store/internal/model"
)

// Query scopes a memory lookup to one namespace and collection.
type Query struct {
	Namespace  string
	Text       string
	Categories []string
	Limit      int

	// Now is the reference time for expiry filtering.
	Now time.Time
}

// KindStats holds per-collection aggregates for one namespace.
type KindStats struct {
	Count         int
	Expired       int
	AvgImportance float64
	ByCategory    map[string]int
}

// RecordWriter persists records.
type RecordWriter interface {
	// UpsertChat inserts or replaces a chat interaction by chat_id.
	UpsertChat(ctx context.Context, c *model.ChatInteraction) error

	// InsertShortTerm inserts a short-term memory. Returns ErrDuplicateKey
	// if the memory_id already exists.
	InsertShortTerm(ctx context.Context, m *model.ShortTermMemory) error

	// InsertLongTerm inserts a long-term memory. Returns ErrDuplicateKey
	// if the memory_id already exists.
	InsertLongTerm(ctx context.Context, m *model.LongTermMemory) error

	// UpdateLongTerm applies patch to the memory. Returns false if no such
	// memory exists in the namespace.
	UpdateLongTerm(ctx context.Context, ns, id string, patch model.LongTermPatch) (bool, error)

	// TouchLongTerm increments access_count and sets last_accessed_at.
	TouchLongTerm(ctx context.Context, ns string, ids []string, at time.Time) error

	// Delete removes every record of kind in the namespace.
	Delete(ctx context.Context, ns string, kind model.Kind) (int, error)

	// DeleteExpired removes short-term memories whose expiry is at or before now.
	DeleteExpired(ctx context.Context, ns string, now time.Time) (int, error)
}

// RecordReader retrieves records.
type RecordReader interface {
	// ChatHistory returns chats newest first. An empty sessionID matches all sessions.
	ChatHistory(ctx context.Context, ns, sessionID string, limit int) ([]model.ChatInteraction, error)

	// GetLongTerm returns ErrNotFound when the memory does not exist in ns.
	GetLongTerm(ctx context.Context, ns, id string) (*model.LongTermMemory, error)

	// TextSearch runs the store's native full-text search. Returns
	// ErrTextSearchUnsupported when the store has none.
	TextSearch(ctx context.Context, kind model.Kind, q Query) ([]model.SearchResult, error)

	// SubstringSearch matches q.Text case-insensitively against
	// searchable_content or summary.
	SubstringSearch(ctx context.Context, kind model.Kind, q Query) ([]model.SearchResult, error)

	// Recent returns memories ordered by importance then recency.
	Recent(ctx context.Context, kind model.Kind, q Query) ([]model.SearchResult, error)

	// KindStats aggregates one collection. Expired short-term memories are
	// counted in Expired and excluded from the rest unless includeExpired.
	KindStats(ctx context.Context, ns string, kind model.Kind, now time.Time, includeExpired bool) (KindStats, error)

	// StorageStats reports backing store size metrics, or ErrStatsUnavailable.
	StorageStats(ctx context.Context) (*model.StorageStats, error)
}

// Backend is a connected backing store.
type Backend interface {
	RecordReader
	RecordWriter

	// InitSchema idempotently creates collections and indexes.
	InitSchema(ctx context.Context) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Info describes the store. Descriptor is left for the caller to fill.
	Info(ctx context.Context) (*model.Info, error)

	// Close releases the store.
	Close() error
}
