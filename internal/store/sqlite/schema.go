package sqlite

import (
	"context"
	"fmt"

	"github.com/rcliao/memori-store/internal/model"
)

const tablesSchema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id          INTEGER PRIMARY KEY,
	chat_id     TEXT NOT NULL UNIQUE,
	user_input  TEXT NOT NULL DEFAULT '',
	ai_output   TEXT NOT NULL DEFAULT '',
	model       TEXT NOT NULL DEFAULT '',
	session_id  TEXT NOT NULL DEFAULT '',
	namespace   TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	metadata    TEXT
);

CREATE TABLE IF NOT EXISTS short_term_memory (
	id                   INTEGER PRIMARY KEY,
	memory_id            TEXT NOT NULL UNIQUE,
	chat_id              TEXT,
	namespace            TEXT NOT NULL,
	category_primary     TEXT NOT NULL DEFAULT '',
	importance_score     REAL NOT NULL DEFAULT 0.5,
	searchable_content   TEXT NOT NULL,
	summary              TEXT NOT NULL DEFAULT '',
	is_permanent_context INTEGER NOT NULL DEFAULT 0,
	created_at           TEXT NOT NULL,
	expires_at           TEXT
);

CREATE TABLE IF NOT EXISTS long_term_memory (
	id                       INTEGER PRIMARY KEY,
	memory_id                TEXT NOT NULL UNIQUE,
	chat_id                  TEXT,
	namespace                TEXT NOT NULL,
	category_primary         TEXT NOT NULL DEFAULT '',
	importance_score         REAL NOT NULL DEFAULT 0.5,
	searchable_content       TEXT NOT NULL,
	summary                  TEXT NOT NULL DEFAULT '',
	is_permanent_context     INTEGER NOT NULL DEFAULT 0,
	created_at               TEXT NOT NULL,
	classification           TEXT NOT NULL DEFAULT '',
	memory_importance        TEXT NOT NULL DEFAULT '',
	topic                    TEXT NOT NULL DEFAULT '',
	entities                 TEXT,
	keywords                 TEXT,
	confidence_score         REAL NOT NULL DEFAULT 0,
	classification_reason    TEXT NOT NULL DEFAULT '',
	extraction_timestamp     TEXT,
	is_user_context          INTEGER NOT NULL DEFAULT 0,
	is_preference            INTEGER NOT NULL DEFAULT 0,
	is_skill_knowledge       INTEGER NOT NULL DEFAULT 0,
	is_current_project       INTEGER NOT NULL DEFAULT 0,
	promotion_eligible       INTEGER NOT NULL DEFAULT 0,
	duplicate_of             TEXT,
	supersedes               TEXT,
	related_memories         TEXT,
	processed_for_duplicates INTEGER NOT NULL DEFAULT 0,
	conscious_processed      INTEGER NOT NULL DEFAULT 0,
	novelty_score            REAL NOT NULL DEFAULT 0.5,
	relevance_score          REAL NOT NULL DEFAULT 0.5,
	actionability_score      REAL NOT NULL DEFAULT 0.5,
	access_count             INTEGER NOT NULL DEFAULT 0,
	last_accessed_at         TEXT
);
`

// indexes are created one at a time so a single failure does not stop the rest.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_chat_ns_session ON chat_history(namespace, session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_timestamp ON chat_history(timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_model ON chat_history(model)`,

	`CREATE INDEX IF NOT EXISTS idx_stm_ns_cat_imp ON short_term_memory(namespace, category_primary, importance_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_stm_expires ON short_term_memory(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_stm_created ON short_term_memory(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_stm_permanent ON short_term_memory(is_permanent_context)`,

	`CREATE INDEX IF NOT EXISTS idx_ltm_ns_cat_imp ON long_term_memory(namespace, category_primary, importance_score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ltm_classification ON long_term_memory(classification)`,
	`CREATE INDEX IF NOT EXISTS idx_ltm_topic ON long_term_memory(topic)`,
	`CREATE INDEX IF NOT EXISTS idx_ltm_created ON long_term_memory(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ltm_conscious ON long_term_memory(conscious_processed)`,
	`CREATE INDEX IF NOT EXISTS idx_ltm_dup_processed ON long_term_memory(processed_for_duplicates)`,
	`CREATE INDEX IF NOT EXISTS idx_ltm_promotion ON long_term_memory(promotion_eligible)`,
}

// ftsColumns are the text-indexed columns per memory kind.
var ftsColumns = map[model.Kind][]string{
	model.KindShortTerm: {"searchable_content", "summary"},
	model.KindLongTerm:  {"searchable_content", "summary", "topic"},
}

// InitSchema creates tables, indexes and FTS5 tables. Only table creation is
// fatal; index and FTS failures are logged and leave search on the LIKE path.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, tablesSchema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	for _, stmt := range indexes {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Debug("index creation failed", "stmt", stmt, "err", err)
		}
	}

	for _, kind := range model.MemoryKinds {
		if err := s.createFTS(ctx, kind); err != nil {
			s.logger.Debug("text index creation failed", "kind", kind, "err", err)
		}
	}

	s.logger.Debug("sqlite schema initialized", "path", s.path)
	return nil
}

// createFTS creates an external-content FTS5 table kept in sync by triggers.
func (s *Store) createFTS(ctx context.Context, kind model.Kind) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	fts := ftsTable(kind)
	cols := ftsColumns[kind]
	existed := s.hasTable(ctx, fts)

	colList := joinCols("", cols)
	newList := joinCols("new.", cols)
	oldList := joinCols("old.", cols)

	stmts := []string{
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s, content='%s', content_rowid='id')`,
			fts, colList, table),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ai AFTER INSERT ON %s BEGIN
			INSERT INTO %s(rowid, %s) VALUES (new.id, %s);
		END`, table, table, fts, colList, newList),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_ad AFTER DELETE ON %s BEGIN
			INSERT INTO %s(%s, rowid, %s) VALUES('delete', old.id, %s);
		END`, table, table, fts, fts, colList, oldList),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_au AFTER UPDATE ON %s BEGIN
			INSERT INTO %s(%s, rowid, %s) VALUES('delete', old.id, %s);
			INSERT INTO %s(rowid, %s) VALUES (new.id, %s);
		END`, table, table, fts, fts, colList, oldList, fts, colList, newList),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	// Backfill rows written before the text index existed.
	if !existed {
		if _, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s(%s) VALUES('rebuild')`, fts, fts)); err != nil {
			return fmt.Errorf("rebuild %s: %w", fts, err)
		}
	}
	return nil
}

func joinCols(prefix string, cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += prefix + c
	}
	return out
}
