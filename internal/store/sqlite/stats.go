package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// KindStats aggregates one table for a namespace.
func (s *Store) KindStats(ctx context.Context, ns string, kind model.Kind, now time.Time, includeExpired bool) (store.KindStats, error) {
	st := store.KindStats{ByCategory: map[string]int{}}
	table, err := tableFor(kind)
	if err != nil {
		return st, err
	}

	if kind == model.KindChat {
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chat_history WHERE namespace = ?`, ns).Scan(&st.Count)
		return st, err
	}

	where := "namespace = ?"
	args := []interface{}{ns}
	if kind == model.KindShortTerm {
		nowText := store.FormatTime(now)
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM short_term_memory
			 WHERE namespace = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
			ns, nowText).Scan(&st.Expired); err != nil {
			return st, fmt.Errorf("count expired: %w", err)
		}
		if !includeExpired {
			where += " AND (expires_at IS NULL OR expires_at > ?)"
			args = append(args, nowText)
		}
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(importance_score), 0) FROM `+table+` WHERE `+where,
		args...).Scan(&st.Count, &st.AvgImportance); err != nil {
		return st, fmt.Errorf("count %s: %w", kind, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category_primary, COUNT(*) FROM `+table+` WHERE `+where+` GROUP BY category_primary`,
		args...)
	if err != nil {
		return st, fmt.Errorf("categories %s: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return st, err
		}
		if cat == "" {
			cat = "unknown"
		}
		st.ByCategory[cat] += n
	}
	return st, rows.Err()
}

// StorageStats reports page-level size and, when the dbstat table is
// compiled in, the bytes held by indexes.
func (s *Store) StorageStats(ctx context.Context) (*model.StorageStats, error) {
	var pageCount, pageSize, freePages int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrStatsUnavailable, err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrStatsUnavailable, err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA freelist_count`).Scan(&freePages); err != nil {
		s.logger.Debug("free page count unavailable", "err", err)
	}

	st := &model.StorageStats{
		StorageBytes: pageCount * pageSize,
		DataBytes:    (pageCount - freePages) * pageSize,
	}

	var indexBytes int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(pgsize), 0) FROM dbstat
		 WHERE name IN (SELECT name FROM sqlite_master WHERE type = 'index')`).Scan(&indexBytes)
	if err != nil {
		s.logger.Debug("index size unavailable", "err", err)
	} else {
		st.IndexBytes = indexBytes
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'
		 AND name IN ('chat_history', 'short_term_memory', 'long_term_memory')`).Scan(&st.Collections)
	if err != nil {
		s.logger.Debug("collection count unavailable", "err", err)
	}

	return st, nil
}
