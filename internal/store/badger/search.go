package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// TextSearch is not supported; callers fall back to SubstringSearch.
func (s *Store) TextSearch(ctx context.Context, kind model.Kind, q store.Query) ([]model.SearchResult, error) {
	return nil, store.ErrTextSearchUnsupported
}

// SubstringSearch matches q.Text case-insensitively against searchable_content
// or summary.
func (s *Store) SubstringSearch(ctx context.Context, kind model.Kind, q store.Query) ([]model.SearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	return s.filter(ctx, kind, q, model.StrategyRegexFallback, func(m *model.Memory) bool {
		return strings.Contains(strings.ToLower(m.SearchableContent), needle) ||
			strings.Contains(strings.ToLower(m.Summary), needle)
	})
}

// Recent returns memories by importance, then recency.
func (s *Store) Recent(ctx context.Context, kind model.Kind, q store.Query) ([]model.SearchResult, error) {
	return s.filter(ctx, kind, q, model.StrategyRecent, func(*model.Memory) bool { return true })
}

// filter scans the namespace, keeps active documents in the requested
// categories that satisfy match, and returns the top q.Limit by importance.
func (s *Store) filter(ctx context.Context, kind model.Kind, q store.Query, strategy model.Strategy, match func(*model.Memory) bool) ([]model.SearchResult, error) {
	prefix, err := prefixFor(kind)
	if err != nil {
		return nil, err
	}
	if kind == model.KindChat {
		return nil, fmt.Errorf("%w: %q is not a memory kind", model.ErrInvalidKind, kind)
	}

	categories := make(map[string]bool, len(q.Categories))
	for _, c := range q.Categories {
		categories[c] = true
	}

	var results []model.SearchResult
	err = s.scan(ctx, makeNamespacePrefix(prefix, q.Namespace), func(val []byte) error {
		r, err := decodeResult(kind, val)
		if err != nil {
			return err
		}
		r.Strategy = strategy
		if r.ShortTerm != nil && r.ShortTerm.Expired(q.Now) {
			return nil
		}
		m := r.Memory()
		if len(categories) > 0 && !categories[m.CategoryPrimary] {
			return nil
		}
		if match(m) {
			results = append(results, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.SortByImportance(results)
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func decodeResult(kind model.Kind, val []byte) (model.SearchResult, error) {
	r := model.SearchResult{Kind: kind}
	switch kind {
	case model.KindShortTerm:
		var m model.ShortTermMemory
		if err := json.Unmarshal(val, &m); err != nil {
			return r, fmt.Errorf("%w: %w", errCorrupt, err)
		}
		r.ShortTerm = &m
	case model.KindLongTerm:
		var m model.LongTermMemory
		if err := json.Unmarshal(val, &m); err != nil {
			return r, fmt.Errorf("%w: %w", errCorrupt, err)
		}
		r.LongTerm = &m
	}
	return r, nil
}
