package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// TextSearch runs an FTS5 MATCH ranked by bm25, tie-broken by importance.
func (s *Store) TextSearch(ctx context.Context, kind model.Kind, q store.Query) ([]model.SearchResult, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	match := sanitizeFTS(q.Text)
	if match == "" {
		return nil, fmt.Errorf("%w: no text terms in %q", store.ErrInvalidQuery, q.Text)
	}
	fts := ftsTable(kind)

	where, args := memoryFilter(kind, q)
	where = append([]string{fts + " MATCH ?"}, where...)
	args = append([]interface{}{match}, args...)
	args = append(args, limitOf(q))

	query := fmt.Sprintf(`
		SELECT %s, bm25(%s) AS rank
		FROM %s
		JOIN %s m ON m.id = %s.rowid
		WHERE %s
		ORDER BY rank, m.importance_score DESC
		LIMIT ?`, columnsFor(kind), fts, fts, table, fts, strings.Join(where, " AND "))

	return s.queryResults(ctx, kind, model.StrategyText, query, args, true)
}

// SubstringSearch is the LIKE fallback over searchable_content and summary.
func (s *Store) SubstringSearch(ctx context.Context, kind model.Kind, q store.Query) ([]model.SearchResult, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(q.Text))) + "%"

	where, args := memoryFilter(kind, q)
	where = append(where, fmt.Sprintf(`(%[1]s(m.searchable_content) LIKE ? ESCAPE '\' OR %[1]s(m.summary) LIKE ? ESCAPE '\')`, foldFunc))
	args = append(args, pattern, pattern, limitOf(q))

	query := fmt.Sprintf(`
		SELECT %s FROM %s m
		WHERE %s
		ORDER BY m.importance_score DESC, m.created_at DESC
		LIMIT ?`, columnsFor(kind), table, strings.Join(where, " AND "))

	return s.queryResults(ctx, kind, model.StrategyRegexFallback, query, args, false)
}

// Recent returns memories by importance, then recency.
func (s *Store) Recent(ctx context.Context, kind model.Kind, q store.Query) ([]model.SearchResult, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	where, args := memoryFilter(kind, q)
	args = append(args, limitOf(q))

	query := fmt.Sprintf(`
		SELECT %s FROM %s m
		WHERE %s
		ORDER BY m.importance_score DESC, m.created_at DESC
		LIMIT ?`, columnsFor(kind), table, strings.Join(where, " AND "))

	return s.queryResults(ctx, kind, model.StrategyRecent, query, args, false)
}

func (s *Store) queryResults(ctx context.Context, kind model.Kind, strategy model.Strategy, query string, args []interface{}, ranked bool) ([]model.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		r := model.SearchResult{Kind: kind, Strategy: strategy}
		var rank float64
		var extra []interface{}
		if ranked {
			extra = append(extra, &rank)
		}
		if err := scanResult(rows, &r, extra...); err != nil {
			return nil, err
		}
		if ranked {
			// bm25 is negative; more negative is a better match.
			r.Score = -rank
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanResult(row scanner, r *model.SearchResult, extra ...interface{}) error {
	switch r.Kind {
	case model.KindShortTerm:
		m, err := scanShortTerm(row, extra...)
		if err != nil {
			return err
		}
		r.ShortTerm = &m
	case model.KindLongTerm:
		m, err := scanLongTerm(row, extra...)
		if err != nil {
			return err
		}
		r.LongTerm = &m
	default:
		return fmt.Errorf("%w: %q", model.ErrInvalidKind, r.Kind)
	}
	return nil
}

// memoryFilter builds the namespace, category and expiry predicates.
func memoryFilter(kind model.Kind, q store.Query) ([]string, []interface{}) {
	where := []string{"m.namespace = ?"}
	args := []interface{}{q.Namespace}

	if len(q.Categories) > 0 {
		where = append(where, "m.category_primary IN ("+placeholders(len(q.Categories))+")")
		for _, c := range q.Categories {
			args = append(args, c)
		}
	}
	if kind == model.KindShortTerm {
		where = append(where, "(m.expires_at IS NULL OR m.expires_at > ?)")
		args = append(args, store.FormatTime(q.Now))
	}
	return where, args
}

func columnsFor(kind model.Kind) string {
	if kind == model.KindShortTerm {
		return shortTermColumns
	}
	return longTermColumns
}

func limitOf(q store.Query) int {
	if q.Limit <= 0 {
		return 10
	}
	return q.Limit
}

// sanitizeFTS quotes each term so user input cannot inject FTS5 syntax, and
// ORs the terms so any of them may match.
func sanitizeFTS(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '(', ')', '*', '^', ':', '{', '}', '+', '-':
			return ' '
		default:
			return r
		}
	}, query)

	words := strings.Fields(cleaned)
	for i, w := range words {
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " OR ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
