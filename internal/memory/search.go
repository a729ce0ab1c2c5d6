package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// DefaultSearchLimit is used when SearchRequest.Limit is not positive.
const DefaultSearchLimit = 10

// SearchRequest scopes a search to one namespace.
type SearchRequest struct {
	Query     string
	Namespace string

	// Categories restricts results to these category_primary values.
	// Empty means any category.
	Categories []string

	Limit int
}

// Search retrieves short-term and long-term memories for a query.
//
// An empty query returns the most important recent memories, split evenly
// between the two kinds. Otherwise each kind is searched with the store's
// full-text index, falling back to a case-insensitive substring match when
// the index is missing or fails. Results are ordered by score, then
// importance, and truncated to the limit. Long-term hits have their access
// count bumped.
//
// Only connection failures and timeouts are returned as errors. No matches
// is an empty result.
func (e *Engine) Search(ctx context.Context, req SearchRequest) ([]model.SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return nil, err
	}

	q := store.Query{
		Namespace:  req.Namespace,
		Text:       strings.TrimSpace(req.Query),
		Categories: req.Categories,
		Limit:      limit,
		Now:        e.now(),
	}

	search := e.searchText
	if q.Text == "" {
		q.Limit = (limit + 1) / 2
		search = e.searchRecent
	}

	results, err := e.fanOut(ctx, b, q, search)
	if err != nil {
		return nil, err
	}

	store.SortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}

	e.touch(ctx, b, req.Namespace, results)
	return results, nil
}

type kindSearch func(ctx context.Context, b store.Backend, kind model.Kind, q store.Query) []model.SearchResult

// fanOut runs search for each memory kind on the worker pool and
// concatenates the results in kind order.
func (e *Engine) fanOut(ctx context.Context, b store.Backend, q store.Query, search kindSearch) ([]model.SearchResult, error) {
	parts := make([][]model.SearchResult, len(model.MemoryKinds))

	var wg sync.WaitGroup
	for i, kind := range model.MemoryKinds {
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			parts[i] = search(ctx, b, kind, q)
		})
		if err != nil {
			wg.Done()
			if errors.Is(err, ants.ErrPoolClosed) {
				wg.Wait()
				return nil, ErrClosed
			}
			parts[i] = search(ctx, b, kind, q)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}

	var results []model.SearchResult
	for _, p := range parts {
		results = append(results, p...)
	}
	return results, nil
}

func (e *Engine) searchRecent(ctx context.Context, b store.Backend, kind model.Kind, q store.Query) []model.SearchResult {
	results, err := b.Recent(ctx, kind, q)
	if err != nil {
		e.logger.Warn("recent memories failed", "kind", kind, "namespace", q.Namespace, "err", err)
		return nil
	}
	return results
}

func (e *Engine) searchText(ctx context.Context, b store.Backend, kind model.Kind, q store.Query) []model.SearchResult {
	results, err := b.TextSearch(ctx, kind, q)
	if err == nil {
		return results
	}
	if ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, store.ErrTextSearchUnsupported) {
		e.logger.Debug("text search unsupported, using substring match", "kind", kind)
	} else {
		e.logger.Debug("text search failed, using substring match", "kind", kind, "err", err)
	}

	results, err = b.SubstringSearch(ctx, kind, q)
	if err != nil {
		e.logger.Warn("substring search failed", "kind", kind, "namespace", q.Namespace, "err", err)
		return nil
	}
	return results
}

// touch records retrieval of the long-term results. Failures are logged.
func (e *Engine) touch(ctx context.Context, b store.Backend, ns string, results []model.SearchResult) {
	var ids []string
	for _, r := range results {
		if r.LongTerm != nil {
			ids = append(ids, r.LongTerm.MemoryID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := b.TouchLongTerm(ctx, ns, ids, e.now()); err != nil {
		e.logger.Debug("failed to update access counts", "namespace", ns, "err", err)
	}
}
