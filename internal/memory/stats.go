package memory

import (
	"context"
	"errors"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// StatsOptions tunes GetStats.
type StatsOptions struct {
	// IncludeExpired counts expired short-term memories as active.
	IncludeExpired bool
}

// GetStats summarizes a namespace. Collections or storage metrics the store
// cannot report are left zero or omitted; only connection failures and
// timeouts are returned as errors.
func (e *Engine) GetStats(ctx context.Context, ns string, opts StatsOptions) (*model.Stats, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	b, err := e.backend(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	stats := &model.Stats{
		Namespace:  ns,
		ByCategory: map[string]int{},
	}

	per := make(map[model.Kind]store.KindStats, 3)
	for _, kind := range []model.Kind{model.KindChat, model.KindShortTerm, model.KindLongTerm} {
		ks, err := b.KindStats(ctx, ns, kind, now, opts.IncludeExpired)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, classify(err)
			}
			e.logger.Warn("collection stats unavailable", "kind", kind, "namespace", ns, "err", err)
			continue
		}
		per[kind] = ks
	}

	short, long := per[model.KindShortTerm], per[model.KindLongTerm]
	stats.ChatHistoryCount = per[model.KindChat].Count
	stats.ShortTermCount = short.Count
	stats.LongTermCount = long.Count
	stats.ExpiredShortTerm = short.Expired
	stats.AverageImportance = weightedAverage(short, long)
	for _, ks := range []store.KindStats{short, long} {
		for cat, n := range ks.ByCategory {
			stats.ByCategory[cat] += n
		}
	}

	if st, err := b.StorageStats(ctx); err == nil {
		stats.Storage = st
	} else {
		e.logger.Debug("storage stats omitted", "err", err)
	}
	return stats, nil
}

// weightedAverage combines per-collection averages by record count.
func weightedAverage(kinds ...store.KindStats) float64 {
	var sum float64
	var n int
	for _, ks := range kinds {
		sum += ks.AvgImportance * float64(ks.Count)
		n += ks.Count
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
