package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

// KindStats aggregates one collection for a namespace by scanning it.
func (s *Store) KindStats(ctx context.Context, ns string, kind model.Kind, now time.Time, includeExpired bool) (store.KindStats, error) {
	st := store.KindStats{ByCategory: map[string]int{}}
	prefix, err := prefixFor(kind)
	if err != nil {
		return st, err
	}

	var total float64
	err = s.scan(ctx, makeNamespacePrefix(prefix, ns), func(val []byte) error {
		if kind == model.KindChat {
			st.Count++
			return nil
		}

		var m model.Memory
		if kind == model.KindShortTerm {
			var sm model.ShortTermMemory
			if err := json.Unmarshal(val, &sm); err != nil {
				return fmt.Errorf("%w: %w", errCorrupt, err)
			}
			if sm.Expired(now) {
				st.Expired++
				if !includeExpired {
					return nil
				}
			}
			m = sm.Memory
		} else if err := json.Unmarshal(val, &m); err != nil {
			return fmt.Errorf("%w: %w", errCorrupt, err)
		}

		st.Count++
		total += m.ImportanceScore
		cat := m.CategoryPrimary
		if cat == "" {
			cat = "unknown"
		}
		st.ByCategory[cat]++
		return nil
	})
	if err != nil {
		return st, fmt.Errorf("scan %s: %w", kind, err)
	}
	if st.Count > 0 && kind != model.KindChat {
		st.AvgImportance = total / float64(st.Count)
	}
	return st, nil
}

// StorageStats reports the LSM tree and value log sizes. Badger keeps no
// secondary indexes, so the uniqueness keys are the index bytes and are
// folded into the LSM figure.
func (s *Store) StorageStats(ctx context.Context) (*model.StorageStats, error) {
	if s.db.IsClosed() {
		return nil, fmt.Errorf("%w: %w", store.ErrStatsUnavailable, errClosed)
	}
	lsm, vlog := s.db.Size()
	return &model.StorageStats{
		StorageBytes: lsm + vlog,
		DataBytes:    vlog,
		IndexBytes:   lsm,
		Collections:  3,
	}, nil
}
