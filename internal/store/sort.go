package store

import (
	"sort"

	"github.com/rcliao/memori-store/internal/model"
)

// SortByImportance orders results by importance, then newest first.
func SortByImportance(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Memory(), results[j].Memory()
		if a.ImportanceScore != b.ImportanceScore {
			return a.ImportanceScore > b.ImportanceScore
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// SortByScore orders results by score, then importance. Ties keep their
// incoming order.
func SortByScore(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Memory().ImportanceScore > results[j].Memory().ImportanceScore
	})
}
