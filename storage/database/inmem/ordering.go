package inmemdb

import (
	"sort"

	"github.com/trezcool/masomo-lms/core"
)

// sortBy sorts items by ordering, falling back to defaultOrdering, then to the id.
// cmp compares two items on a field and returns -1, 0 or 1.
func sortBy[T any](
	items []T,
	ordering, defaultOrdering []core.DBOrdering,
	cmp func(a, b T, field string) int,
	id func(item T) string,
) {
	if len(ordering) == 0 {
		ordering = defaultOrdering
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			if c := cmp(items[i], items[j], ord.Field); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return id(items[i]) < id(items[j])
	})
}
