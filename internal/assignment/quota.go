package assignment

import (
	"fmt"
	"math"
	"sort"
)

// Distribute converts a percentage weight map and a total question count
// into exact per-category integer counts using largest-remainder
// apportionment: each category gets the floor of its real-valued share,
// then the leftover units go one at a time to the categories with the
// largest fractional remainders. Ties keep the canonical category order.
//
// The returned counts are non-negative and sum exactly to total. A
// zero-weight category floors to 0 but can still pick up a surplus unit
// when the shortfall exceeds the number of categories with a positive
// remainder; that matches the observed product behavior and is kept.
func Distribute(weights map[Category]int, total int) (map[Category]int, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: total %d", ErrInvalidInput, total)
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: empty weight map", ErrInvalidInput)
	}

	type entry struct {
		category  Category
		remainder float64
	}

	counts := make(map[Category]int, len(weights))
	entries := make([]entry, 0, len(weights))
	assigned := 0

	// Iterate in canonical order so equal remainders break ties the same
	// way every run.
	for _, c := range Categories() {
		pct, ok := weights[c]
		if !ok {
			continue
		}
		share := float64(pct) / 100.0 * float64(total)
		floor := int(math.Floor(share))
		counts[c] = floor
		assigned += floor
		entries = append(entries, entry{category: c, remainder: share - float64(floor)})
	}
	// Weight maps may carry categories outside the canonical set; append
	// them after in name order so repeated runs stay identical.
	extras := make([]Category, 0)
	for c := range weights {
		if !c.Valid() {
			extras = append(extras, c)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })
	for _, c := range extras {
		share := float64(weights[c]) / 100.0 * float64(total)
		floor := int(math.Floor(share))
		counts[c] = floor
		assigned += floor
		entries = append(entries, entry{category: c, remainder: share - float64(floor)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].remainder > entries[j].remainder
	})

	for i := 0; i < total-assigned; i++ {
		counts[entries[i%len(entries)].category]++
	}
	return counts, nil
}
