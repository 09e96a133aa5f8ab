package ordering

import (
	"errors"
	"fmt"
	"sort"
)

// Common errors for ordering operations.
var (
	ErrOutOfRange = errors.New("index out of range")
	ErrNoMove     = errors.New("source and destination index are equal")
	ErrDuplicate  = errors.New("duplicate sort order")
	ErrGap        = errors.New("sort orders are not dense")
)

// Item is the ordering view of an entity.
type Item struct {
	ID        string
	SortOrder int
}

// Sorted returns a copy of items ascending by SortOrder. Ties, which are
// impossible while the density invariant holds, break by ID so that reads
// stay deterministic even over inconsistent data.
func Sorted(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Next returns the SortOrder an appended item receives.
func Next(items []Item) int {
	return len(items)
}

// Reorder moves the item at position from to position to and renumbers
// every item to its index in the new list. Positions refer to the list
// sorted by Sorted.
//
// Returns ErrNoMove when from == to and ErrOutOfRange when either index
// is outside [0, len(items)).
func Reorder(items []Item, from, to int) ([]Item, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("reorder %d -> %d in %d items: %w", from, to, n, ErrOutOfRange)
	}
	if from == to {
		return nil, fmt.Errorf("reorder %d -> %d: %w", from, to, ErrNoMove)
	}

	list := Sorted(items)
	moved := list[from]
	list = append(list[:from], list[from+1:]...)

	out := make([]Item, 0, n)
	out = append(out, list[:to]...)
	out = append(out, moved)
	out = append(out, list[to:]...)

	return renumber(out), nil
}

// Compact renumbers items densely while preserving their relative order.
// Used after a removal leaves a gap.
func Compact(items []Item) []Item {
	return renumber(Sorted(items))
}

// InsertAt places id at position at. Every existing item with
// SortOrder >= at is shifted up by one first. Valid positions are
// 0 through len(items) inclusive; len(items) appends.
//
// The existing items must already be dense.
func InsertAt(items []Item, id string, at int) ([]Item, error) {
	n := len(items)
	if at < 0 || at > n {
		return nil, fmt.Errorf("insert at %d in %d items: %w", at, n, ErrOutOfRange)
	}

	out := make([]Item, 0, n+1)
	for _, it := range Sorted(items) {
		if it.SortOrder >= at {
			it.SortOrder++
		}
		out = append(out, it)
	}
	out = append(out, Item{ID: id, SortOrder: at})
	return Sorted(out), nil
}

// Remove drops the item with the given id and compacts the rest.
// Reports false if id is absent.
func Remove(items []Item, id string) ([]Item, bool) {
	out := make([]Item, 0, len(items))
	found := false
	for _, it := range items {
		if it.ID == id {
			found = true
			continue
		}
		out = append(out, it)
	}
	if !found {
		return Compact(items), false
	}
	return Compact(out), true
}

// Check verifies that the SortOrder values are exactly {0, ..., N-1}.
func Check(items []Item) error {
	seen := make(map[int]string, len(items))
	for _, it := range items {
		if other, dup := seen[it.SortOrder]; dup {
			return fmt.Errorf("%q and %q share %d: %w", other, it.ID, it.SortOrder, ErrDuplicate)
		}
		seen[it.SortOrder] = it.ID
	}
	for i := range items {
		if _, ok := seen[i]; !ok {
			return fmt.Errorf("missing %d of %d: %w", i, len(items), ErrGap)
		}
	}
	return nil
}

// IDs returns the item ids in slice order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func renumber(list []Item) []Item {
	for i := range list {
		list[i].SortOrder = i
	}
	return list
}
