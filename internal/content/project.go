package content

import (
	"fmt"
	"sort"
	"time"
)

// FilterAll disables status filtering.
const FilterAll = "all"

type SortKey string

const (
	SortDateDesc     SortKey = "date-desc"
	SortDateAsc      SortKey = "date-asc"
	SortProgressDesc SortKey = "progress-desc"
	SortProgressAsc  SortKey = "progress-asc"
)

// SortKeys lists the supported sort keys in display order.
var SortKeys = []SortKey{SortDateDesc, SortDateAsc, SortProgressDesc, SortProgressAsc}

// ParseSortKey validates a sort key from a query string.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Project returns the items whose status matches filter, ordered by key.
// The input slice is never modified. Items that compare equal keep their
// relative order, and an unrecognised key keeps the original order.
func Project(items []Item, filter string, key SortKey) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if filter == "" || filter == FilterAll || it.Status == filter {
			out = append(out, it)
		}
	}

	var less func(a, b Item) bool
	switch key {
	case SortDateDesc:
		less = func(a, b Item) bool { return parseDate(a.SortDate()).After(parseDate(b.SortDate())) }
	case SortDateAsc:
		less = func(a, b Item) bool { return parseDate(a.SortDate()).Before(parseDate(b.SortDate())) }
	case SortProgressDesc:
		less = func(a, b Item) bool { return a.Progress > b.Progress }
	case SortProgressAsc:
		less = func(a, b Item) bool { return a.Progress < b.Progress }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Statuses returns the distinct statuses of items in first-seen order.
func Statuses(items []Item) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		if it.Status == "" || seen[it.Status] {
			continue
		}
		seen[it.Status] = true
		out = append(out, it.Status)
	}
	return out
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02", "2006.01.02"}

// parseDate returns the zero time for empty or unparsable dates, which
// orders them as the oldest.
func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FindByID returns the item with id and whether it exists.
func FindByID(items []Item, id int) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// NextID is one more than the largest id in items, or 1 when items is empty.
func NextID(items []Item) int {
	max := 0
	for _, it := range items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}
