package aggregate

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lemmywalk/pkg/models"
)

// defaultTag is the root collation, used when no locale is configured
var defaultTag = language.Und

// CompareFunc orders two items, returning <0, 0 or >0.
type CompareFunc[T any] func(a, b T) int

// SortKeyCollation compares items by SortKey using a case-insensitive,
// locale-aware collation for tag.
func SortKeyCollation[T models.Item](tag language.Tag) func() CompareFunc[T] {
	return func() CompareFunc[T] {
		// a collator keeps internal buffers, so each sort gets its own
		col := collate.New(tag, collate.IgnoreCase)
		return func(a, b T) int {
			return col.CompareString(a.SortKey(), b.SortKey())
		}
	}
}

// Dedup keeps the first occurrence of every ItemID, preserving order.
func Dedup[T models.Item](items []T) []T {
	seen := make(map[int64]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ItemID()]; dup {
			continue
		}
		seen[it.ItemID()] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Normalize deduplicates items and stable-sorts them with cmp. The input
// slice is left untouched.
func Normalize[T models.Item](items []T, cmp CompareFunc[T]) []T {
	out := Dedup(items)
	slices.SortStableFunc(out, cmp)
	return out
}
