package storage

import (
	"slices"
)

// Dictionary is an immutable sorted sequence of distinct column values.
// Dictionaries are reference-shared: multiple segments may hold the same
// Dictionary, and nothing may mutate it after construction.
type Dictionary[T Value] struct {
	values []T
}

// NewDictionary builds a dictionary from arbitrary values, sorting and
// de-duplicating them. The input slice is not retained.
func NewDictionary[T Value](values []T) *Dictionary[T] {
	sorted := make([]T, len(values))
	copy(sorted, values)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	return &Dictionary[T]{values: slices.Clip(sorted)}
}

// NewDictionaryFromSorted wraps an already sorted, distinct slice without
// copying. The caller transfers ownership of the slice.
func NewDictionaryFromSorted[T Value](sorted []T) *Dictionary[T] {
	return &Dictionary[T]{values: sorted}
}

// Size returns the number of distinct values.
func (d *Dictionary[T]) Size() int {
	return len(d.values)
}

// Values returns the underlying sorted values. Callers must not modify
// the returned slice.
func (d *Dictionary[T]) Values() []T {
	return d.values
}

// Index returns the position of value in the dictionary via binary search.
func (d *Dictionary[T]) Index(value T) (int, bool) {
	return slices.BinarySearch(d.values, value)
}

// Equal reports whether two dictionaries hold the same values.
func (d *Dictionary[T]) Equal(other *Dictionary[T]) bool {
	if d == other {
		return true
	}
	return slices.Equal(d.values, other.values)
}

// ByteSize returns the accounted memory footprint of the dictionary.
// Fixed-width element types cost size × sizeof(T); strings cost their
// length plus a per-string header. The same accessor is used on both sides
// of a rewrite so savings accounting stays consistent.
func (d *Dictionary[T]) ByteSize() int64 {
	var total int64
	for _, v := range d.values {
		total += elementByteSize(v)
	}
	return total
}
