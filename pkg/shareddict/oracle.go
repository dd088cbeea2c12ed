// Package shareddict implements the shared-dictionary compaction pass:
// per column, it groups chunks whose dictionaries are similar enough under
// the Jaccard index and rewrites their segments against one shared
// dictionary, shrinking the total dictionary footprint without widening
// any attribute vector or changing visible table contents.
package shareddict

import (
	"math"

	"github.com/hig-dev/nimbus/pkg/storage"
)

// UnionSorted merges two sorted distinct slices into a new sorted distinct
// slice.
func UnionSorted[T storage.Value](a, b []T) []T {
	result := make([]T, 0, max(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			result = append(result, a[i])
			i++
		case b[j] < a[i]:
			result = append(result, b[j])
			j++
		default:
			result = append(result, a[i])
			i++
			j++
		}
	}
	result = append(result, a[i:]...)
	result = append(result, b[j:]...)
	return result
}

// Jaccard returns intersection/union, or 0 for two empty sets.
// The intersection size is derived as |A|+|B|-|A∪B|, so callers only need
// the union produced by the linear merge.
func Jaccard(unionSize, intersectionSize int) float64 {
	if unionSize == 0 {
		return 0
	}
	return float64(intersectionSize) / float64(unionSize)
}

// WidthBucket returns the attribute-vector element width in bits (8, 16 or
// 32) needed for a dictionary of the given size, NULL sentinel included.
func WidthBucket(dictionarySize int) int {
	switch {
	case dictionarySize <= math.MaxUint8:
		return 8
	case dictionarySize <= math.MaxUint16:
		return 16
	default:
		return 32
	}
}

// ShouldMerge decides admissibility of a candidate shared dictionary: the
// Jaccard index must reach the threshold and no participating segment may
// end up in a wider attribute-vector bucket. memberDictionarySizes holds
// the dictionary sizes of every segment that would reference the union,
// the current segment included.
func ShouldMerge(threshold, jaccardIndex float64, unionSize int, memberDictionarySizes []int) bool {
	if jaccardIndex < threshold {
		return false
	}
	unionBucket := WidthBucket(unionSize)
	for _, size := range memberDictionarySizes {
		if WidthBucket(size) != unionBucket {
			return false
		}
	}
	return true
}
