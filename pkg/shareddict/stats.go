package shareddict

// Stats aggregates the outcome of one compaction pass across all columns.
// The pass is single-threaded per column; the driver owns the instance and
// resets it at the start of every pass.
type Stats struct {
	// TotalBytesSaved is the dictionary bytes released by all merges.
	TotalBytesSaved uint64
	// TotalPreviousBytes is the footprint of every scanned segment before
	// the pass.
	TotalPreviousBytes uint64
	// ModifiedPreviousBytes is the previous footprint of the newly captured
	// segments of every executed plan; already-shared members are not
	// included.
	ModifiedPreviousBytes uint64
	// NumMergedDictionaries counts the member segments of every plan this
	// pass executed, including already-shared members that keep their
	// dictionary.
	NumMergedDictionaries uint32
	// NumSharedDictionaries counts shared dictionaries produced by this
	// pass.
	NumSharedDictionaries uint32
	// NumExistingMergedDictionaries counts segments that already used
	// dictionary sharing before the pass.
	NumExistingMergedDictionaries uint32
	// NumExistingSharedDictionaries counts distinct pre-existing shared
	// dictionaries.
	NumExistingSharedDictionaries uint32
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	*s = Stats{}
}
