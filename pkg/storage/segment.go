package storage

// Segment is one column's worth of data inside a chunk.
type Segment interface {
	// Size returns the row count.
	Size() int
	// MemoryUsage returns the accounted byte footprint of the segment.
	MemoryUsage() int64
	// DataType returns the element type of the segment.
	DataType() DataType
}

// DictionarySegment stores a column chunk as a shared, immutable dictionary
// plus a fixed-width attribute vector of value IDs. The ID equal to the
// dictionary size encodes NULL.
type DictionarySegment[T Value] struct {
	dictionary       *Dictionary[T]
	attributeVector  AttributeVector
	sharedDictionary bool
}

// NewDictionarySegment assembles a segment from a dictionary and a matching
// attribute vector. sharedDictionary marks segments whose dictionary is
// referenced by other segments of the same column.
func NewDictionarySegment[T Value](dict *Dictionary[T], av AttributeVector, sharedDictionary bool) *DictionarySegment[T] {
	return &DictionarySegment[T]{
		dictionary:       dict,
		attributeVector:  av,
		sharedDictionary: sharedDictionary,
	}
}

// Dictionary returns the segment's dictionary. The returned value is shared
// and must not be modified.
func (s *DictionarySegment[T]) Dictionary() *Dictionary[T] {
	return s.dictionary
}

// AttributeVector returns the fixed-width value-ID vector.
func (s *DictionarySegment[T]) AttributeVector() AttributeVector {
	return s.attributeVector
}

// UsesSharedDictionary reports whether the dictionary is shared with other
// segments of the column.
func (s *DictionarySegment[T]) UsesSharedDictionary() bool {
	return s.sharedDictionary
}

// NullValueID returns the sentinel ID encoding NULL.
func (s *DictionarySegment[T]) NullValueID() uint32 {
	return uint32(s.dictionary.Size())
}

// GetTypedValue returns the value at row, or ok=false for NULL.
func (s *DictionarySegment[T]) GetTypedValue(row int) (T, bool) {
	id := s.attributeVector.Get(row)
	if id == s.NullValueID() {
		var zero T
		return zero, false
	}
	return s.dictionary.values[id], true
}

// Size returns the row count.
func (s *DictionarySegment[T]) Size() int {
	return s.attributeVector.Len()
}

// MemoryUsage returns dictionary bytes plus attribute-vector bytes. Shared
// dictionaries are charged to every segment referencing them, mirroring the
// per-segment accounting the pass reports against.
func (s *DictionarySegment[T]) MemoryUsage() int64 {
	return s.dictionary.ByteSize() + s.attributeVector.ByteSize()
}

// DataType returns the element type of the segment.
func (s *DictionarySegment[T]) DataType() DataType {
	return dataTypeOf[T]()
}

// ValueSegment stores a column chunk as plain values with a NULL mask.
// The compaction pass skips these; they exist for freshly ingested data
// and for columns whose cardinality makes dictionary encoding pointless.
type ValueSegment[T Value] struct {
	values []T
	nulls  []bool
}

// NewValueSegment builds an unencoded segment. nulls may be nil when the
// column has no NULLs; otherwise it must have the same length as values.
func NewValueSegment[T Value](values []T, nulls []bool) *ValueSegment[T] {
	return &ValueSegment[T]{values: values, nulls: nulls}
}

// GetTypedValue returns the value at row, or ok=false for NULL.
func (s *ValueSegment[T]) GetTypedValue(row int) (T, bool) {
	if s.nulls != nil && s.nulls[row] {
		var zero T
		return zero, false
	}
	return s.values[row], true
}

// Size returns the row count.
func (s *ValueSegment[T]) Size() int {
	return len(s.values)
}

// MemoryUsage returns the accounted byte footprint of values and NULL mask.
func (s *ValueSegment[T]) MemoryUsage() int64 {
	var total int64
	for _, v := range s.values {
		total += elementByteSize(v)
	}
	total += int64(len(s.nulls))
	return total
}

// DataType returns the element type of the segment.
func (s *ValueSegment[T]) DataType() DataType {
	return dataTypeOf[T]()
}
