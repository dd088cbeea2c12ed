package storage

// EncodeValues dictionary-encodes a raw column chunk. nulls may be nil;
// otherwise nulls[i] marks row i as NULL. NULL rows receive the sentinel ID
// equal to the dictionary size.
func EncodeValues[T Value](values []T, nulls []bool) *DictionarySegment[T] {
	distinct := make([]T, 0, len(values))
	for i, v := range values {
		if nulls != nil && nulls[i] {
			continue
		}
		distinct = append(distinct, v)
	}
	dict := NewDictionary(distinct)

	sentinel := uint32(dict.Size())
	ids := make([]uint32, len(values))
	for i, v := range values {
		if nulls != nil && nulls[i] {
			ids[i] = sentinel
			continue
		}
		idx, _ := dict.Index(v)
		ids[i] = uint32(idx)
	}

	return NewDictionarySegment(dict, CompressVector(ids, sentinel), false)
}

// EncodeValueSegment converts an unencoded segment into a dictionary
// segment with identical decoded contents.
func EncodeValueSegment[T Value](seg *ValueSegment[T]) *DictionarySegment[T] {
	return EncodeValues(seg.values, seg.nulls)
}
