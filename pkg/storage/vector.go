package storage

import (
	"math"
)

// AttributeVector is a fixed-width sequence of value IDs referencing a
// dictionary. IDs lie in [0, dictionary size]; the value equal to the
// dictionary size is the NULL sentinel.
type AttributeVector interface {
	// Len returns the number of value IDs.
	Len() int
	// Get returns the value ID at position i.
	Get(i int) uint32
	// WidthBytes returns the bytes per value ID (1, 2 or 4).
	WidthBytes() int
	// ByteSize returns the total memory footprint of the IDs.
	ByteSize() int64
}

// CompressVector packs value IDs into the narrowest fixed-width vector able
// to represent maxValue. maxValue must account for the NULL sentinel, i.e.
// callers pass the dictionary size.
func CompressVector(ids []uint32, maxValue uint32) AttributeVector {
	switch {
	case maxValue <= math.MaxUint8:
		packed := make([]uint8, len(ids))
		for i, id := range ids {
			packed[i] = uint8(id)
		}
		return vector8(packed)
	case maxValue <= math.MaxUint16:
		packed := make([]uint16, len(ids))
		for i, id := range ids {
			packed[i] = uint16(id)
		}
		return vector16(packed)
	default:
		packed := make([]uint32, len(ids))
		copy(packed, ids)
		return vector32(packed)
	}
}

type vector8 []uint8

func (v vector8) Len() int { return len(v) }
func (v vector8) Get(i int) uint32 { return uint32(v[i]) }
func (v vector8) WidthBytes() int { return 1 }
func (v vector8) ByteSize() int64 { return int64(len(v)) }

type vector16 []uint16

func (v vector16) Len() int { return len(v) }
func (v vector16) Get(i int) uint32 { return uint32(v[i]) }
func (v vector16) WidthBytes() int { return 2 }
func (v vector16) ByteSize() int64 { return int64(len(v)) * 2 }

type vector32 []uint32

func (v vector32) Len() int { return len(v) }
func (v vector32) Get(i int) uint32 { return v[i] }
func (v vector32) WidthBytes() int { return 4 }
func (v vector32) ByteSize() int64 { return int64(len(v)) * 4 }
