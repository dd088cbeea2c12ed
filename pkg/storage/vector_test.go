package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompressVectorWidthSelection(t *testing.T) {
	ids := []uint32{0, 1, 2}

	assert.Equal(t, 1, CompressVector(ids, 255).WidthBytes())
	assert.Equal(t, 2, CompressVector(ids, 256).WidthBytes())
	assert.Equal(t, 2, CompressVector(ids, 65535).WidthBytes())
	assert.Equal(t, 4, CompressVector(ids, 65536).WidthBytes())
}

func TestCompressVectorRoundTrip(t *testing.T) {
	ids := []uint32{0, 70000, 3, 70000, 12}

	vector := CompressVector(ids, 70000)
	assert.Equal(t, len(ids), vector.Len())
	for i, want := range ids {
		assert.Equal(t, want, vector.Get(i))
	}
}

func TestCompressVectorCopiesInput(t *testing.T) {
	ids := []uint32{1, 2, 3}
	vector := CompressVector(ids, 100000)

	ids[0] = 99
	assert.Equal(t, uint32(1), vector.Get(0))
}

func TestAttributeVectorByteSize(t *testing.T) {
	ids := make([]uint32, 10)

	assert.Equal(t, int64(10), CompressVector(ids, 10).ByteSize())
	assert.Equal(t, int64(20), CompressVector(ids, 1000).ByteSize())
	assert.Equal(t, int64(40), CompressVector(ids, 100000).ByteSize())
}
