package pool

// Global pool for value-ID buffers. Attribute-vector recompression builds an
// uncompressed []uint32 per segment before fixed-width packing; reusing the
// backing arrays keeps the compaction pass allocation-flat across chunks.

const defaultValueIDCapacity = 4096

var valueIDPool = New(
	func() *[]uint32 {
		buf := make([]uint32, 0, defaultValueIDCapacity)
		return &buf
	},
	func(buf *[]uint32) { *buf = (*buf)[:0] },
)

// GetValueIDBuffer returns a value-ID buffer with length n. Contents are
// unspecified; callers must overwrite every element.
func GetValueIDBuffer(n int) *[]uint32 {
	buf := valueIDPool.Get()
	if cap(*buf) < n {
		*buf = make([]uint32, n)
	} else {
		*buf = (*buf)[:n]
	}
	return buf
}

// PutValueIDBuffer returns a buffer obtained from GetValueIDBuffer.
func PutValueIDBuffer(buf *[]uint32) {
	valueIDPool.Put(buf)
}
