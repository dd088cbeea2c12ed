package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetOnPut(t *testing.T) {
	type buffer struct{ data []int }

	p := New(
		func() *buffer { return &buffer{data: make([]int, 0, 8)} },
		func(b *buffer) { b.data = b.data[:0] },
	)

	b := p.Get()
	b.data = append(b.data, 1, 2, 3)
	p.Put(b)

	reused := p.Get()
	assert.Empty(t, reused.data)
	assert.GreaterOrEqual(t, p.Hits(), int64(2))
}

func TestGetValueIDBufferLength(t *testing.T) {
	buf := GetValueIDBuffer(100)
	assert.Len(t, *buf, 100)
	PutValueIDBuffer(buf)

	// A larger request than the default capacity still works.
	big := GetValueIDBuffer(100000)
	assert.Len(t, *big, 100000)
	PutValueIDBuffer(big)
}

func TestValueIDBufferReuse(t *testing.T) {
	buf := GetValueIDBuffer(16)
	for i := range *buf {
		(*buf)[i] = uint32(i)
	}
	PutValueIDBuffer(buf)

	again := GetValueIDBuffer(8)
	assert.Len(t, *again, 8)
	PutValueIDBuffer(again)
}
