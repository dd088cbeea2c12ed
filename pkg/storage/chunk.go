package storage

import (
	"sync"

	"github.com/hig-dev/nimbus/pkg/errors"
)

// Chunk is an ordered set of segments, one per column. Segment replacement
// is atomic with respect to concurrent readers.
type Chunk struct {
	mu       sync.RWMutex
	segments []Segment
}

// NewChunk builds a chunk from one segment per column. All segments must
// have the same row count.
func NewChunk(segments []Segment) (*Chunk, error) {
	if len(segments) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "chunk needs at least one segment")
	}
	rows := segments[0].Size()
	for i, seg := range segments {
		if seg == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "segment %d is nil", i)
		}
		if seg.Size() != rows {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"segment %d has %d rows, expected %d", i, seg.Size(), rows)
		}
	}
	return &Chunk{segments: segments}, nil
}

// ColumnCount returns the number of segments.
func (c *Chunk) ColumnCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.segments)
}

// RowCount returns the number of rows.
func (c *Chunk) RowCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.segments[0].Size()
}

// Segment returns the segment of the given column.
func (c *Chunk) Segment(column ColumnID) Segment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.segments[column]
}

// ReplaceSegment atomically installs a new segment for the given column.
// The replacement must preserve the row count.
func (c *Chunk) ReplaceSegment(column ColumnID, segment Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int(column) >= len(c.segments) {
		return errors.Newf(errors.ErrorTypeNotFound, "column %d out of range", column)
	}
	if segment.Size() != c.segments[column].Size() {
		return errors.Newf(errors.ErrorTypeConflict,
			"replacement has %d rows, expected %d", segment.Size(), c.segments[column].Size())
	}

	c.segments[column] = segment
	return nil
}

// MemoryUsage returns the accounted byte footprint of all segments.
func (c *Chunk) MemoryUsage() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, seg := range c.segments {
		total += seg.MemoryUsage()
	}
	return total
}
