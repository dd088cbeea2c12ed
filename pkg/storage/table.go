package storage

import (
	"sync"

	"github.com/hig-dev/nimbus/pkg/errors"
)

// Table is an ordered sequence of chunks over a fixed column layout.
// A nil chunk slot marks a physically deleted chunk.
type Table struct {
	mu          sync.RWMutex
	definitions []ColumnDefinition
	chunks      []*Chunk
}

// NewTable creates an empty table with the given column definitions.
func NewTable(definitions []ColumnDefinition) (*Table, error) {
	if len(definitions) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "table needs at least one column")
	}
	defs := make([]ColumnDefinition, len(definitions))
	copy(defs, definitions)
	return &Table{definitions: defs}, nil
}

// Definitions returns the column definitions in definition order.
func (t *Table) Definitions() []ColumnDefinition {
	return t.definitions
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return len(t.definitions)
}

// AppendChunk adds a chunk. Its segment count must match the column count.
func (t *Table) AppendChunk(chunk *Chunk) error {
	if chunk.ColumnCount() != len(t.definitions) {
		return errors.Newf(errors.ErrorTypeConflict,
			"chunk has %d segments, table has %d columns", chunk.ColumnCount(), len(t.definitions))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks = append(t.chunks, chunk)
	return nil
}

// ChunkCount returns the number of chunk slots, including deleted ones.
func (t *Table) ChunkCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chunks)
}

// Chunk returns the chunk with the given ID, or nil if it was deleted.
func (t *Table) Chunk(id ChunkID) *Chunk {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) >= len(t.chunks) {
		return nil
	}
	return t.chunks[id]
}

// DeleteChunk marks a chunk slot as physically deleted.
func (t *Table) DeleteChunk(id ChunkID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) >= len(t.chunks) {
		return errors.Newf(errors.ErrorTypeNotFound, "chunk %d out of range", id)
	}
	t.chunks[id] = nil
	return nil
}

// RowCount returns the total rows across live chunks.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var rows int
	for _, chunk := range t.chunks {
		if chunk != nil {
			rows += chunk.RowCount()
		}
	}
	return rows
}

// MemoryUsage returns the accounted byte footprint of all live chunks.
func (t *Table) MemoryUsage() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total int64
	for _, chunk := range t.chunks {
		if chunk != nil {
			total += chunk.MemoryUsage()
		}
	}
	return total
}
