package storage

import (
	"sort"
	"sync"

	"github.com/hig-dev/nimbus/pkg/errors"
)

// Manager owns all tables of the database.
type Manager struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewManager creates an empty storage manager.
func NewManager() *Manager {
	return &Manager{tables: make(map[string]*Table)}
}

// AddTable registers a table under a unique name.
func (m *Manager) AddTable(name string, table *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tables[name]; exists {
		return errors.Newf(errors.ErrorTypeConflict, "table %q already exists", name)
	}
	m.tables[name] = table
	return nil
}

// HasTable reports whether a table is registered under name.
func (m *Manager) HasTable(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.tables[name]
	return exists
}

// Table returns the table registered under name.
func (m *Manager) Table(name string) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	table, exists := m.tables[name]
	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "table %q not found", name)
	}
	return table, nil
}

// TableNames returns all table names sorted ascending.
func (m *Manager) TableNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalMemoryUsage returns the accounted byte footprint of all tables.
func (m *Manager) TotalMemoryUsage() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, table := range m.tables {
		total += table.MemoryUsage()
	}
	return total
}
