package core

import "sync"

// DefaultMemorySize bounds the classification memory
const DefaultMemorySize = 100

// ClassificationMemory is a fixed-size FIFO of recent classifications
type ClassificationMemory struct {
	mu      sync.Mutex
	entries []MemoryEntry
	next    int
	full    bool
}

// NewClassificationMemory creates a memory holding at most size entries
func NewClassificationMemory(size int) *ClassificationMemory {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &ClassificationMemory{entries: make([]MemoryEntry, size)}
}

// Record adds an entry, evicting the oldest when full
func (m *ClassificationMemory) Record(e MemoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
}

// Len returns the number of stored entries
func (m *ClassificationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return len(m.entries)
	}
	return m.next
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (m *ClassificationMemory) Recent(n int) []MemoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.next
	if m.full {
		size = len(m.entries)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]MemoryEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out
}
