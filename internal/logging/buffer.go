package logging

import (
	"sync"
	"time"
)

// LogEntry is one captured log record, in the shape the API serves.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent log entries in a fixed-capacity
// ring, evicting the oldest on overflow. Safe for concurrent use.
type RingBuffer struct {
	mu      sync.RWMutex
	slots   []LogEntry
	next    int
	wrapped bool
}

// NewRingBuffer creates a buffer holding up to capacity entries.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{slots: make([]LogEntry, capacity)}
}

// Write stores an entry, evicting the oldest once the buffer is full.
func (b *RingBuffer) Write(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.slots[b.next] = entry
	b.next++
	if b.next == len(b.slots) {
		b.next = 0
		b.wrapped = true
	}
}

// ReadAll returns the stored entries, oldest first.
func (b *RingBuffer) ReadAll() []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.wrapped {
		if b.next == 0 {
			return nil
		}
		out := make([]LogEntry, b.next)
		copy(out, b.slots[:b.next])
		return out
	}

	out := make([]LogEntry, 0, len(b.slots))
	out = append(out, b.slots[b.next:]...)
	out = append(out, b.slots[:b.next]...)
	return out
}

// Count returns how many entries are currently stored.
func (b *RingBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.wrapped {
		return len(b.slots)
	}
	return b.next
}
