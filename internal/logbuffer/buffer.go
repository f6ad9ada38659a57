package logbuffer

import (
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCapacity is used when New is given a non-positive size
	DefaultCapacity = 1000
	// MaxMessageLen bounds a single stored message; longer ones are cut with "..."
	MaxMessageLen = 2048
)

// Entry is one line captured from the process logger.
type Entry struct {
	Time     time.Time `json:"time"`
	Level    string    `json:"level"`
	Message  string    `json:"message"`
	Caller   string    `json:"caller"`
	Function string    `json:"function"`
}

// Ring keeps the most recent entries in a fixed-size circular slice.
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	size    int
}

// New returns a Ring holding at most capacity entries.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{entries: make([]Entry, capacity)}
}

// Add stores e, overwriting the oldest entry once the ring is full.
func (r *Ring) Add(e Entry) {
	if len(e.Message) > MaxMessageLen {
		e.Message = e.Message[:MaxMessageLen-3] + "..."
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

// collect walks the ring oldest-first and keeps entries accepted by keep.
func (r *Ring) collect(keep func(Entry) bool) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return nil
	}

	start := 0
	if r.size == len(r.entries) {
		start = r.next
	}

	out := make([]Entry, 0, r.size)
	for i := 0; i < r.size; i++ {
		e := r.entries[(start+i)%len(r.entries)]
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Since returns entries at or after t, oldest first.
func (r *Ring) Since(t time.Time) []Entry {
	return r.collect(func(e Entry) bool { return !e.Time.Before(t) })
}

// All returns every stored entry, oldest first.
func (r *Ring) All() []Entry {
	return r.collect(func(Entry) bool { return true })
}

// Search returns entries whose message contains substr. The crack controller
// prefixes its messages with the task id, so this doubles as a per-task filter.
func (r *Ring) Search(substr string) []Entry {
	return r.collect(func(e Entry) bool { return strings.Contains(e.Message, substr) })
}

// Reset drops all entries.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next = 0
	r.size = 0
}

// Len reports how many entries are stored.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap reports the ring capacity.
func (r *Ring) Cap() int {
	return len(r.entries)
}
