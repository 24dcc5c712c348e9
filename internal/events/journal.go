package events

import (
	"sync"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
)

// MemoryJournal is an in-memory, append-only event log. It backs the
// recent-events API endpoint and is the sink of choice in tests.
type MemoryJournal struct {
	mu  sync.RWMutex
	log []domain.Event
}

// NewMemoryJournal creates an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Emit appends ev to the journal.
func (j *MemoryJournal) Emit(ev domain.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.log = append(j.log, ev)
}

// Len returns the number of recorded events.
func (j *MemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.log)
}

// All returns a copy of every recorded event in emission order.
func (j *MemoryJournal) All() []domain.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]domain.Event, len(j.log))
	copy(out, j.log)
	return out
}

// Recent returns up to n most recent events, oldest first.
func (j *MemoryJournal) Recent(n int) []domain.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if n <= 0 || len(j.log) == 0 {
		return nil
	}
	if n > len(j.log) {
		n = len(j.log)
	}
	out := make([]domain.Event, n)
	copy(out, j.log[len(j.log)-n:])
	return out
}

// ByKind returns every recorded event of the given kind, oldest first.
func (j *MemoryJournal) ByKind(kind domain.EventKind) []domain.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []domain.Event
	for _, ev := range j.log {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

var _ Sink = (*MemoryJournal)(nil)
