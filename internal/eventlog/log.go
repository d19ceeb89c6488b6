// Package eventlog keeps the ordered, append-only record of ledger events.
// Consumers page through it by sequence number or block until new events arrive.
package eventlog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/goodnatureofminers/flightsurety-backend/internal/model"
)

// Log is an in-memory event log. Sequence numbers start at 1.
type Log struct {
	mu      sync.RWMutex
	events  []model.Event
	updated chan struct{}
	newID   func() uuid.UUID
}

// New returns an empty Log.
func New() *Log {
	return &Log{
		updated: make(chan struct{}),
		newID:   uuid.New,
	}
}

// Publish appends events, assigning IDs and sequence numbers, and wakes waiters.
func (l *Log) Publish(events ...model.Event) {
	if len(events) == 0 {
		return
	}
	l.mu.Lock()
	for _, e := range events {
		e.ID = l.newID()
		e.Seq = uint64(len(l.events)) + 1
		l.events = append(l.events, e)
	}
	close(l.updated)
	l.updated = make(chan struct{})
	l.mu.Unlock()
}

// LastSeq returns the sequence number of the newest event, or 0 when empty.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.events))
}

// Since returns up to limit events with a sequence number greater than seq.
// A non-positive limit returns all of them.
func (l *Log) Since(seq uint64, limit int) []model.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq >= uint64(len(l.events)) {
		return nil
	}
	tail := l.events[seq:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]model.Event, len(tail))
	copy(out, tail)
	return out
}

// Wait blocks until an event newer than seq exists or ctx is done.
func (l *Log) Wait(ctx context.Context, seq uint64) error {
	for {
		l.mu.RLock()
		if uint64(len(l.events)) > seq {
			l.mu.RUnlock()
			return nil
		}
		updated := l.updated
		l.mu.RUnlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-updated:
		}
	}
}

// Filter returns the events of the given type among events.
func Filter(events []model.Event, t model.EventType) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
