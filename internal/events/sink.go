// Package events carries ledger and pool events to external observers:
// an in-memory journal for queries and tests, a websocket hub for live
// subscribers, and a ClickHouse archive for analytics.
package events

import "github.com/ArcticSubmarine/smart-contracts/internal/domain"

// Sink receives every event emitted by the ledger and the swap pool.
// Emit must not fail the emitting operation; sinks that can fail record
// the error on their own side.
type Sink interface {
	Emit(ev domain.Event)
}

// Multi fans events out to several sinks in order.
type Multi []Sink

// Emit sends ev to every sink.
func (m Multi) Emit(ev domain.Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// Discard drops all events. Useful as a default when no observer is wired.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(domain.Event) {}
