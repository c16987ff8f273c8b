package engine

import (
	"sync"

	"github.com/user/meshwatch/internal/model"
)

// Sink receives run events. Delivery is fire-and-forget: implementations
// must not block the batch runner and no acknowledgment is expected.
type Sink interface {
	Progress(ev model.ProgressEvent)
	Completed(kind model.Kind, state model.RunState)
	RunError(kind model.Kind, msg string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Progress(model.ProgressEvent)         {}
func (NopSink) Completed(model.Kind, model.RunState) {}
func (NopSink) RunError(model.Kind, string)          {}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Progress(ev model.ProgressEvent) {
	for _, s := range m {
		s.Progress(ev)
	}
}

func (m MultiSink) Completed(kind model.Kind, state model.RunState) {
	for _, s := range m {
		s.Completed(kind, state)
	}
}

func (m MultiSink) RunError(kind model.Kind, msg string) {
	for _, s := range m {
		s.RunError(kind, msg)
	}
}

// feedCapacity bounds how many device events a feed retains per kind; one
// full roster pass fits comfortably.
const feedCapacity = 64

// Feed is a Sink retaining each kind's recent events in memory so polling
// consumers (the web layer) can catch up without a persistent connection.
type Feed struct {
	mu     sync.Mutex
	events map[model.Kind][]model.ProgressEvent
	errs   map[model.Kind]string
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		events: make(map[model.Kind][]model.ProgressEvent),
		errs:   make(map[model.Kind]string),
	}
}

// Progress appends an event to the kind's ring, evicting the oldest entry
// once the ring is full.
func (f *Feed) Progress(ev model.ProgressEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ring := append(f.events[ev.Kind], ev)
	if len(ring) > feedCapacity {
		ring = ring[len(ring)-feedCapacity:]
	}
	f.events[ev.Kind] = ring
}

// Completed keeps the ring intact so a finished run's table stays readable;
// the engine resets the feed when the next run of the kind is admitted.
func (f *Feed) Completed(kind model.Kind, _ model.RunState) {}

// RunError records the kind's most recent run error.
func (f *Feed) RunError(kind model.Kind, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[kind] = msg
}

// Events returns a copy of the kind's retained events.
func (f *Feed) Events(kind model.Kind) []model.ProgressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.ProgressEvent, len(f.events[kind]))
	copy(out, f.events[kind])
	return out
}

// LastError returns the kind's most recent run error, if any.
func (f *Feed) LastError(kind model.Kind) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[kind]
}

// Reset clears the kind's retained events, typically on a new run.
func (f *Feed) Reset(kind model.Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, kind)
	delete(f.errs, kind)
}
