package audit

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Sink receives system-level audit events. Implementations must be safe for
// concurrent use.
type Sink interface {
	// Name identifies the sink in logs and health reporting.
	Name() string
	// Append records one event. Events are append-only; sinks never mutate
	// or reorder what they have already accepted.
	Append(ctx context.Context, event Event) error
}

// MultiSink fans each event out to several sinks concurrently. Every sink
// receives the event even when a sibling fails; Append returns the first
// error encountered.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks into one. A single sink is returned unwrapped.
func NewMultiSink(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return &MultiSink{sinks: sinks}
}

// Name identifies the sink in logs and health reporting.
func (m *MultiSink) Name() string { return "multi" }

// Append fans the event out to all sinks.
func (m *MultiSink) Append(ctx context.Context, event Event) error {
	var g errgroup.Group
	for _, s := range m.sinks {
		g.Go(func() error {
			return s.Append(ctx, event)
		})
	}
	return g.Wait()
}

// NoopSink discards all events. Useful for tests and for disabling the
// system-level pipeline entirely.
type NoopSink struct{}

// Name identifies the sink in logs and health reporting.
func (NoopSink) Name() string { return "noop" }

// Append discards the event.
func (NoopSink) Append(context.Context, Event) error { return nil }
