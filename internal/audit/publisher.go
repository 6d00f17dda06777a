package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "github.com/markcoleman/Aggregator-the-agitator/pkg/domain-errors"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/requestcontext"
)

// Publisher captures structured audit events and fans them out to the
// configured sinks. Delivery semantics differ by event category:
//
//   - compliance: persisted synchronously; Emit reports sink failures to
//     the caller so they are never silently lost
//   - security: buffered async when enabled; never blocks the request path;
//     dropped and counted when the buffer is full
//   - operations: sampled first, then handled like security
type Publisher struct {
	sink    Sink
	events  chan Event
	wg      sync.WaitGroup
	logger  *slog.Logger
	sampler *Sampler
	metrics *Metrics
	async   bool

	closeOnce sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Security and operations events are queued and persisted in a background
// goroutine; compliance events always bypass the buffer.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithLogger sets a logger for async error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSampler enables sampling of operations-category events.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a publisher writing to the given sink.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// Emit records one audit event. The event is enriched with identifiers and
// request metadata from the context where fields were left unset.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	event = p.enrich(ctx, event)

	// Compliance events bypass sampling and the async buffer: a failed
	// write must surface to the caller.
	if event.Category == CategoryCompliance {
		return p.persist(ctx, event)
	}

	if event.Category == CategoryOperations && p.sampler != nil {
		if !p.sampler.ShouldSample(event.Action) {
			if p.metrics != nil {
				p.metrics.IncEventsSampled()
			}
			return nil
		}
	}

	if p.async {
		// Non-blocking send with context cancellation support
		select {
		case p.events <- event:
			if p.metrics != nil {
				p.metrics.IncEventsEnqueued()
				p.metrics.IncQueueDepth()
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			if p.metrics != nil {
				p.metrics.IncEventsDropped()
			}
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"action", event.Action,
					"subject_id", event.SubjectID,
				)
			}
			return dErrors.New(dErrors.CodeInternal, "audit buffer full")
		}
	}

	return p.persist(ctx, event)
}

// enrich fills identity and request metadata from the context for any field
// the caller left empty.
func (p *Publisher) enrich(ctx context.Context, event Event) Event {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.DeviceSummary == "" {
		event.DeviceSummary = requestcontext.DeviceSummary(ctx)
	}
	return event
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if p.metrics != nil {
			p.metrics.DecQueueDepth()
		}
		if err := p.persist(context.Background(), event); err != nil {
			if p.logger != nil {
				p.logger.Error("failed to persist audit event",
					"error", err,
					"action", event.Action,
					"subject_id", event.SubjectID,
				)
			}
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event Event) error {
	start := time.Now()
	err := p.sink.Append(ctx, event)
	if p.metrics != nil {
		p.metrics.ObservePersistDuration(time.Since(start).Seconds())
		if err != nil {
			p.metrics.IncPersistFailures()
		} else {
			p.metrics.IncEventsProcessed()
		}
	}
	return err
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.async && p.events != nil {
			close(p.events)
			p.wg.Wait()
		}
	})
}
