// Package notify dispatches order-outcome notifications off the request
// path. The HTTP handlers enqueue and return immediately; a bounded queue
// consumed by a fixed worker pool is the concurrency primitive, so bursts
// surface as dropped notifications rather than unbounded goroutines.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Sink delivers a confirmation message for an order. Implementations must
// not panic into the caller; the dispatcher guards against it regardless.
type Sink interface {
	NotifyOrderConfirmed(ctx context.Context, orderID string)
}

// Dispatcher fans order ids out to a Sink through a bounded queue.
type Dispatcher struct {
	sink   Sink
	queue  chan string
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher and starts its worker pool.
func NewDispatcher(sink Sink, queueSize, workers int, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		sink:   sink,
		queue:  make(chan string, queueSize),
		logger: logger.With().Str("component", "notify-dispatcher").Logger(),
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// Enqueue submits an order id for notification without blocking. A full
// queue drops the notification; reconciliation never waits on delivery.
func (d *Dispatcher) Enqueue(orderID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn().Str("order_id", orderID).Msg("dispatcher closed, notification dropped")
		return false
	}

	select {
	case d.queue <- orderID:
		d.logger.Debug().Str("order_id", orderID).Msg("notification enqueued")
		return true
	default:
		d.logger.Warn().Str("order_id", orderID).Msg("notification queue full, dropped")
		return false
	}
}

// Close stops accepting notifications, drains the queue and waits for the
// workers to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for orderID := range d.queue {
		d.deliver(orderID)
	}
}

func (d *Dispatcher) deliver(orderID string) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error().
				Str("order_id", orderID).
				Interface("panic", rec).
				Msg("notification sink panicked")
		}
	}()

	d.sink.NotifyOrderConfirmed(context.Background(), orderID)
}

// LogSink is a Sink that records the confirmation in the log. It stands in
// for the mail delivery collaborator, which lives outside this service.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log-backed notification sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "notify-sink").Logger()}
}

// NotifyOrderConfirmed logs the confirmation.
func (s *LogSink) NotifyOrderConfirmed(_ context.Context, orderID string) {
	s.logger.Info().Str("order_id", orderID).Msg("order confirmation notification")
}
