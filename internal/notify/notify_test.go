package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink collects delivered order ids.
type recordingSink struct {
	mu     sync.Mutex
	orders []string
}

func (s *recordingSink) NotifyOrderConfirmed(_ context.Context, orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, orderID)
}

func (s *recordingSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.orders))
	copy(out, s.orders)
	return out
}

// blockingSink holds every delivery until released.
type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) NotifyOrderConfirmed(context.Context, string) {
	<-s.release
}

// panickySink always panics on delivery.
type panickySink struct{}

func (panickySink) NotifyOrderConfirmed(context.Context, string) {
	panic("sink exploded")
}

func TestDispatcher_DeliversEnqueuedOrders(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 16, 2, zerolog.Nop())

	require.True(t, d.Enqueue("ORD1"))
	require.True(t, d.Enqueue("ORD2"))
	require.True(t, d.Enqueue("ORD3"))

	d.Close()

	got := sink.delivered()
	assert.ElementsMatch(t, []string{"ORD1", "ORD2", "ORD3"}, got)
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(sink, 1, 1, zerolog.Nop())

	// First enqueue is picked up by the worker, which then blocks; the
	// second fills the queue slot. Wait for the worker to drain the slot
	// into its blocked delivery so the ordering is deterministic.
	require.True(t, d.Enqueue("ORD1"))

	deadline := time.After(time.Second)
	for !d.Enqueue("ORD2") {
		select {
		case <-deadline:
			t.Fatal("worker never picked up first order")
		case <-time.After(time.Millisecond):
		}
	}

	// Queue slot occupied and worker blocked: this one must be dropped.
	assert.False(t, d.Enqueue("ORD3"))

	close(sink.release)
	d.Close()
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 4, 1, zerolog.Nop())
	d.Close()

	assert.False(t, d.Enqueue("ORD1"))
	assert.Empty(t, sink.delivered())
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(&recordingSink{}, 4, 1, zerolog.Nop())
	d.Close()
	d.Close()
}

func TestDispatcher_RecoversFromSinkPanic(t *testing.T) {
	d := NewDispatcher(panickySink{}, 4, 1, zerolog.Nop())

	require.True(t, d.Enqueue("ORD1"))
	require.True(t, d.Enqueue("ORD2"))

	// Close waits for the workers; reaching here without a crashed test
	// process means the panics were contained.
	d.Close()
}

func TestLogSink_NotifyOrderConfirmed(t *testing.T) {
	// Smoke test: must not panic.
	NewLogSink(zerolog.Nop()).NotifyOrderConfirmed(context.Background(), "ORD1")
}
