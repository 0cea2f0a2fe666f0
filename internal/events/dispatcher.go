package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by Dispatcher.Enqueue.
var (
	ErrQueueClosed = errors.New("event queue is closed")
	ErrQueueFull   = errors.New("event queue is full")
)

// Observer receives delivery outcomes, e.g. for metrics.
type Observer interface {
	EventPublished(topic string)
	EventDropped(topic string)
	EventFailed(topic string)
}

type nopObserver struct{}

func (nopObserver) EventPublished(string) {}
func (nopObserver) EventDropped(string)   {}
func (nopObserver) EventFailed(string)    {}

// DispatcherConfig holds configuration options for the dispatcher.
type DispatcherConfig struct {
	// QueueSize bounds the number of undelivered events. Defaults to 256.
	QueueSize int
	// WorkerCount is the number of delivery goroutines. Defaults to 1.
	WorkerCount int
}

// Dispatcher is a Publisher backed by a bounded queue and a pool of
// workers that hand each event to an emitter.
type Dispatcher struct {
	emitter  *InMemoryEventEmitter
	queue    chan *Event
	workers  int
	observer Observer
	logger   *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil observer is allowed.
func NewDispatcher(emitter *InMemoryEventEmitter, cfg DispatcherConfig, observer Observer, logger *slog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.WorkerCount,
			"default_count", 1)
		cfg.WorkerCount = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Dispatcher{
		emitter:  emitter,
		queue:    make(chan *Event, cfg.QueueSize),
		workers:  cfg.WorkerCount,
		observer: observer,
		logger:   logger.With("component", "event_dispatcher"),
	}
}

// Start launches the workers. It is a no-op when already started.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	d.logger.Info("starting event workers", "worker_count", d.workers, "queue_cap", cap(d.queue))
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	log := d.logger.With("worker_id", id)
	log.Debug("worker started")

	for event := range d.queue {
		// Deliveries outlive the request that published them.
		if err := d.emitter.EmitEvent(context.Background(), event); err != nil {
			d.observer.EventFailed(string(event.Topic))
			continue
		}
		d.observer.EventPublished(string(event.Topic))
	}

	log.Debug("worker stopped")
}

// Enqueue adds event to the queue without blocking.
func (d *Dispatcher) Enqueue(event *Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(d.queue))
	}
}

// Publish implements Publisher. Events that cannot be queued are dropped
// with a warning.
func (d *Dispatcher) Publish(ctx context.Context, event *Event) {
	if err := d.Enqueue(event); err != nil {
		d.observer.EventDropped(string(event.Topic))
		d.logger.WarnContext(ctx, "dropping event",
			"event_id", event.ID,
			"topic", event.Topic,
			"error", err)
	}
}

// Shutdown stops accepting events and waits for the workers to drain the
// queue, or for ctx to end. Events queued on a dispatcher that was never
// started are delivered by a single worker before it returns.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
		if !d.started {
			d.started = true
			if pending := len(d.queue); pending > 0 {
				d.logger.Warn("draining events queued before start", "pending", pending)
			}
			d.wg.Add(1)
			go d.work(0)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("event dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event dispatcher shutdown: %w", ctx.Err())
	}
}
