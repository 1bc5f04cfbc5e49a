package notifications

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/junaidrashid-git/shopcart-api/metrics"
	"go.uber.org/zap"
)

var ErrBusClosed = errors.New("notification bus closed")

// Bus is an in-memory queue that fans events out to subscribers on a background
// goroutine. Publishing never waits for delivery.
type Bus struct {
	subsMu      sync.RWMutex
	subs        map[string][]Handler
	mu          sync.RWMutex // guards closed and the queue's close
	queue       chan Event
	closed      bool
	startOnce   sync.Once
	stopOnce    sync.Once
	done        chan struct{}
	cancel      context.CancelFunc
	concurrency int
	timeout     time.Duration
	log         *zap.Logger
	metrics     *metrics.Metrics
}

type BusOption func(*Bus)

// WithQueueSize sets the buffered queue capacity.
func WithQueueSize(n int) BusOption {
	return func(b *Bus) { b.queue = make(chan Event, n) }
}

// WithHandlerTimeout bounds each handler invocation.
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(b *Bus) { b.timeout = d }
}

func NewBus(logger *zap.Logger, m *metrics.Metrics, opts ...BusOption) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{
		subs:        make(map[string][]Handler),
		queue:       make(chan Event, 1024),
		done:        make(chan struct{}),
		concurrency: 8,
		timeout:     30 * time.Second,
		log:         logger.With(zap.String("component", "notifications")),
		metrics:     m,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(eventName string, h Handler) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Start launches the dispatch loop. Calling it more than once is a no-op.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		go b.dispatchLoop(bg)
		b.log.Info("event_bus_started")
	})
}

// Stop rejects new events and drains the queue. If ctx ends first, in-flight
// handlers are cancelled and the remaining events are dropped.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()

		if b.cancel == nil {
			return
		}
		select {
		case <-b.done:
		case <-ctx.Done():
			b.log.Warn("event_bus_drain_aborted", zap.Error(ctx.Err()))
		}
		b.cancel()
		b.log.Info("event_bus_stopped")
	})
}

// Publish enqueues e. It blocks only while the queue is full.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e == nil {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- e:
		b.log.Debug("event_enqueued", zap.String("event", e.EventName()))
		return nil
	case <-ctx.Done():
		b.log.Warn("event_enqueue_aborted",
			zap.String("event", e.EventName()),
			zap.Error(ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e Event) {
	name := e.EventName()

	b.subsMu.RLock()
	handlers := append([]Handler(nil), b.subs[name]...)
	b.subsMu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", zap.String("event", name))
		return
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event_handler_panic",
						zap.String("event", name),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
					b.metrics.Notification(name, "panic")
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				b.log.Warn("event_handler_error",
					zap.String("event", name),
					zap.Error(err),
				)
				b.metrics.Notification(name, "handler_failed")
				return
			}
			b.metrics.Notification(name, "delivered")
		}(h)
	}

	wg.Wait()
	b.log.Debug("event_fanned_out",
		zap.String("event", name),
		zap.Int("handlers", len(handlers)),
	)
}
