// Package events delivers director messages to subscribers.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrQueueFull is returned to a logged buffered handler when a message is dropped.
var ErrQueueFull = errors.New("events: subscriber queue full")

// Handler processes one message.
type Handler func(Message) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*config)

type config struct {
	kinds      map[Kind]bool
	name       string
	bufferSize int
	blocking   bool
	logged     bool
}

// Kinds restricts a subscription to the given message kinds.
func Kinds(kinds ...Kind) Option {
	return func(c *config) {
		if c.kinds == nil {
			c.kinds = make(map[Kind]bool, len(kinds))
		}
		for _, k := range kinds {
			c.kinds[k] = true
		}
	}
}

// Named labels the subscription in logs and metrics.
func Named(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type subscriber struct {
	id    uint64
	name  string
	kinds map[Kind]bool
	h     Handler

	// buffered subscribers only
	mu       sync.Mutex
	closed   bool
	blocking bool
	buffer   chan Message
	done     chan struct{}
	onClose  func()
}

func (s *subscriber) wants(k Kind) bool {
	return s.kinds == nil || s.kinds[k]
}

// Subscription is returned by Subscribe and Channel.
type Subscription struct {
	bus *Bus
	id  uint64
}

// Unsubscribe removes the subscription. Buffered subscribers drain first.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.id)
}

// Bus fans messages out to subscribers in subscription order.
type Bus struct {
	logger Logger

	mu     sync.RWMutex
	subs   []*subscriber
	nextID uint64
	closed bool

	queueSize metric.Int64ObservableGauge
	published metric.Int64Counter
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// New creates a bus with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Bus, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	b := &Bus{logger: logger}

	m := meter()

	var err error

	b.queueSize, err = m.Int64ObservableGauge(
		"events.queue.size",
		metric.WithDescription("Current number of messages queued per buffered subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			b.mu.RLock()
			defer b.mu.RUnlock()
			for _, s := range b.subs {
				if s.buffer != nil {
					o.ObserveInt64(b.queueSize, int64(len(s.buffer)),
						metric.WithAttributes(attribute.String("subscriber", s.name)))
				}
			}
			return nil
		},
		b.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	b.published, err = m.Int64Counter(
		"events.messages.published",
		metric.WithDescription("Total messages published"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating published counter: %w", err)
	}

	b.processed, err = m.Int64Counter(
		"events.messages.processed",
		metric.WithDescription("Total messages handled by buffered subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	b.dropped, err = m.Int64Counter(
		"events.messages.dropped",
		metric.WithDescription("Total messages dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return b, nil
}

// Subscribe registers h with optional configuration. Subscribing to a closed
// bus returns an inert subscription.
func (b *Bus) Subscribe(h Handler, opts ...Option) *Subscription {
	return b.subscribe(h, nil, opts...)
}

// Channel returns a channel receiving messages of the given kinds (all kinds
// when none are given). Messages are dropped when the channel is full. The
// channel is closed by Unsubscribe or Close.
func (b *Bus) Channel(size int, kinds ...Kind) (<-chan Message, *Subscription) {
	out := make(chan Message, size)
	opts := []Option{Named("channel")}
	if len(kinds) > 0 {
		opts = append(opts, Kinds(kinds...))
	}

	var (
		mu     sync.Mutex
		closed bool
	)
	closeOut := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(out)
		}
	}

	h := func(m Message) error {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return nil
		}
		select {
		case out <- m:
			return nil
		default:
			b.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("subscriber", "channel")))
			return ErrQueueFull
		}
	}

	sub := b.subscribe(h, closeOut, opts...)
	if sub.bus == nil {
		closeOut()
	}
	return out, sub
}

func (b *Bus) subscribe(h Handler, onClose func(), opts ...Option) *Subscription {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return &Subscription{}
	}

	b.nextID++
	s := &subscriber{
		id:      b.nextID,
		name:    cfg.name,
		kinds:   cfg.kinds,
		h:       h,
		onClose: onClose,
	}
	if s.name == "" {
		s.name = fmt.Sprintf("subscriber-%d", s.id)
	}
	if cfg.logged {
		s.h = b.withLogging(s.name, s.h)
	}
	if cfg.bufferSize > 0 {
		b.withBuffer(s, cfg.bufferSize, cfg.blocking)
	}

	b.subs = append(b.subs, s)
	return &Subscription{bus: b, id: s.id}
}

// Publish delivers msgs in order. Synchronous handlers run on the caller's
// goroutine; handler errors are logged and do not stop delivery.
func (b *Bus) Publish(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]*subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	ctx := context.Background()
	for _, m := range msgs {
		b.published.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", m.Kind().String())))
		for _, s := range subs {
			if !s.wants(m.Kind()) {
				continue
			}
			if s.buffer != nil {
				b.enqueue(s, m)
				continue
			}
			if err := s.h(m); err != nil && !errors.Is(err, ErrQueueFull) {
				b.logger.Error("message handler failed", "subscriber", s.name, "kind", m.Kind().String(), "error", err)
			}
		}
	}
}

// Close stops delivery and waits for buffered subscribers to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	var found *subscriber
	for i, s := range b.subs {
		if s.id == id {
			found = s
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	if found != nil {
		found.stop()
	}
}

// stop closes the queue, waits for it to drain and runs the close hook.
func (s *subscriber) stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.buffer != nil {
		close(s.buffer)
	}
	s.mu.Unlock()

	if s.done != nil {
		<-s.done
	}
	if s.onClose != nil {
		s.onClose()
	}
}

func (b *Bus) withBuffer(s *subscriber, size int, blocking bool) {
	s.buffer = make(chan Message, size)
	s.done = make(chan struct{})
	s.blocking = blocking

	attrs := metric.WithAttributes(attribute.String("subscriber", s.name))
	h := s.h

	go func() {
		defer close(s.done)
		for m := range s.buffer {
			if err := h(m); err != nil {
				b.logger.Error("message handler failed", "subscriber", s.name, "kind", m.Kind().String(), "error", err)
			}
			b.processed.Add(context.Background(), 1, attrs)
		}
	}()
}

func (b *Bus) enqueue(s *subscriber, m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if s.blocking {
		s.buffer <- m
		return
	}

	select {
	case s.buffer <- m:
	default:
		b.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("subscriber", s.name)))
		b.logger.Debug("message dropped", "subscriber", s.name, "kind", m.Kind().String())
	}
}

func (b *Bus) withLogging(name string, h Handler) Handler {
	return func(m Message) error {
		start := time.Now()
		b.logger.Debug("handling message", "subscriber", name, "kind", m.Kind().String())

		err := h(m)

		if err != nil {
			b.logger.Error("message failed", "subscriber", name, "kind", m.Kind().String(), "duration", time.Since(start), "error", err)
		} else {
			b.logger.Debug("message complete", "subscriber", name, "kind", m.Kind().String(), "duration", time.Since(start))
		}

		return err
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
