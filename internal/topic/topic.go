package topic

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/mqipc/internal/codec"
	"github.com/danmuck/mqipc/internal/mq"
)

var (
	ErrReservedName = errors.New("topic: name reserved for the wire mirror")
	ErrClosed       = errors.New("topic: handle closed")
)

// DefaultPollInterval bounds how long the worker blocks per receive, which
// in turn bounds how long Close waits for the worker to notice the stop
// flag.
const DefaultPollInterval = 100 * time.Millisecond

// reservedMirrorName is the wire mirror queue (see internal/wire). It
// carries wire packets, never application payloads.
const reservedMirrorName = "/ipc_tx"

type Option func(*settings)

type settings struct {
	pollInterval time.Duration
}

// WithPollInterval overrides the worker's receive timeout. Shorter
// intervals give faster teardown at the cost of more idle wakeups.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// Topic is a process-local typed handle onto one bounded named queue.
//
// Opening two handles to the same name inside one process is legal but each
// independently competes for messages on the shared queue; neither observes
// the other's deliveries.
type Topic[T any] struct {
	queue *mq.Queue
	codec codec.Codec[T]
	poll  time.Duration

	mu      sync.Mutex
	subs    []func(T) error
	started bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates or attaches to the named queue, sized to capacity messages of
// T's fixed encoded size. No background work starts until the first
// Subscribe.
func New[T any](name string, capacity int, opts ...Option) (*Topic[T], error) {
	if name == reservedMirrorName {
		return nil, fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	c, err := codec.For[T]()
	if err != nil {
		return nil, err
	}
	q, err := mq.Open(name, capacity, c.Size())
	if err != nil {
		return nil, err
	}
	return newTopic(q, c, opts), nil
}

// OpenExisting attaches to the named queue without creating it.
// mq.ErrNotFound passes through as the normal absent result. Attaching to a
// queue whose message size disagrees with T is a configuration mismatch.
func OpenExisting[T any](name string, opts ...Option) (*Topic[T], error) {
	c, err := codec.For[T]()
	if err != nil {
		return nil, err
	}
	q, err := mq.OpenExisting(name)
	if err != nil {
		return nil, err
	}
	_, msgSize, err := q.Attr()
	if err != nil {
		q.Close()
		return nil, err
	}
	if msgSize != c.Size() {
		q.Close()
		return nil, fmt.Errorf("%w: %s carries %d-byte messages, payload type needs %d",
			mq.ErrConfigMismatch, name, msgSize, c.Size())
	}
	return newTopic(q, c, opts), nil
}

func newTopic[T any](q *mq.Queue, c codec.Codec[T], opts []Option) *Topic[T] {
	s := settings{pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&s)
	}
	return &Topic[T]{
		queue: q,
		codec: c,
		poll:  s.pollInterval,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Name reports the queue identity this handle is bound to.
func (t *Topic[T]) Name() string { return t.queue.Name() }

// Publish encodes v and enqueues it at the given priority, on the caller's
// goroutine. Timeout semantics are those of mq.Queue.Send: 0 fails fast
// with mq.ErrFull, positive waits with mq.ErrTimeout on expiry, negative
// blocks.
func (t *Topic[T]) Publish(v T, priority uint, timeout time.Duration) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: %s", ErrClosed, t.Name())
	}
	payload, err := t.codec.Encode(v)
	if err != nil {
		return err
	}
	return t.queue.Send(priority, payload, timeout)
}

// Subscribe appends fn to the fan-out list. The first subscription starts
// the receive worker, exactly once per handle. Every subscriber fires, in
// registration order, for every message this handle wins from the queue.
// Subscribing on a closed handle is a no-op.
func (t *Topic[T]) Subscribe(fn func(T) error) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.subs = append(t.subs, fn)
	if !t.started {
		t.started = true
		go t.run()
	}
}

// Close stops the worker, waits for it to exit (bounded by one poll
// interval), and releases the descriptor. The kernel queue survives; use
// Unlink to remove it. Close is idempotent.
func (t *Topic[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	started := t.started
	t.mu.Unlock()

	if started {
		close(t.stop)
		<-t.done
	}
	return t.queue.Close()
}

// Unlink removes the queue name from the system. Open handles, including
// this one, keep working until closed.
func (t *Topic[T]) Unlink() error {
	return mq.Unlink(t.queue.Name())
}

func (t *Topic[T]) run() {
	defer close(t.done)
	buf := make([]byte, t.codec.Size())
	for {
		select {
		case <-t.stop:
			return
		default:
		}

		n, _, err := t.queue.Receive(buf, t.poll)
		if err != nil {
			if errors.Is(err, mq.ErrEmpty) || errors.Is(err, mq.ErrTimeout) {
				continue
			}
			if errors.Is(err, mq.ErrClosed) {
				return
			}
			reportError(t.Name(), fmt.Errorf("topic: worker receive: %w", err))
			return
		}

		// A message that raced teardown stays undelivered.
		select {
		case <-t.stop:
			return
		default:
		}

		v, err := t.codec.Decode(buf[:n])
		if err != nil {
			reportError(t.Name(), fmt.Errorf("topic: worker decode: %w", err))
			continue
		}

		t.mu.Lock()
		subs := make([]func(T) error, len(t.subs))
		copy(subs, t.subs)
		t.mu.Unlock()

		for _, fn := range subs {
			t.dispatch(fn, v)
		}
	}
}

// dispatch isolates one subscriber invocation: an error return or a panic
// is reported through the process-wide hook and never reaches the worker
// loop, the sibling subscribers, or the publisher.
func (t *Topic[T]) dispatch(fn func(T) error, v T) {
	defer func() {
		if r := recover(); r != nil {
			reportError(t.Name(), fmt.Errorf("topic: subscriber panic: %v", r))
		}
	}()
	if err := fn(v); err != nil {
		reportError(t.Name(), fmt.Errorf("topic: subscriber: %w", err))
	}
}
