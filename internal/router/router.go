// Package router owns wire packet re-injection into local topics.
//
// Ownership boundary:
// - the drain loop over a packet source (mirror queue or bridge)
// - open-existing lookup and republish per packet
// - the absent-topic drop policy
//
// Topics are their own discovery mechanism: a packet naming a queue that
// does not exist on this host is dropped silently, because the topic may
// legitimately be unneeded here. No registry is consulted and no queue is
// ever created on the receive path.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/mqipc/internal/logging"
	"github.com/danmuck/mqipc/internal/mq"
	"github.com/danmuck/mqipc/internal/wire"
)

// Source yields one decoded packet per call. mq.ErrEmpty and mq.ErrTimeout
// mean "nothing yet"; Run treats them as idle ticks.
type Source interface {
	Next(timeout time.Duration) (wire.Packet, error)
}

// DefaultPollInterval bounds each Source.Next call inside Run so context
// cancellation stays responsive.
const DefaultPollInterval = 100 * time.Millisecond

type Option func(*Router)

// WithDefaultPriority sets the priority re-injected payloads are sent at.
func WithDefaultPriority(p uint) Option {
	return func(r *Router) { r.priority = p }
}

// WithPollInterval overrides the Run loop's per-packet wait.
func WithPollInterval(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.poll = d
		}
	}
}

// Router re-injects wire packets into matching local queues. It caches open
// descriptors per topic name; the cache holds handles only, never queue
// state, so the kernel stays the single authority on existence.
type Router struct {
	priority uint
	poll     time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	handles map[string]*mq.Queue
	closed  bool
}

func New(opts ...Option) *Router {
	r := &Router{
		poll:    DefaultPollInterval,
		log:     logging.Component("router"),
		handles: make(map[string]*mq.Queue),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route delivers one packet. Empty topic names (heartbeats) and topics
// absent on this host are silent, zero-cost drops. A present topic that
// cannot accept the payload is a reportable error, since the destination is
// known and wanted.
func (r *Router) Route(pkt wire.Packet) error {
	if pkt.Topic == "" {
		return nil
	}

	q, err := r.handle(pkt.Topic)
	if err != nil {
		if errors.Is(err, mq.ErrNotFound) {
			return nil
		}
		return err
	}

	err = q.Send(r.priority, pkt.Payload, 0)
	if err == nil {
		return nil
	}
	if errors.Is(err, mq.ErrClosed) || errors.Is(err, mq.ErrNotFound) {
		// Queue vanished between open and send; retry once against the
		// kernel's current truth.
		r.evict(pkt.Topic)
		q, err = r.handle(pkt.Topic)
		if err != nil {
			if errors.Is(err, mq.ErrNotFound) {
				return nil
			}
			return err
		}
		err = q.Send(r.priority, pkt.Payload, 0)
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("router: deliver to %s: %w", pkt.Topic, err)
}

// Run drains src until ctx is done. Per-packet failures are logged and the
// loop proceeds to the next packet.
func (r *Router) Run(ctx context.Context, src Source) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pkt, err := src.Next(r.poll)
		if err != nil {
			if errors.Is(err, mq.ErrEmpty) || errors.Is(err, mq.ErrTimeout) {
				continue
			}
			if errors.Is(err, wire.ErrMalformedPacket) {
				r.log.Warn().Err(err).Msg("dropping malformed packet")
				continue
			}
			return fmt.Errorf("router: source: %w", err)
		}
		if err := r.Route(pkt); err != nil {
			r.log.Warn().Str("topic", pkt.Topic).Err(err).Msg("packet not delivered")
		}
	}
}

// Close releases every cached descriptor.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for name, q := range r.handles {
		if err := q.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.handles, name)
	}
	return errors.Join(errs...)
}

func (r *Router) handle(name string) (*mq.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, mq.ErrClosed
	}
	if q, ok := r.handles[name]; ok {
		return q, nil
	}
	q, err := mq.OpenExisting(name)
	if err != nil {
		return nil, err
	}
	r.handles[name] = q
	return q, nil
}

func (r *Router) evict(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.handles[name]; ok {
		q.Close()
		delete(r.handles, name)
	}
}

// MirrorSource drains the well-known mirror queue.
type MirrorSource struct {
	q   *mq.Queue
	buf []byte
}

// NewMirrorSource opens the mirror queue sized for capacity packets.
func NewMirrorSource(capacity int) (*MirrorSource, error) {
	q, err := wire.OpenMirror(capacity)
	if err != nil {
		return nil, err
	}
	return &MirrorSource{q: q, buf: make([]byte, wire.PacketSize)}, nil
}

func (s *MirrorSource) Next(timeout time.Duration) (wire.Packet, error) {
	n, _, err := s.q.Receive(s.buf, timeout)
	if err != nil {
		return wire.Packet{}, err
	}
	return wire.Decode(s.buf[:n])
}

func (s *MirrorSource) Close() error { return s.q.Close() }
