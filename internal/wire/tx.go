package wire

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/mqipc/internal/codec"
	"github.com/danmuck/mqipc/internal/logging"
	"github.com/danmuck/mqipc/internal/mq"
	"github.com/danmuck/mqipc/internal/topic"
)

// DefaultMirrorCapacity sizes the mirror queue when no option overrides it.
// It must absorb worst-case fan-out across every mirrored topic on the
// host; the default stays under the kernel's unprivileged msg_max (10 on a
// stock fs.mqueue).
const DefaultMirrorCapacity = 8

type TxOption func(*txSettings)

type txSettings struct {
	mirrorCapacity int
	topicOpts      []topic.Option
}

// WithMirrorCapacity sizes the mirror queue created (or attached) by NewTx.
// Every mirroring process on the host must agree on this value; the kernel
// rejects a mismatched attach.
func WithMirrorCapacity(n int) TxOption {
	return func(s *txSettings) {
		if n > 0 {
			s.mirrorCapacity = n
		}
	}
}

// WithTopicOptions forwards options to the primary topic handle.
func WithTopicOptions(opts ...topic.Option) TxOption {
	return func(s *txSettings) {
		s.topicOpts = append(s.topicOpts, opts...)
	}
}

// Tx wraps a typed topic so every successful publish is additionally
// re-exported as a Packet on the mirror queue. The two sends are
// independent: mirroring is best-effort relative to local delivery.
type Tx[T any] struct {
	topic  *topic.Topic[T]
	mirror *mq.Queue
	codec  codec.Codec[T]
	name   string
	log    zerolog.Logger
}

// NewTx builds the primary topic for name plus a handle on the mirror
// queue. Payload types whose encoded size exceeds the packet capacity are
// rejected here rather than on every publish.
func NewTx[T any](name string, capacity int, opts ...TxOption) (*Tx[T], error) {
	s := txSettings{mirrorCapacity: DefaultMirrorCapacity}
	for _, opt := range opts {
		opt(&s)
	}

	c, err := codec.For[T]()
	if err != nil {
		return nil, err
	}
	if c.Size() > MaxPayloadLen {
		return nil, fmt.Errorf("%w: payload type needs %d bytes, packet carries %d",
			ErrPayloadTooLong, c.Size(), MaxPayloadLen)
	}
	if len(name) > MaxTopicLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrTopicTooLong, len(name))
	}

	tp, err := topic.New[T](name, capacity, s.topicOpts...)
	if err != nil {
		return nil, err
	}
	mirror, err := OpenMirror(s.mirrorCapacity)
	if err != nil {
		tp.Close()
		return nil, err
	}
	return &Tx[T]{
		topic:  tp,
		mirror: mirror,
		codec:  c,
		name:   name,
		log:    logging.Component("wire"),
	}, nil
}

// Publish delivers v locally first, then mirrors it. A failed primary
// publish skips the mirror and is returned; a failed mirror enqueue is
// reported but never fails or rolls back the already-successful primary.
func (tx *Tx[T]) Publish(v T, priority uint, timeout time.Duration) error {
	if err := tx.topic.Publish(v, priority, timeout); err != nil {
		return err
	}

	payload, err := tx.codec.Encode(v)
	if err != nil {
		tx.log.Warn().Str("topic", tx.name).Err(err).Msg("mirror encode dropped")
		return nil
	}
	enc, err := Packet{Topic: tx.name, Payload: payload}.Encode()
	if err != nil {
		tx.log.Warn().Str("topic", tx.name).Err(err).Msg("mirror encode dropped")
		return nil
	}
	if err := tx.mirror.Send(0, enc, 0); err != nil {
		if errors.Is(err, mq.ErrFull) {
			tx.log.Warn().Str("topic", tx.name).Msg("mirror queue full, packet dropped")
		} else {
			tx.log.Warn().Str("topic", tx.name).Err(err).Msg("mirror send dropped")
		}
	}
	return nil
}

// Topic exposes the primary handle for local subscribing.
func (tx *Tx[T]) Topic() *topic.Topic[T] { return tx.topic }

// Name reports the primary topic identity carried in mirrored packets.
func (tx *Tx[T]) Name() string { return tx.name }

// Close releases both handles. Neither kernel queue is removed.
func (tx *Tx[T]) Close() error {
	return errors.Join(tx.topic.Close(), tx.mirror.Close())
}
