package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/mqipc/internal/mq"
)

const (
	// MirrorQueue aggregates one packet per mirrored publish, host-wide.
	// The name is reserved; topic.New refuses it for application topics.
	MirrorQueue = "/ipc_tx"

	// MaxTopicLen caps the topic identity carried in a packet.
	MaxTopicLen = 64

	// MaxPayloadLen caps the raw payload carried in a packet.
	MaxPayloadLen = 128

	headerSize = 4

	// PacketSize is the fixed encoded size of every packet:
	// [payload_len: u16 LE][topic_len: u8][reserved: u8]
	// [topic: MaxTopicLen bytes, zero-padded]
	// [payload: MaxPayloadLen bytes, zero-padded]
	PacketSize = headerSize + MaxTopicLen + MaxPayloadLen
)

var (
	ErrTopicTooLong    = errors.New("wire: topic name exceeds packet capacity")
	ErrPayloadTooLong  = errors.New("wire: payload exceeds packet capacity")
	ErrMalformedPacket = errors.New("wire: malformed packet")
)

// Packet pairs a topic identity with one raw encoded payload. An empty
// topic name marks a heartbeat/sentinel packet; routers drop it silently.
type Packet struct {
	Topic   string
	Payload []byte
}

// Encode serializes the packet into its fixed framing. Oversize topic or
// payload is rejected outright, never truncated.
func (p Packet) Encode() ([]byte, error) {
	if len(p.Topic) > MaxTopicLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrTopicTooLong, len(p.Topic))
	}
	if len(p.Payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(p.Payload))
	}
	buf := make([]byte, PacketSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(p.Payload)))
	buf[2] = byte(len(p.Topic))
	copy(buf[headerSize:headerSize+MaxTopicLen], p.Topic)
	copy(buf[headerSize+MaxTopicLen:], p.Payload)
	return buf, nil
}

// Decode is the exact inverse of Encode. Buffers of the wrong total size or
// with declared lengths beyond capacity are rejected.
func Decode(buf []byte) (Packet, error) {
	if len(buf) != PacketSize {
		return Packet{}, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedPacket, len(buf), PacketSize)
	}
	payloadLen := int(binary.LittleEndian.Uint16(buf[0:2]))
	topicLen := int(buf[2])
	if topicLen > MaxTopicLen {
		return Packet{}, fmt.Errorf("%w: declared topic length %d", ErrMalformedPacket, topicLen)
	}
	if payloadLen > MaxPayloadLen {
		return Packet{}, fmt.Errorf("%w: declared payload length %d", ErrMalformedPacket, payloadLen)
	}
	payload := make([]byte, payloadLen)
	copy(payload, buf[headerSize+MaxTopicLen:headerSize+MaxTopicLen+payloadLen])
	return Packet{
		Topic:   string(buf[headerSize : headerSize+topicLen]),
		Payload: payload,
	}, nil
}

// OpenMirror creates or attaches to the mirror queue, sized for capacity
// packets. Routers and bridge processes use this to drain the mirrored
// traffic.
func OpenMirror(capacity int) (*mq.Queue, error) {
	return mq.Open(MirrorQueue, capacity, PacketSize)
}
