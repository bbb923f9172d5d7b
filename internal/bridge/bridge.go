// Package bridge owns physical-transport adapters for wire packets.
//
// Ownership boundary:
// - the Bridge contract every physical adapter satisfies
// - the reference UDP adapter
//
// A bridge moves exactly one decoded packet per call and must preserve the
// wire framing bit-for-bit in both directions. Physical-layer concerns
// (retransmission, error detection) belong to the adapter, not the core.
package bridge

import (
	"time"

	"github.com/danmuck/mqipc/internal/router"
	"github.com/danmuck/mqipc/internal/wire"
)

// Bridge carries wire packets over some physical transport.
type Bridge interface {
	// Send transmits one packet.
	Send(pkt wire.Packet) error

	// Recv blocks up to timeout for one packet. "Nothing arrived" is
	// reported as mq.ErrTimeout so drain loops treat it as an idle tick.
	Recv(timeout time.Duration) (wire.Packet, error)

	Close() error
}

type bridgeSource struct {
	b Bridge
}

func (s bridgeSource) Next(timeout time.Duration) (wire.Packet, error) {
	return s.b.Recv(timeout)
}

// AsSource adapts a Bridge's receive side to the router's packet source.
func AsSource(b Bridge) router.Source {
	return bridgeSource{b: b}
}
