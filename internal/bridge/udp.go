package bridge

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/mqipc/internal/logging"
	"github.com/danmuck/mqipc/internal/mq"
	"github.com/danmuck/mqipc/internal/wire"
)

var ErrNoPeer = errors.New("bridge: no peer address configured")

// UDP moves one encoded wire packet per datagram. Datagrams whose size
// disagrees with the fixed packet framing are dropped with a log line;
// delivery and ordering are whatever UDP gives you.
type UDP struct {
	conn *net.UDPConn
	peer *net.UDPAddr
	log  zerolog.Logger
	buf  []byte
}

// NewUDP binds listenAddr for receiving. peerAddr is where Send transmits;
// it may be empty for a receive-only bridge.
func NewUDP(listenAddr, peerAddr string) (*UDP, error) {
	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("bridge: listen addr %s: %w", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("bridge: listen %s: %w", listenAddr, err)
	}
	var peer *net.UDPAddr
	if peerAddr != "" {
		peer, err = net.ResolveUDPAddr("udp", peerAddr)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("bridge: peer addr %s: %w", peerAddr, err)
		}
	}
	return &UDP{
		conn: conn,
		peer: peer,
		log:  logging.Component("bridge"),
		// one extra byte distinguishes an exact-size datagram from a
		// truncated oversize one
		buf: make([]byte, wire.PacketSize+1),
	}, nil
}

// LocalAddr reports the bound receive address.
func (u *UDP) LocalAddr() net.Addr { return u.conn.LocalAddr() }

func (u *UDP) Send(pkt wire.Packet) error {
	if u.peer == nil {
		return ErrNoPeer
	}
	enc, err := pkt.Encode()
	if err != nil {
		return err
	}
	if _, err := u.conn.WriteToUDP(enc, u.peer); err != nil {
		return fmt.Errorf("bridge: send to %s: %w", u.peer, err)
	}
	return nil
}

func (u *UDP) Recv(timeout time.Duration) (wire.Packet, error) {
	deadline := time.Time{}
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := u.conn.SetReadDeadline(deadline); err != nil {
		return wire.Packet{}, fmt.Errorf("bridge: set deadline: %w", err)
	}
	for {
		n, from, err := u.conn.ReadFromUDP(u.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return wire.Packet{}, mq.ErrTimeout
			}
			return wire.Packet{}, fmt.Errorf("bridge: recv: %w", err)
		}
		if n != wire.PacketSize {
			u.log.Warn().Stringer("from", from).Int("size", n).Msg("dropping mis-sized datagram")
			continue
		}
		return wire.Decode(u.buf[:n])
	}
}

func (u *UDP) Close() error {
	return u.conn.Close()
}
