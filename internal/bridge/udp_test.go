package bridge

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/mqipc/internal/mq"
	"github.com/danmuck/mqipc/internal/testutil/testlog"
	"github.com/danmuck/mqipc/internal/wire"
)

func newPair(t *testing.T) (rx, tx *UDP) {
	t.Helper()
	rx, err := NewUDP("127.0.0.1:0", "")
	if err != nil {
		t.Fatalf("rx bridge: %v", err)
	}
	t.Cleanup(func() { rx.Close() })

	tx, err = NewUDP("127.0.0.1:0", rx.LocalAddr().String())
	if err != nil {
		t.Fatalf("tx bridge: %v", err)
	}
	t.Cleanup(func() { tx.Close() })
	return rx, tx
}

func TestUDPRoundTrip(t *testing.T) {
	testlog.Start(t)
	rx, tx := newPair(t)

	in := wire.Packet{Topic: "/motor_state", Payload: []byte{1, 2, 3, 4}}
	if err := tx.Send(in); err != nil {
		t.Fatalf("send: %v", err)
	}

	out, err := rx.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if out.Topic != in.Topic || !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("received %+v, want %+v", out, in)
	}
}

func TestUDPRecvTimeout(t *testing.T) {
	testlog.Start(t)
	rx, _ := newPair(t)

	if _, err := rx.Recv(30 * time.Millisecond); !errors.Is(err, mq.ErrTimeout) {
		t.Fatalf("expected mq.ErrTimeout, got %v", err)
	}
}

func TestUDPDropsMisSizedDatagrams(t *testing.T) {
	testlog.Start(t)
	rx, tx := newPair(t)

	// A runt datagram straight onto the socket must not surface.
	raw, err := net.Dial("udp", rx.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close()
	if _, err := raw.Write([]byte{0xde, 0xad}); err != nil {
		t.Fatalf("write runt: %v", err)
	}

	in := wire.Packet{Topic: "/ok", Payload: []byte{7}}
	if err := tx.Send(in); err != nil {
		t.Fatalf("send: %v", err)
	}

	out, err := rx.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if out.Topic != "/ok" {
		t.Fatalf("received topic %q, want /ok", out.Topic)
	}
}

func TestUDPSendWithoutPeer(t *testing.T) {
	rx, _ := newPair(t)
	if err := rx.Send(wire.Packet{Topic: "/x"}); !errors.Is(err, ErrNoPeer) {
		t.Fatalf("expected ErrNoPeer, got %v", err)
	}
}
