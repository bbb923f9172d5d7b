//go:build linux

package router

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/mqipc/internal/codec"
	"github.com/danmuck/mqipc/internal/mq"
	"github.com/danmuck/mqipc/internal/testutil/testlog"
	"github.com/danmuck/mqipc/internal/topic"
	"github.com/danmuck/mqipc/internal/wire"
)

type motorState struct {
	Position float32
	Velocity float32
	Torque   float32
}

func routerTopicName(t *testing.T, tag string) string {
	t.Helper()
	name := fmt.Sprintf("/mqipc_router_%s_%d", tag, os.Getpid())
	t.Cleanup(func() {
		_ = mq.Unlink(name)
	})
	return name
}

func encodedMotorState(t *testing.T, v motorState) []byte {
	t.Helper()
	c, err := codec.For[motorState]()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	payload, err := c.Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return payload
}

func TestRouteEmptyTopicDropsSilently(t *testing.T) {
	testlog.Start(t)
	r := New()
	defer r.Close()

	if err := r.Route(wire.Packet{Topic: "", Payload: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("heartbeat packet: %v", err)
	}
}

func TestRouteAbsentTopicDropsAndNeverCreates(t *testing.T) {
	testlog.Start(t)
	name := fmt.Sprintf("/mqipc_router_absent_%d", os.Getpid())

	r := New()
	defer r.Close()

	if err := r.Route(wire.Packet{Topic: name, Payload: []byte{1}}); err != nil {
		t.Fatalf("absent topic should drop silently, got %v", err)
	}
	if _, err := mq.OpenExisting(name); !errors.Is(err, mq.ErrNotFound) {
		t.Fatalf("router created a queue for an absent topic: %v", err)
	}
}

func TestRouteDeliversToPresentTopic(t *testing.T) {
	testlog.Start(t)
	name := routerTopicName(t, "present")

	tp, err := topic.New[motorState](name, 4, topic.WithPollInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("new topic: %v", err)
	}
	defer tp.Close()

	var mu sync.Mutex
	var got []motorState
	tp.Subscribe(func(v motorState) error {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		return nil
	})

	r := New()
	defer r.Close()

	want := motorState{Position: 4.5, Velocity: 2, Torque: 0.1}
	pkt := wire.Packet{Topic: name, Payload: encodedMotorState(t, want)}
	if err := r.Route(pkt); err != nil {
		t.Fatalf("route: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber saw %d messages, want 1", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if got[0] != want {
		t.Fatalf("delivered %+v, want %+v", got[0], want)
	}
}

func TestRouteFullPresentTopicReportsError(t *testing.T) {
	testlog.Start(t)
	name := routerTopicName(t, "fullpresent")

	q, err := mq.Open(name, 1, 12)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer q.Close()
	if err := q.Send(0, make([]byte, 12), 0); err != nil {
		t.Fatalf("fill: %v", err)
	}

	r := New()
	defer r.Close()

	pkt := wire.Packet{Topic: name, Payload: make([]byte, 12)}
	if err := r.Route(pkt); !errors.Is(err, mq.ErrFull) {
		t.Fatalf("expected mq.ErrFull on a present, full topic, got %v", err)
	}
}

// fakeSource feeds a scripted packet sequence; exhausted means idle.
type fakeSource struct {
	mu   sync.Mutex
	pkts []wire.Packet
}

func (s *fakeSource) Next(timeout time.Duration) (wire.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pkts) == 0 {
		return wire.Packet{}, mq.ErrTimeout
	}
	pkt := s.pkts[0]
	s.pkts = s.pkts[1:]
	return pkt, nil
}

func TestRunDrainsSourceUntilCancelled(t *testing.T) {
	testlog.Start(t)
	name := routerTopicName(t, "run")

	tp, err := topic.New[motorState](name, 8, topic.WithPollInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("new topic: %v", err)
	}
	defer tp.Close()

	var mu sync.Mutex
	var got []motorState
	tp.Subscribe(func(v motorState) error {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		return nil
	})

	want := []motorState{{Position: 1}, {Position: 2}}
	src := &fakeSource{pkts: []wire.Packet{
		{Topic: name, Payload: encodedMotorState(t, want[0])},
		{Topic: ""}, // heartbeat, dropped
		{Topic: "/mqipc_router_nowhere", Payload: []byte{9}}, // absent, dropped
		{Topic: name, Payload: encodedMotorState(t, want[1])},
	}}

	r := New(WithPollInterval(10 * time.Millisecond))
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, src)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber saw %d messages, want 2", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("delivered %+v, want %+v", got, want)
	}
}
