package mq

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Queue is one process-local handle onto a kernel message queue. The
// underlying object is shared with every other handle opened under the same
// name, in this process or any other.
type Queue struct {
	name string
	fd   int

	mu     sync.Mutex
	closed bool
}

// Open creates the named queue if absent, otherwise attaches to it.
// If the queue already exists with a different depth or message size, the
// handle is released and ErrConfigMismatch is returned; attributes are never
// coerced.
func Open(name string, maxMessages, maxMessageSize int) (*Queue, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if maxMessages <= 0 || maxMessageSize <= 0 {
		return nil, fmt.Errorf("mq: open %s: depth and message size must be positive", name)
	}
	fd, err := mqOpenCreate(name, maxMessages, maxMessageSize)
	if err != nil {
		return nil, fmt.Errorf("mq: open %s: %w", name, err)
	}
	q := &Queue{name: name, fd: fd}
	gotMsgs, gotSize, err := q.Attr()
	if err != nil {
		q.Close()
		return nil, err
	}
	if gotMsgs != maxMessages || gotSize != maxMessageSize {
		q.Close()
		return nil, fmt.Errorf("%w: %s has depth=%d size=%d, requested depth=%d size=%d",
			ErrConfigMismatch, name, gotMsgs, gotSize, maxMessages, maxMessageSize)
	}
	return q, nil
}

// OpenExisting attaches to the named queue without ever creating it.
// An absent queue yields ErrNotFound, which callers treat as a normal
// result, not a failure.
func OpenExisting(name string) (*Queue, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	fd, err := mqOpenAttach(name)
	if err != nil {
		if err == errNoEntry {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("mq: open %s: %w", name, err)
	}
	return &Queue{name: name, fd: fd}, nil
}

// Name reports the queue identity this handle was opened under.
func (q *Queue) Name() string { return q.name }

// Attr reports the kernel's depth and message size for the queue.
func (q *Queue) Attr() (maxMessages, maxMessageSize int, err error) {
	attr, err := mqGetAttr(q.fd)
	if err != nil {
		return 0, 0, fmt.Errorf("mq: getattr %s: %w", q.name, err)
	}
	return int(attr.MaxMsg), int(attr.MsgSize), nil
}

// Send enqueues payload at the given priority. Higher priorities are
// delivered first; FIFO within a priority.
//
// timeout == 0 reports ErrFull immediately when the queue has no space,
// timeout > 0 waits at most that long and reports ErrTimeout on expiry,
// timeout < 0 blocks until space is available.
func (q *Queue) Send(priority uint, payload []byte, timeout time.Duration) error {
	if err := q.sendBytes(priority, payload, timeout); err != nil {
		return fmt.Errorf("mq: send %s: %w", q.name, err)
	}
	return nil
}

// Receive dequeues the highest-priority message into buf, which must be at
// least the queue's message size. Timeout semantics mirror Send, with
// ErrEmpty standing in for ErrFull when timeout == 0.
func (q *Queue) Receive(buf []byte, timeout time.Duration) (n int, priority uint, err error) {
	n, priority, err = q.receiveBytes(buf, timeout)
	if err != nil {
		return 0, 0, fmt.Errorf("mq: receive %s: %w", q.name, err)
	}
	return n, priority, nil
}

// Close releases this process's descriptor. The kernel object and every
// other handle to it are unaffected. Close is idempotent.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	if err := mqClose(q.fd); err != nil {
		return fmt.Errorf("mq: close %s: %w", q.name, err)
	}
	return nil
}

// Unlink removes the name from the system. Handles already open keep
// working until closed; new opens fail with ErrNotFound.
func Unlink(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := mqUnlink(name); err != nil {
		if err == errNoEntry {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("mq: unlink %s: %w", name, err)
	}
	return nil
}

// validateName enforces the kernel naming rule: a leading slash and no
// other slash after it.
func validateName(name string) error {
	if len(name) < 2 || name[0] != '/' {
		return fmt.Errorf("%w: %q must start with '/'", ErrNameInvalid, name)
	}
	if strings.ContainsRune(name[1:], '/') {
		return fmt.Errorf("%w: %q may contain only the leading '/'", ErrNameInvalid, name)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: %q exceeds 255 bytes", ErrNameInvalid, name)
	}
	return nil
}
