//go:build linux

package mq

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mqAttr mirrors the kernel's struct mq_attr; every field is a C long.
type mqAttr struct {
	Flags   int
	MaxMsg  int
	MsgSize int
	CurMsgs int
	_       [4]int
}

// errNoEntry is the platform's "no such queue" errno, mapped to ErrNotFound
// by the portable layer.
var errNoEntry error = unix.ENOENT

const createMode = 0o666

// kernelName strips the leading slash the same way libc does before handing
// the name to the mq_* syscalls.
func kernelName(name string) (*byte, error) {
	return unix.BytePtrFromString(name[1:])
}

func mqOpenCreate(name string, maxMessages, maxMessageSize int) (int, error) {
	p, err := kernelName(name)
	if err != nil {
		return -1, err
	}
	attr := mqAttr{MaxMsg: maxMessages, MsgSize: maxMessageSize}
	fd, _, errno := unix.Syscall6(unix.SYS_MQ_OPEN,
		uintptr(unsafe.Pointer(p)),
		uintptr(unix.O_CREAT|unix.O_RDWR),
		uintptr(createMode),
		uintptr(unsafe.Pointer(&attr)), 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

func mqOpenAttach(name string) (int, error) {
	p, err := kernelName(name)
	if err != nil {
		return -1, err
	}
	fd, _, errno := unix.Syscall6(unix.SYS_MQ_OPEN,
		uintptr(unsafe.Pointer(p)),
		uintptr(unix.O_RDWR), 0, 0, 0, 0)
	if errno != 0 {
		if errno == unix.ENOENT {
			return -1, errNoEntry
		}
		return -1, errno
	}
	return int(fd), nil
}

func mqGetAttr(fd int) (mqAttr, error) {
	var attr mqAttr
	_, _, errno := unix.Syscall6(unix.SYS_MQ_GETSETATTR,
		uintptr(fd), 0, uintptr(unsafe.Pointer(&attr)), 0, 0, 0)
	if errno != 0 {
		return mqAttr{}, errno
	}
	return attr, nil
}

func mqClose(fd int) error {
	return unix.Close(fd)
}

func mqUnlink(name string) error {
	p, err := kernelName(name)
	if err != nil {
		return err
	}
	_, _, errno := unix.Syscall(unix.SYS_MQ_UNLINK,
		uintptr(unsafe.Pointer(p)), 0, 0)
	if errno != 0 {
		if errno == unix.ENOENT {
			return errNoEntry
		}
		return errno
	}
	return nil
}

// deadlineFor converts a relative timeout to the absolute timespec the
// timed syscalls expect. A negative timeout means block indefinitely,
// expressed as a nil timespec.
func deadlineFor(timeout time.Duration) *unix.Timespec {
	if timeout < 0 {
		return nil
	}
	ts := unix.NsecToTimespec(time.Now().Add(timeout).UnixNano())
	return &ts
}

func (q *Queue) sendBytes(priority uint, payload []byte, timeout time.Duration) error {
	var base *byte
	if len(payload) > 0 {
		base = &payload[0]
	}
	deadline := deadlineFor(timeout)
	for {
		_, _, errno := unix.Syscall6(unix.SYS_MQ_TIMEDSEND,
			uintptr(q.fd),
			uintptr(unsafe.Pointer(base)),
			uintptr(len(payload)),
			uintptr(priority),
			uintptr(unsafe.Pointer(deadline)), 0)
		switch errno {
		case 0:
			return nil
		case unix.EINTR:
			// absolute deadline, safe to retry as-is
			continue
		case unix.ETIMEDOUT:
			if timeout == 0 {
				return ErrFull
			}
			return ErrTimeout
		case unix.EMSGSIZE:
			return ErrMsgTooLong
		case unix.EBADF:
			return ErrClosed
		default:
			return errno
		}
	}
}

func (q *Queue) receiveBytes(buf []byte, timeout time.Duration) (int, uint, error) {
	var base *byte
	if len(buf) > 0 {
		base = &buf[0]
	}
	var prio uint32
	deadline := deadlineFor(timeout)
	for {
		n, _, errno := unix.Syscall6(unix.SYS_MQ_TIMEDRECEIVE,
			uintptr(q.fd),
			uintptr(unsafe.Pointer(base)),
			uintptr(len(buf)),
			uintptr(unsafe.Pointer(&prio)),
			uintptr(unsafe.Pointer(deadline)), 0)
		switch errno {
		case 0:
			return int(n), uint(prio), nil
		case unix.EINTR:
			continue
		case unix.ETIMEDOUT:
			if timeout == 0 {
				return 0, 0, ErrEmpty
			}
			return 0, 0, ErrTimeout
		case unix.EMSGSIZE:
			return 0, 0, ErrMsgTooLong
		case unix.EBADF:
			return 0, 0, ErrClosed
		default:
			return 0, 0, errno
		}
	}
}
