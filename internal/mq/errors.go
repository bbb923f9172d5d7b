package mq

import "errors"

var (
	ErrNameInvalid    = errors.New("mq: invalid queue name")
	ErrNotFound       = errors.New("mq: queue not found")
	ErrConfigMismatch = errors.New("mq: existing queue attributes mismatch")
	ErrFull           = errors.New("mq: queue full")
	ErrEmpty          = errors.New("mq: queue empty")
	ErrTimeout        = errors.New("mq: operation timed out")
	ErrClosed         = errors.New("mq: queue closed")
	ErrMsgTooLong     = errors.New("mq: message exceeds queue message size")
)
