// Package mq owns the raw bounded named queue primitives.
//
// Ownership boundary:
// - kernel queue lifecycle (create-or-open, attach, close, unlink)
// - timed send/receive with priority
// - errno-to-sentinel mapping
//
// A Queue is one process-local descriptor onto a host-wide kernel object.
// The kernel is the only authority on queue existence and contents; this
// package keeps no state beyond the descriptor and the name it was opened
// under.
package mq
