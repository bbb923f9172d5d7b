// Package topic owns typed publish/subscribe over one bounded named queue.
//
// Ownership boundary:
// - create-or-open vs attach lifecycle of the typed handle
// - encode-then-send publish on the caller's goroutine
// - the per-handle receive worker and ordered in-process fan-out
// - subscriber failure isolation and the process-wide error hook
//
// The kernel queue is shared across processes and distributes: each message
// is won by exactly one attached handle. Broadcast happens only inside a
// handle, across its registered subscribers.
package topic
