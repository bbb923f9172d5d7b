// Package wire owns the self-describing packet format and the mirror layer.
//
// Ownership boundary:
// - the bit-exact Packet framing every bridge must preserve
// - Tx, the typed topic wrapper that re-exports each publish onto the
//   well-known mirror queue
//
// A packet carries topic identity plus raw payload, which is everything a
// receiver with no shared registry needs: it routes by attempting to open a
// queue of that name and drops the packet when none exists.
package wire
