// Package ringbuf implements the fixed-capacity record store behind ringlog.
//
// A Store keeps the most recent newline-terminated records in a circular array
// of slots, evicting the oldest record once every slot is occupied. Records are
// addressed two ways: by absolute byte offset into the oldest-first
// concatenation of all stored records (FindByOffset), and by logical record
// index plus an intra-record offset (Locate), which is what the SEEKTO control
// command resolves.
//
// The store performs no locking and never logs. Front ends serialize access
// through an interruptible critical section and decide how the typed errors in
// this package surface to their callers.
package ringbuf
