// Package logdev is the character-device front end of the record store.
//
// A Device owns the ring buffer, the single global write accumulator and the
// interruptible lock that serializes every store access. Callers Open a File
// handle that behaves like a file descriptor on /dev/aesdchar: reads walk the
// concatenated log from the handle's position, writes append (the position is
// ignored), Seek is bounded by the current log size and SeekTo jumps to a byte
// within a logical record.
//
// Files are not safe for concurrent use; open one handle per goroutine, the way
// each process holds its own descriptor.
package logdev
