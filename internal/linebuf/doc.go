// Package linebuf collects writer input until a newline completes a record.
//
// An Accumulator belongs to exactly one writer: the device's single global
// writer or one TCP connection. It grows by doubling up to a fixed limit and
// hands the completed record, terminator included, back to the caller for
// commit.
package linebuf
