// Package daemon coordinates the long-running ringlog process.
//
// It wires configuration, the record sink, the TCP line server, the SQLite
// journal, the timestamp stamper and the device watcher into a single
// lifecycle with flock-based locking to prevent multiple instances. Shutdown
// runs in a fixed order: stop accepting, join connections, stop background
// producers, close the sink, close the journal, release the lock.
//
// Keep orchestration logic here; record handling lives in the sink, server
// and logdev packages.
package daemon
