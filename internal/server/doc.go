// Package server implements the TCP line server.
//
// Each connection sends one newline-terminated record. The server commits it
// to the configured sink, optionally journals it, streams the whole log back
// and closes the connection. Connections run on a workers.Registry so Stop
// can join every one of them.
package server
