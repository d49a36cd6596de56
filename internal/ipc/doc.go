// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships
// the matching client used by the CLI.
//
// Request and response types are plain structs so the wire format stays
// stable when the daemon grows new status fields.
package ipc
