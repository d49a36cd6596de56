// Package main hosts the ringlog CLI entrypoint and command graph.
//
// Commands talk to a running daemon over its IPC socket, except `send`,
// which is a plain TCP client of the line server, and `config`, which only
// touches the configuration file.
package main
