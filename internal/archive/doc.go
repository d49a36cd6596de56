// Package archive keeps a SQLite journal of every record the daemon commits.
//
// The ring only holds the newest records; the journal keeps all of them with
// the time, source and connection that produced each one so the CLI history
// view can reach past the ring. Schema changes ship as embedded migrations.
package archive
