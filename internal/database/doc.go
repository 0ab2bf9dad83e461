// Package database keeps the history of mirror runs in SQLite.
//
// Each finished run is stored with its counters, its termination reason,
// its manifest, and the list of files it wrote. The history is an audit log:
// it is listed by the history command and never read back to resume a crawl.
//
// Design decision: SQLite via modernc.org/sqlite. The database is a single
// file under the XDG data directory and the driver needs no cgo.
package database
