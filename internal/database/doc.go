// Package database provides SQLite-based storage for classification records.
//
// RecordDB keeps one row per domain in the records table (the latest
// classification, upserted on every save) and appends every save to
// record_history so earlier runs stay queryable by run ID.
//
// Design decision: SQLite (via modernc.org/sqlite) keeps the store a single
// CGO-free file under the XDG data directory. Writes are serialised through
// one connection; the batch pipeline saves from many goroutines and WAL mode
// keeps concurrent listing cheap.
//
// The store only creates its tables if they are absent. There is no
// migration or schema versioning.
package database
