// Package sqlite keeps the mutation journal in a SQLite database at
// <data dir>/journal.db, using the pure Go modernc.org/sqlite driver.
//
// Each committed add, remove or clear appends one row recording the
// operation, its subject, how many pages it touched, and the vector count
// and generation it left behind. Rows are never updated.
//
// The database runs in WAL mode with a busy timeout, so several docagent
// processes may append at once.
package sqlite
