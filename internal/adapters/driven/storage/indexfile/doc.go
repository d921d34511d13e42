// Package indexfile persists index snapshots as a pair of generation-named
// artifacts in one directory:
//
//	vectors-<gen>.bin  the serialised similarity index
//	meta-<gen>.db      SQLite file holding the slot map and document store
//	CURRENT            one line naming the committed generation
//
// A snapshot becomes visible only when CURRENT is atomically replaced, so a
// crash at any point leaves the previous generation readable.
package indexfile
