package indexfile

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/logger"
)

// Ensure Repository implements the interface.
var _ driven.IndexRepository = (*Repository)(nil)

const currentFile = "CURRENT"

// Repository stores snapshots under a directory per index.
type Repository struct {
	factory driven.SimilarityIndexFactory

	// rename is swapped in tests to simulate I/O failures.
	rename func(oldpath, newpath string) error
}

// NewRepository creates a repository that decodes vectors with factory.
func NewRepository(factory driven.SimilarityIndexFactory) *Repository {
	return &Repository{
		factory: factory,
		rename:  os.Rename,
	}
}

func vectorsName(gen string) string { return "vectors-" + gen + ".bin" }
func metaName(gen string) string    { return "meta-" + gen + ".db" }

// ==================== Load ====================

// Load returns the committed snapshot, or nil when path holds none.
func (r *Repository) Load(ctx context.Context, path string) (*driven.IndexSnapshot, error) {
	gen, err := readCurrent(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.CorruptIndexError{Path: path, Reason: "read CURRENT", Err: err}
	}

	vectors, crc, err := r.loadVectors(filepath.Join(path, vectorsName(gen)))
	if err != nil {
		return nil, &domain.CorruptIndexError{Path: path, Reason: "vectors of generation " + gen, Err: err}
	}

	snap, err := loadMeta(ctx, filepath.Join(path, metaName(gen)), gen, crc, vectors)
	if err != nil {
		var corrupt *domain.CorruptIndexError
		if errors.As(err, &corrupt) {
			corrupt.Path = path
			return nil, corrupt
		}
		return nil, &domain.CorruptIndexError{Path: path, Reason: "metadata of generation " + gen, Err: err}
	}

	logger.Debug("loaded index %s generation %s: %d slots", path, gen, len(snap.Slots))
	return snap, nil
}

func readCurrent(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(path, currentFile))
	if err != nil {
		return "", err
	}
	gen := strings.TrimSpace(string(data))
	if gen == "" || strings.ContainsAny(gen, `/\`) || gen != filepath.Base(gen) {
		return "", fmt.Errorf("invalid generation %q", gen)
	}
	return gen, nil
}

func (r *Repository) loadVectors(file string) (driven.SimilarityIndex, uint32, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, 0, err
	}
	index, err := r.factory.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	return index, crc32.ChecksumIEEE(data), nil
}

func loadMeta(
	ctx context.Context,
	file, gen string,
	vectorsCRC uint32,
	vectors driven.SimilarityIndex,
) (*driven.IndexSnapshot, error) {
	// Opening a missing file would create it.
	if _, err := os.Stat(file); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", file+"?_pragma=query_only(1)")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	meta := make(map[string]string)
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM snapshot")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, err
		}
		meta[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mismatch := func(reason string) error {
		return &domain.CorruptIndexError{Reason: reason}
	}
	if meta[keyFormat] != metaFormat {
		return nil, mismatch(fmt.Sprintf("unsupported metadata format %q", meta[keyFormat]))
	}
	if meta[keyGeneration] != gen {
		return nil, mismatch(fmt.Sprintf("metadata generation %q does not match CURRENT %q", meta[keyGeneration], gen))
	}
	if meta[keyVectorsCRC] != strconv.FormatUint(uint64(vectorsCRC), 10) {
		return nil, mismatch("vectors artifact does not belong to this metadata")
	}
	if dim, _ := strconv.Atoi(meta[keyDimension]); dim != vectors.Dimension() {
		return nil, mismatch(fmt.Sprintf("metadata dimension %s does not match vectors dimension %d",
			meta[keyDimension], vectors.Dimension()))
	}
	count, _ := strconv.Atoi(meta[keyCount])
	if count != vectors.Len() {
		return nil, mismatch(fmt.Sprintf("metadata count %d does not match vector count %d", count, vectors.Len()))
	}

	slots, err := loadSlots(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(slots) != count {
		return nil, mismatch(fmt.Sprintf("%d slots for %d vectors", len(slots), count))
	}

	records, err := loadDocuments(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(records) != len(slots) {
		return nil, mismatch(fmt.Sprintf("%d documents for %d slots", len(records), len(slots)))
	}
	for slot, docID := range slots {
		if _, ok := records[docID]; !ok {
			return nil, mismatch(fmt.Sprintf("slot %d references missing document %s", slot, docID))
		}
	}

	return &driven.IndexSnapshot{
		Slots:      slots,
		Records:    records,
		Vectors:    vectors,
		Generation: gen,
	}, nil
}

func loadSlots(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT slot, doc_id FROM slots ORDER BY slot")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var (
			slot  int
			docID string
		)
		if err := rows.Scan(&slot, &docID); err != nil {
			return nil, err
		}
		if slot != len(slots) {
			return nil, &domain.CorruptIndexError{Reason: fmt.Sprintf("slot %d found where %d expected", slot, len(slots))}
		}
		slots = append(slots, docID)
	}
	return slots, rows.Err()
}

func loadDocuments(ctx context.Context, db *sql.DB) (map[string]domain.DocumentRecord, error) {
	rows, err := db.QueryContext(ctx, "SELECT doc_id, text, source_id, page_number FROM documents")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make(map[string]domain.DocumentRecord)
	for rows.Next() {
		var rec domain.DocumentRecord
		if err := rows.Scan(&rec.DocID, &rec.Text, &rec.Metadata.SourceID, &rec.Metadata.PageNumber); err != nil {
			return nil, err
		}
		records[rec.DocID] = rec
	}
	return records, rows.Err()
}

// ==================== Save ====================

// Save writes a new generation and commits it by replacing CURRENT.
// On failure the committed generation is untouched.
func (r *Repository) Save(ctx context.Context, path string, snap *driven.IndexSnapshot) (string, error) {
	if len(snap.Slots) != snap.Vectors.Len() {
		return "", &domain.StorageError{Path: path, Op: "save", Err: fmt.Errorf(
			"refusing to persist %d slots with %d vectors", len(snap.Slots), snap.Vectors.Len())}
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return "", &domain.StorageError{Path: path, Op: "create index directory", Err: err}
	}

	gen := uuid.NewString()
	vectorsPath := filepath.Join(path, vectorsName(gen))
	metaPath := filepath.Join(path, metaName(gen))

	fail := func(op string, err error) (string, error) {
		os.Remove(vectorsPath)
		os.Remove(metaPath)
		return "", &domain.StorageError{Path: path, Op: op, Err: err}
	}

	crc, err := r.writeVectors(path, vectorsPath, snap.Vectors)
	if err != nil {
		return fail("write vectors", err)
	}
	if err := r.writeMeta(ctx, path, metaPath, gen, crc, snap); err != nil {
		return fail("write metadata", err)
	}
	if err := ctx.Err(); err != nil {
		return fail("commit", err)
	}
	if err := r.writeCurrent(path, gen); err != nil {
		return fail("commit", err)
	}

	removeSuperseded(path, gen)
	logger.Debug("saved index %s generation %s: %d slots", path, gen, len(snap.Slots))
	return gen, nil
}

// writeVectors writes the blob to a temp file and renames it into place.
func (r *Repository) writeVectors(dir, final string, vectors driven.SimilarityIndex) (uint32, error) {
	tmp, err := os.CreateTemp(dir, ".vectors-*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	hash := crc32.NewIEEE()
	if _, err := vectors.WriteTo(io.MultiWriter(tmp, hash)); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := r.rename(tmp.Name(), final); err != nil {
		return 0, err
	}
	return hash.Sum32(), nil
}

// writeMeta builds the SQLite artifact in a temp file and renames it into place.
func (r *Repository) writeMeta(
	ctx context.Context,
	dir, final, gen string,
	vectorsCRC uint32,
	snap *driven.IndexSnapshot,
) error {
	tmpPath := filepath.Join(dir, ".meta-"+gen+".tmp")
	defer os.Remove(tmpPath)

	if err := buildMeta(ctx, tmpPath, gen, vectorsCRC, snap); err != nil {
		return err
	}
	if err := syncFile(tmpPath); err != nil {
		return err
	}
	return r.rename(tmpPath, final)
}

func buildMeta(ctx context.Context, file, gen string, vectorsCRC uint32, snap *driven.IndexSnapshot) error {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, metaSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	meta := map[string]string{
		keyFormat:     metaFormat,
		keyGeneration: gen,
		keyDimension:  strconv.Itoa(snap.Vectors.Dimension()),
		keyCount:      strconv.Itoa(len(snap.Slots)),
		keyVectorsCRC: strconv.FormatUint(uint64(vectorsCRC), 10),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO snapshot (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("insert snapshot %s: %w", k, err)
		}
	}

	slotStmt, err := tx.PrepareContext(ctx, "INSERT INTO slots (slot, doc_id) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer slotStmt.Close()
	docStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (doc_id, text, source_id, page_number) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer docStmt.Close()

	for slot, docID := range snap.Slots {
		rec, ok := snap.Records[docID]
		if !ok {
			return fmt.Errorf("slot %d references missing document %s", slot, docID)
		}
		if _, err := slotStmt.ExecContext(ctx, slot, docID); err != nil {
			return fmt.Errorf("insert slot %d: %w", slot, err)
		}
		if _, err := docStmt.ExecContext(ctx, rec.DocID, rec.Text, rec.Metadata.SourceID, rec.Metadata.PageNumber); err != nil {
			return fmt.Errorf("insert document %s: %w", rec.DocID, err)
		}
	}

	return tx.Commit()
}

// writeCurrent atomically points CURRENT at gen.
func (r *Repository) writeCurrent(dir, gen string) error {
	tmp, err := os.CreateTemp(dir, ".CURRENT-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(gen + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := r.rename(tmp.Name(), filepath.Join(dir, currentFile)); err != nil {
		return err
	}
	return syncDir(dir)
}

// removeSuperseded deletes artifacts of every other generation, best-effort.
func removeSuperseded(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if name == vectorsName(keep) || name == metaName(keep) {
			continue
		}
		isVectors := strings.HasPrefix(name, "vectors-") && strings.HasSuffix(name, ".bin")
		isMeta := strings.HasPrefix(name, "meta-") && strings.HasSuffix(name, ".db")
		if !isVectors && !isMeta {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			logger.Warn("remove superseded %s: %v", name, err)
		}
	}
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some platforms cannot fsync a directory.
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		logger.Debug("fsync %s: %v", dir, err)
	}
	return nil
}
