package indexfile

// metaSchema creates the tables of a metadata artifact.
const metaSchema = `
CREATE TABLE snapshot (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE slots (
    slot   INTEGER PRIMARY KEY,
    doc_id TEXT    NOT NULL UNIQUE
);

CREATE TABLE documents (
    doc_id      TEXT    PRIMARY KEY,
    text        TEXT    NOT NULL,
    source_id   TEXT    NOT NULL,
    page_number INTEGER NOT NULL
);

CREATE INDEX idx_documents_source ON documents (source_id, page_number);
`

// Keys of the snapshot table.
const (
	keyFormat     = "format"
	keyGeneration = "generation"
	keyDimension  = "dimension"
	keyCount      = "count"
	keyVectorsCRC = "vectors_crc32"
)

const metaFormat = "1"
