package db

import (
	"context"

	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// Chunk kinds. Array-shaped collections replicate as "array" chunks holding
// whole records; the images map replicates as "object_entries" chunks of
// (key, value) pairs reconstituted into a mapping on read.
const (
	ChunkKindArray         = "array"
	ChunkKindObjectEntries = "object_entries"
)

// StorageFormatChunked tags the chunked multi-document scheme. A meta
// document with any other format is treated as a foreign (superseded) layout
// and ignored.
const StorageFormatChunked = "chunked-v1"

// Chunk is one bounded-size remote document holding a contiguous slice of one
// collection's records or image-map entries.
type Chunk struct {
	Kind    string            `firestore:"kind" json:"kind"`
	Key     string            `firestore:"key" json:"key"`
	Order   int               `firestore:"order" json:"order"`
	Rows    []models.Record   `firestore:"rows,omitempty" json:"rows,omitempty"`
	Entries map[string]string `firestore:"entries,omitempty" json:"entries,omitempty"`
}

// ChunkMeta is the lightweight per-database document: the authoritative
// last_updated stamp, the storage format tag and diagnostic row counts. It is
// small enough to always fit in one write regardless of data volume.
type ChunkMeta struct {
	LastUpdated   string         `firestore:"last_updated" json:"last_updated"`
	StorageFormat string         `firestore:"storage_format" json:"storage_format"`
	Counts        map[string]int `firestore:"counts" json:"counts"`
	UpdatedAt     string         `firestore:"updated_at" json:"updated_at"`
}

// RemoteStore is the cloud document store the replication engine writes the
// chunked database to. Implementations must be safe for concurrent use.
type RemoteStore interface {
	// LoadMeta reads the meta document. (nil, nil) means the remote
	// database does not exist yet (first run).
	LoadMeta(ctx context.Context) (*ChunkMeta, error)

	// LoadChunks reads every chunk document, in no particular order.
	LoadChunks(ctx context.Context) ([]Chunk, error)

	// Replace deletes all existing chunk documents, writes the given set
	// and writes the meta document last.
	Replace(ctx context.Context, chunks []Chunk, meta ChunkMeta) error

	// WatchMeta invokes onChange for every remote change to the meta
	// document. It blocks until ctx is done.
	WatchMeta(ctx context.Context, onChange func()) error
}
