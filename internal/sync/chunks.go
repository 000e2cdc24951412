// Package sync replicates the runtime database to the cloud document store:
// chunked serialization, push-on-write with coalescing, interval and
// listener-driven pulls, and last-writer-wins conflict resolution.
package sync

import (
	"encoding/json"
	"sort"

	"github.com/shivamkjha23-afk/ATR2026/internal/db"
	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// BuildChunks serializes every top-level section of the database into
// size-bounded chunk documents. Chunk boundaries fall on whole-record (or
// whole-entry) boundaries, and every section yields at least one chunk — an
// explicitly empty one when the section is empty — so readers can tell
// "never written" from "empty".
func BuildChunks(database models.DB, budget int) []db.Chunk {
	database.Normalize()
	var chunks []db.Chunk

	for _, name := range models.RecordCollections {
		chunks = append(chunks, chunkRows(name, database.Collection(name), budget)...)
	}
	chunks = append(chunks, chunkImages(database.Images, budget)...)
	return chunks
}

func chunkRows(key string, rows []models.Record, budget int) []db.Chunk {
	chunks := []db.Chunk{{Kind: db.ChunkKindArray, Key: key, Order: 0, Rows: []models.Record{}}}
	size := 0
	for _, row := range rows {
		rowSize := serializedLen(row)
		current := &chunks[len(chunks)-1]
		// A single oversized record still occupies one whole chunk;
		// records are never split.
		if len(current.Rows) > 0 && size+rowSize > budget {
			chunks = append(chunks, db.Chunk{Kind: db.ChunkKindArray, Key: key, Order: len(chunks), Rows: []models.Record{}})
			current = &chunks[len(chunks)-1]
			size = 0
		}
		current.Rows = append(current.Rows, row)
		size += rowSize
	}
	return chunks
}

func chunkImages(images map[string]string, budget int) []db.Chunk {
	keys := make([]string, 0, len(images))
	for k := range images {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chunks := []db.Chunk{{Kind: db.ChunkKindObjectEntries, Key: models.SectionImages, Order: 0, Entries: map[string]string{}}}
	size := 0
	for _, k := range keys {
		entrySize := len(k) + len(images[k]) + 8
		current := &chunks[len(chunks)-1]
		if len(current.Entries) > 0 && size+entrySize > budget {
			chunks = append(chunks, db.Chunk{Kind: db.ChunkKindObjectEntries, Key: models.SectionImages, Order: len(chunks), Entries: map[string]string{}})
			current = &chunks[len(chunks)-1]
			size = 0
		}
		current.Entries[k] = images[k]
		size += entrySize
	}
	return chunks
}

func serializedLen(row models.Record) int {
	raw, err := json.Marshal(row)
	if err != nil {
		return 0
	}
	return len(raw)
}

// Reassemble reconstructs a runtime database from chunk documents and the
// meta stamp. Chunks are grouped by key and ordered; missing or foreign
// chunks degrade to empty sections, never a hard failure.
func Reassemble(chunks []db.Chunk, meta db.ChunkMeta) models.DB {
	grouped := map[string][]db.Chunk{}
	for _, chunk := range chunks {
		grouped[chunk.Key] = append(grouped[chunk.Key], chunk)
	}
	for key := range grouped {
		group := grouped[key]
		sort.Slice(group, func(i, j int) bool { return group[i].Order < group[j].Order })
		grouped[key] = group
	}

	database := models.NewDB()
	for _, name := range models.RecordCollections {
		rows := []models.Record{}
		for _, chunk := range grouped[name] {
			rows = append(rows, chunk.Rows...)
		}
		_ = database.SetCollection(name, rows)
	}
	for _, chunk := range grouped[models.SectionImages] {
		for k, v := range chunk.Entries {
			database.Images[k] = v
		}
	}
	database.Meta.LastUpdated = meta.LastUpdated
	return database
}

// BuildMeta derives the meta document for a database about to be pushed.
func BuildMeta(database models.DB) db.ChunkMeta {
	database.Normalize()
	counts := map[string]int{}
	for _, name := range models.RecordCollections {
		counts[name] = len(database.Collection(name))
	}
	counts[models.SectionImages] = len(database.Images)
	return db.ChunkMeta{
		LastUpdated:   database.Meta.LastUpdated,
		StorageFormat: db.StorageFormatChunked,
		Counts:        counts,
		UpdatedAt:     identity.Now(),
	}
}
