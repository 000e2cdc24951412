package core

import (
	"fmt"

	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// Upsert writes one record into a collection with audit stamping. A payload
// whose id matches an existing record is shallow-merged over it, preserving
// the original id and entered_by; otherwise an id is assigned (the caller's
// if supplied, generated with idPrefix if not) and the record appended.
// Every call produces exactly one Replace and therefore one scheduled push.
func (s *Store) Upsert(collection string, payload models.Record, actor string) (models.Record, error) {
	count, last, err := s.applyUpserts(collection, []models.Record{payload}, actor)
	if err != nil {
		return nil, err
	}
	if count != 1 || last == nil {
		return nil, fmt.Errorf("upsert into %s applied %d records", collection, count)
	}
	return last, nil
}

// BatchUpsert applies the per-record upsert rule to every payload against one
// read-modify-write cycle of the collection, so a bulk import of N rows
// produces exactly one Replace. Returns the number of payloads processed.
func (s *Store) BatchUpsert(collection string, payloads []models.Record, actor string) (int, error) {
	count, _, err := s.applyUpserts(collection, payloads, actor)
	return count, err
}

func (s *Store) applyUpserts(collection string, payloads []models.Record, actor string) (int, models.Record, error) {
	if !models.IsRecordCollection(collection) {
		return 0, nil, fmt.Errorf("unknown collection %q", collection)
	}
	actor = identity.ActorOrSystem(actor)

	var count int
	var last models.Record
	err := s.Update(func(db *models.DB) error {
		count, last = upsertRows(db, collection, payloads, actor)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return count, last, nil
}

// upsertRows applies the per-record upsert rule in place. The caller holds
// the store's write lock and has validated the collection name.
func upsertRows(db *models.DB, collection string, payloads []models.Record, actor string) (int, models.Record) {
	prefix := models.IDPrefixes[collection]
	rows := db.Collection(collection)

	index := make(map[string]int, len(rows))
	for i, row := range rows {
		if id := row.ID(); id != "" {
			index[id] = i
		}
	}

	count := 0
	var last models.Record
	for _, payload := range payloads {
		if payload == nil {
			continue
		}
		payload = payload.Clone()
		if collection == models.CollectionInspections {
			models.NormalizeInspection(payload)
		}
		now := identity.Now()

		if i, ok := index[payload.ID()]; ok && payload.ID() != "" {
			merged := rows[i].Clone()
			for k, v := range payload {
				merged[k] = v
			}
			// id and entered_by are set once at creation and survive merges.
			merged[models.FieldID] = rows[i].ID()
			if by := rows[i].String(models.FieldEnteredBy); by != "" {
				merged[models.FieldEnteredBy] = by
			}
			merged[models.FieldUpdatedBy] = actor
			merged[models.FieldTimestamp] = now
			rows[i] = merged
			last = merged
		} else {
			if payload.ID() == "" {
				payload[models.FieldID] = identity.NewID(prefix)
			}
			payload[models.FieldEnteredBy] = actor
			payload[models.FieldUpdatedBy] = actor
			payload[models.FieldTimestamp] = now
			rows = append(rows, payload)
			index[payload.ID()] = len(rows) - 1
			last = payload
		}
		count++
	}

	_ = db.SetCollection(collection, rows)
	return count, last
}

// DeleteByID removes the record with the matching id. Absent ids are a no-op
// and still count as success.
func (s *Store) DeleteByID(collection, id string) error {
	if !models.IsRecordCollection(collection) {
		return fmt.Errorf("unknown collection %q", collection)
	}
	return s.Update(func(db *models.DB) error {
		rows := db.Collection(collection)
		kept := rows[:0]
		removed := false
		for _, row := range rows {
			if !removed && row.ID() == id {
				removed = true
				continue
			}
			kept = append(kept, row)
		}
		if !removed {
			return errUnchanged
		}
		return db.SetCollection(collection, kept)
	})
}
