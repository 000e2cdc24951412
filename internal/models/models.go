// Package models defines the runtime database value that the whole service
// replicates: four record collections, the image reference map and the
// _meta stamp consulted by conflict resolution.
package models

import (
	"encoding/json"
	"fmt"
)

// Collection names. These are the five replicated sections of the runtime
// database; the first four hold records, Images holds path→URL entries.
const (
	CollectionInspections  = "inspections"
	CollectionObservations = "observations"
	CollectionRequisitions = "requisitions"
	CollectionUsers        = "users"
	SectionImages          = "images"
)

// RecordCollections lists the record-shaped collections in replication order.
var RecordCollections = []string{
	CollectionInspections,
	CollectionObservations,
	CollectionRequisitions,
	CollectionUsers,
}

// IDPrefixes maps each record collection to its generated-id prefix.
var IDPrefixes = map[string]string{
	CollectionInspections:  "INSP",
	CollectionObservations: "OBS",
	CollectionRequisitions: "REQ",
	CollectionUsers:        "USR",
}

// Record is one open-schema row of a collection. Domain fields are carried
// through unchanged; the audit fields below are owned by the upsert layer.
type Record map[string]any

// Audit field names stamped by the upsert layer.
const (
	FieldID        = "id"
	FieldTimestamp = "timestamp"
	FieldEnteredBy = "entered_by"
	FieldUpdatedBy = "updated_by"
)

// ID returns the record's id, or "" when unset.
func (r Record) ID() string {
	return r.String(FieldID)
}

// String returns the named field coerced to a string. Non-string values
// (numbers from JSON or Firestore decoding) are formatted; nil yields "".
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the named field as a boolean, false when absent or not a bool.
func (r Record) Bool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// Clone deep-copies the record through a JSON round trip. Records nest
// arbitrary JSON values, so a structural copy is the only exact one.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := Record{}
	raw, err := json.Marshal(r)
	if err != nil {
		// A record always originates from decoded JSON; this cannot fire
		// for data the service itself produced.
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

// Meta carries the replication stamp. LastUpdated is the sole field consulted
// by conflict resolution; it is set only when the database is replaced.
type Meta struct {
	LastUpdated string `json:"last_updated" firestore:"last_updated"`
}

// DB is the runtime database: the single unit of persistence and replication.
type DB struct {
	Inspections  []Record          `json:"inspections"`
	Observations []Record          `json:"observations"`
	Requisitions []Record          `json:"requisitions"`
	Users        []Record          `json:"users"`
	Images       map[string]string `json:"images"`
	Meta         Meta              `json:"_meta"`
}

// NewDB returns an empty, fully initialized runtime database.
func NewDB() DB {
	db := DB{}
	db.Normalize()
	return db
}

// Normalize replaces nil sections with empty ones so that every DB value is
// well formed regardless of where it was decoded from.
func (db *DB) Normalize() {
	if db.Inspections == nil {
		db.Inspections = []Record{}
	}
	if db.Observations == nil {
		db.Observations = []Record{}
	}
	if db.Requisitions == nil {
		db.Requisitions = []Record{}
	}
	if db.Users == nil {
		db.Users = []Record{}
	}
	if db.Images == nil {
		db.Images = map[string]string{}
	}
}

// Collection returns the named record collection, or nil for an unknown name.
func (db *DB) Collection(name string) []Record {
	switch name {
	case CollectionInspections:
		return db.Inspections
	case CollectionObservations:
		return db.Observations
	case CollectionRequisitions:
		return db.Requisitions
	case CollectionUsers:
		return db.Users
	}
	return nil
}

// SetCollection replaces the named record collection in place.
func (db *DB) SetCollection(name string, rows []Record) error {
	if rows == nil {
		rows = []Record{}
	}
	switch name {
	case CollectionInspections:
		db.Inspections = rows
	case CollectionObservations:
		db.Observations = rows
	case CollectionRequisitions:
		db.Requisitions = rows
	case CollectionUsers:
		db.Users = rows
	default:
		return fmt.Errorf("unknown collection %q", name)
	}
	return nil
}

// IsRecordCollection reports whether name is one of the four record
// collections (the images section is not record-shaped).
func IsRecordCollection(name string) bool {
	_, ok := IDPrefixes[name]
	return ok
}

// Clone deep-copies the database through a JSON round trip.
func (db DB) Clone() DB {
	var out DB
	raw, err := json.Marshal(db)
	if err == nil {
		_ = json.Unmarshal(raw, &out)
	}
	out.Normalize()
	return out
}
