package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordClone_Isolation(t *testing.T) {
	r := Record{
		"id":    "INSP-1",
		"tags":  []any{"a", "b"},
		"inner": map[string]any{"k": "v"},
	}
	clone := r.Clone()
	clone["id"] = "INSP-2"
	clone["inner"].(map[string]any)["k"] = "changed"

	require.Equal(t, "INSP-1", r.ID())
	require.Equal(t, "v", r["inner"].(map[string]any)["k"])
}

func TestRecordString_Coercion(t *testing.T) {
	r := Record{"n": float64(7), "s": "x", "nil": nil}
	require.Equal(t, "7", r.String("n"))
	require.Equal(t, "x", r.String("s"))
	require.Equal(t, "", r.String("nil"))
	require.Equal(t, "", r.String("missing"))
}

func TestDBNormalize_FillsNilSections(t *testing.T) {
	var db DB
	db.Normalize()
	require.NotNil(t, db.Inspections)
	require.NotNil(t, db.Observations)
	require.NotNil(t, db.Requisitions)
	require.NotNil(t, db.Users)
	require.NotNil(t, db.Images)
}

func TestDBCollection_RoundTrip(t *testing.T) {
	db := NewDB()
	for _, name := range RecordCollections {
		rows := []Record{{"id": name + "-1"}}
		require.NoError(t, db.SetCollection(name, rows))
		require.Equal(t, rows, db.Collection(name))
	}
	require.Nil(t, db.Collection("nope"))
	require.Error(t, db.SetCollection("nope", nil))
}

func TestDBClone_Isolation(t *testing.T) {
	db := NewDB()
	db.Inspections = []Record{{"id": "INSP-1", "status": "Pending"}}
	db.Images["inspection/INSP-1/photo.jpg"] = "https://example.com/a.jpg"
	db.Meta.LastUpdated = "2026-03-01T10:00:00Z"

	clone := db.Clone()
	clone.Inspections[0]["status"] = "Completed"
	clone.Images["inspection/INSP-1/photo.jpg"] = "https://example.com/b.jpg"

	require.Equal(t, "Pending", db.Inspections[0].String("status"))
	require.Equal(t, "https://example.com/a.jpg", db.Images["inspection/INSP-1/photo.jpg"])
	require.Equal(t, "2026-03-01T10:00:00Z", clone.Meta.LastUpdated)
}

func TestIsRecordCollection(t *testing.T) {
	for _, name := range RecordCollections {
		require.True(t, IsRecordCollection(name))
	}
	require.False(t, IsRecordCollection(SectionImages))
	require.False(t, IsRecordCollection("_meta"))
}

func TestNormalizeInspectionType(t *testing.T) {
	require.Equal(t, "Planned", NormalizeInspectionType(" planned "))
	require.Equal(t, "Opportunity Based", NormalizeInspectionType("opportunity"))
	require.Equal(t, "Opportunity Based", NormalizeInspectionType("Opportunity-Based"))
	require.Equal(t, "Custom", NormalizeInspectionType(" Custom "))
}

func TestNormalizeInspection_KeepsFormAliasesInStep(t *testing.T) {
	payload := Record{"inspection_possible": "borescopy", "inspection_type": "PLANNED"}
	NormalizeInspection(payload)
	require.Equal(t, "BOROSCOPY", payload.String("inspection_form"))
	require.Equal(t, "BOROSCOPY", payload.String("inspection_possible"))
	require.Equal(t, "Planned", payload.String("inspection_type"))

	payload = Record{"inspection_form": "Internal"}
	NormalizeInspection(payload)
	require.Equal(t, "INTERNAL", payload.String("inspection_form"))
	require.Equal(t, "INTERNAL", payload.String("inspection_possible"))
}
