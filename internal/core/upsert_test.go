package core

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

func TestUpsert_AssignsIDAndStamps(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Upsert(models.CollectionInspections,
		models.Record{"equipment_tag_number": "E-101"}, "alice")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(rec.ID(), "INSP-"))
	require.Equal(t, "alice", rec.String(models.FieldEnteredBy))
	require.Equal(t, "alice", rec.String(models.FieldUpdatedBy))
	require.NotEmpty(t, rec.String(models.FieldTimestamp))

	rows, err := s.Collection(models.CollectionInspections)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUpsert_IdempotentByID(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Upsert(models.CollectionInspections,
		models.Record{"equipment_tag_number": "E-101", "status": "Pending"}, "alice")
	require.NoError(t, err)

	// Writing the same id again updates in place, never appends.
	updated, err := s.Upsert(models.CollectionInspections,
		models.Record{"id": created.ID(), "status": "Completed"}, "bob")
	require.NoError(t, err)

	rows, err := s.Collection(models.CollectionInspections)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.Equal(t, created.ID(), updated.ID())
	require.Equal(t, "Completed", rows[0].String("status"))
	// Unlisted fields survive the shallow merge.
	require.Equal(t, "E-101", rows[0].String("equipment_tag_number"))
	// entered_by is set once; updated_by tracks the latest writer.
	require.Equal(t, "alice", rows[0].String(models.FieldEnteredBy))
	require.Equal(t, "bob", rows[0].String(models.FieldUpdatedBy))
}

func TestUpsert_CallerSuppliedID(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Upsert(models.CollectionRequisitions,
		models.Record{"id": "REQ-legacy-7", "item": "gasket"}, "")
	require.NoError(t, err)
	require.Equal(t, "REQ-legacy-7", rec.ID())
	require.Equal(t, "system", rec.String(models.FieldEnteredBy))
}

func TestUpsert_UnknownCollection(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Upsert("widgets", models.Record{"id": "W-1"}, "alice")
	require.Error(t, err)
}

func TestUpsert_NormalizesInspectionFields(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Upsert(models.CollectionInspections, models.Record{
		"inspection_type":     "opportunity",
		"inspection_possible": "borescopy",
	}, "alice")
	require.NoError(t, err)
	require.Equal(t, "Opportunity Based", rec.String("inspection_type"))
	require.Equal(t, "BOROSCOPY", rec.String("inspection_form"))
	require.Equal(t, "BOROSCOPY", rec.String("inspection_possible"))
}

func TestUpsert_DoesNotMutateCallerPayload(t *testing.T) {
	s := newTestStore(t)
	payload := models.Record{"equipment_tag_number": "E-101"}
	_, err := s.Upsert(models.CollectionInspections, payload, "alice")
	require.NoError(t, err)
	require.Empty(t, payload.ID())
	require.NotContains(t, payload, models.FieldTimestamp)
}

func TestBatchUpsert_MixedCreateAndUpdate(t *testing.T) {
	s := newTestStore(t)

	existing := make([]models.Record, 0, 3)
	for i := 0; i < 3; i++ {
		rec, err := s.Upsert(models.CollectionInspections,
			models.Record{"equipment_tag_number": fmt.Sprintf("E-%d", i)}, "alice")
		require.NoError(t, err)
		existing = append(existing, rec)
	}

	pushes := 0
	s.SetReplicator(func() { pushes++ })

	// Two updates by id plus three new rows in one batch.
	batch := []models.Record{
		{"id": existing[0].ID(), "status": "Completed"},
		{"id": existing[2].ID(), "status": "In Progress"},
		{"equipment_tag_number": "E-10"},
		{"equipment_tag_number": "E-11"},
		{"equipment_tag_number": "E-12"},
	}
	n, err := s.BatchUpsert(models.CollectionInspections, batch, "bob")
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, 1, pushes, "a batch is one read-modify-write, one push")

	rows, err := s.Collection(models.CollectionInspections)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	require.Equal(t, "Completed", rows[0].String("status"))
	require.Equal(t, "In Progress", rows[2].String("status"))
	require.Equal(t, "alice", rows[0].String(models.FieldEnteredBy))
	require.Equal(t, "bob", rows[0].String(models.FieldUpdatedBy))
}

func TestBatchUpsert_SkipsNilPayloads(t *testing.T) {
	s := newTestStore(t)
	n, err := s.BatchUpsert(models.CollectionObservations,
		[]models.Record{nil, {"text": "corrosion"}, nil}, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestUpsert_ConcurrentWritersLoseNothing(t *testing.T) {
	s := newTestStore(t)

	const writers = 8
	start := make(chan struct{})
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := s.Upsert(models.CollectionInspections,
				models.Record{"equipment_tag_number": fmt.Sprintf("E-%d", i)}, "alice")
			errs <- err
		}(i)
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rows, err := s.Collection(models.CollectionInspections)
	require.NoError(t, err)
	require.Len(t, rows, writers, "every concurrent upsert must survive")
}

func TestUpdate_ErrorLeavesDatabaseUntouched(t *testing.T) {
	s := newTestStore(t)
	stamp := s.LastUpdated()

	err := s.Update(func(db *models.DB) error {
		db.Inspections = append(db.Inspections, models.Record{"id": "INSP-x"})
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	rows, err := s.Collection(models.CollectionInspections)
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Equal(t, stamp, s.LastUpdated())
}

func TestDeleteByID(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Upsert(models.CollectionObservations, models.Record{"text": "x"}, "alice")
	require.NoError(t, err)

	require.NoError(t, s.DeleteByID(models.CollectionObservations, rec.ID()))
	rows, err := s.Collection(models.CollectionObservations)
	require.NoError(t, err)
	require.Empty(t, rows)

	// Deleting an absent id is a no-op success and writes nothing.
	stamp := s.LastUpdated()
	require.NoError(t, s.DeleteByID(models.CollectionObservations, "OBS-missing"))
	require.Equal(t, stamp, s.LastUpdated())
	require.Error(t, s.DeleteByID("widgets", "W-1"))
}
