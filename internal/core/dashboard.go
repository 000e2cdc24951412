package core

import (
	"time"

	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// ProgressSummary aggregates the inspections collection for the dashboard.
// Today's progress counts records last written since local midnight.
func (s *Store) ProgressSummary() models.ProgressSummary {
	rows, _ := s.Collection(models.CollectionInspections)
	return CalculateProgress(rows, time.Now())
}

// CalculateProgress computes the dashboard counters from inspection rows.
func CalculateProgress(rows []models.Record, now time.Time) models.ProgressSummary {
	summary := models.ProgressSummary{Total: len(rows)}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, row := range rows {
		switch row.String("final_status") {
		case "Completed":
			summary.Completed++
		case "In Progress":
			summary.InProgress++
		default:
			summary.NotStarted++
		}
		if ts := identity.ParseStamp(row.String(models.FieldTimestamp)); !ts.IsZero() && !ts.Before(midnight) {
			summary.TodaysProgress++
		}
	}
	return summary
}
