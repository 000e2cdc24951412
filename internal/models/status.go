package models

// SyncStatus is the last known cloud replication outcome, persisted to the
// local cache and surfaced to the presentation layer on every push and pull.
type SyncStatus struct {
	OK        bool   `json:"ok"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ProgressSummary is the dashboard aggregate over the inspections collection.
type ProgressSummary struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"in_progress"`
	NotStarted     int `json:"not_started"`
	TodaysProgress int `json:"todays_progress"`
}
