package models

import "time"

// QueueStatus is the closed set of states a QueueItem moves through.
// Once terminal (Completed/Failed) a row is never reopened; resubmission
// creates a new row (spec.md §4.3).
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
)

// Priority distinguishes manual submissions (always served first) from
// scheduler-originated ones.
type Priority int

const (
	PriorityScheduled Priority = 0
	PriorityManual    Priority = 1
)

// QueueItem is a single row of the manual-check queue.
type QueueItem struct {
	ID          string
	WebsiteID   string
	CheckType   CheckType
	Status      QueueStatus
	Priority    Priority
	RequestedBy string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	ErrorMessage  string
	ResultPayload string // JSON-serialized summary, or "" if none yet.
}

// StatusEvent is broadcast by the Queue Processor on every state
// transition (spec.md §4.3 "emit a status event" / §2 "streams status
// transitions").
type StatusEvent struct {
	QueueID   string      `json:"queue_id"`
	WebsiteID string      `json:"website_id"`
	CheckType CheckType   `json:"check_type"`
	Status    QueueStatus `json:"status"`
	At        time.Time   `json:"at"`
	Error     string      `json:"error,omitempty"`
}
