package catalogstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mbrown1837/webmonitor/internal/metrics"
	"github.com/mbrown1837/webmonitor/internal/models"
)

// ErrAlreadyQueued is returned by Enqueue when the website already has a
// pending or processing row for the same check type (spec.md §4.2:
// "a manual request for a site/type already pending or processing is a
// no-op that returns the existing queue id").
var ErrAlreadyQueued = errors.New("catalogstore: check already queued")

// Enqueue inserts a manual check request. Idempotent: if an active
// (pending or processing) row already exists for the same website and
// check type, its id is returned instead of creating a duplicate.
func (s *Store) Enqueue(websiteID string, checkType models.CheckType, requestedBy string) (string, error) {
	if _, err := s.Get(websiteID); err != nil {
		return "", err
	}

	row := s.db.QueryRow(`SELECT id FROM manual_check_queue
		WHERE website_id = ? AND check_type = ? AND status IN ('pending', 'processing')
		ORDER BY created_at ASC LIMIT 1`, websiteID, string(checkType))
	var existing string
	switch err := row.Scan(&existing); {
	case err == nil:
		return existing, ErrAlreadyQueued
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("catalogstore: enqueue lookup: %w", err)
	}

	id := uuid.NewString()
	now := formatTime(time.Now().UTC())
	_, err := s.db.Exec(`INSERT INTO manual_check_queue
		(id, website_id, check_type, status, priority, requested_by, created_at)
		VALUES (?, ?, ?, 'pending', ?, ?, ?)`,
		id, websiteID, string(checkType), int(models.PriorityManual), requestedBy, now)
	if err != nil {
		return "", fmt.Errorf("catalogstore: enqueue insert: %w", err)
	}

	s.audit(requestedBy, "queue.enqueue."+string(checkType), websiteID)
	s.refreshQueueDepthMetric()
	return id, nil
}

// EnqueueScheduled inserts a scheduler-originated request: same table, but
// priority Scheduled so manual requests always dequeue first (spec.md
// §4.2, §4.3). It skips the pending/processing dedup check Enqueue makes.
// The Scheduler Core does not call it; its ticks invoke the Dispatcher
// directly.
func (s *Store) EnqueueScheduled(websiteID string, checkType models.CheckType) (string, error) {
	id := uuid.NewString()
	now := formatTime(time.Now().UTC())
	_, err := s.db.Exec(`INSERT INTO manual_check_queue
		(id, website_id, check_type, status, priority, requested_by, created_at)
		VALUES (?, ?, ?, 'pending', ?, 'scheduler', ?)`,
		id, websiteID, string(checkType), int(models.PriorityScheduled), now)
	if err != nil {
		return "", fmt.Errorf("catalogstore: enqueue scheduled: %w", err)
	}
	s.refreshQueueDepthMetric()
	return id, nil
}

// DequeueNext atomically claims the highest-priority, oldest pending item
// and marks it processing. Returns a nil item and a nil error when the
// queue is empty, meaning "nothing to do" (spec.md §4.2).
func (s *Store) DequeueNext() (*models.QueueItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("catalogstore: dequeue begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT id, website_id, check_type, status, priority, requested_by,
		created_at, started_at, completed_at, error_message, result_payload
		FROM manual_check_queue WHERE status = 'pending'
		ORDER BY priority DESC, created_at ASC LIMIT 1`)

	item, err := scanQueueItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalogstore: dequeue scan: %w", err)
	}

	now := formatTime(time.Now().UTC())
	if _, err := tx.Exec(`UPDATE manual_check_queue SET status = 'processing', started_at = ? WHERE id = ?`,
		now, item.ID); err != nil {
		return nil, fmt.Errorf("catalogstore: dequeue claim: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("catalogstore: dequeue commit: %w", err)
	}

	item.Status = models.QueueProcessing
	s.refreshQueueDepthMetric()
	return item, nil
}

// UpdateStatus transitions a queue row to completed or failed, recording
// an error message and/or result payload. Stamps completed_at.
func (s *Store) UpdateStatus(queueID string, status models.QueueStatus, errMsg, payload string) error {
	now := formatTime(time.Now().UTC())
	res, err := s.db.Exec(`UPDATE manual_check_queue
		SET status = ?, error_message = ?, result_payload = ?, completed_at = ?
		WHERE id = ?`, string(status), errMsg, payload, now, queueID)
	if err != nil {
		return fmt.Errorf("catalogstore: update status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("catalogstore: update status: %w", ErrNotFound)
	}
	metrics.QueueItemsProcessed.WithLabelValues(string(status)).Inc()
	s.refreshQueueDepthMetric()
	return nil
}

// ListPending returns the active (pending and processing) queue rows in
// dequeue order.
func (s *Store) ListPending() ([]*models.QueueItem, error) {
	rows, err := s.db.Query(`SELECT id, website_id, check_type, status, priority, requested_by,
		created_at, started_at, completed_at, error_message, result_payload
		FROM manual_check_queue WHERE status IN ('pending', 'processing')
		ORDER BY priority DESC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: list pending: %w", err)
	}
	defer rows.Close()

	var out []*models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("catalogstore: list pending scan: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// PruneOld deletes completed/failed queue rows older than age, per
// spec.md §6's queue_retention_days setting.
func (s *Store) PruneOld(age time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().UTC().Add(-age))
	res, err := s.db.Exec(`DELETE FROM manual_check_queue
		WHERE status IN ('completed', 'failed') AND completed_at IS NOT NULL AND completed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("catalogstore: prune queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearActive marks every processing row as failed. Called once by the
// Queue Processor at startup (spec.md §4.3: "a process crash mid-dispatch
// leaves orphaned processing rows; on restart these are failed outright
// rather than silently resumed").
func (s *Store) ClearActive() (int64, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.Exec(`UPDATE manual_check_queue
		SET status = 'failed', error_message = 'interrupted by process restart', completed_at = ?
		WHERE status = 'processing'`, now)
	if err != nil {
		return 0, fmt.Errorf("catalogstore: clear active: %w", err)
	}
	n, err := res.RowsAffected()
	s.refreshQueueDepthMetric()
	return n, err
}

func (s *Store) refreshQueueDepthMetric() {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM manual_check_queue
		WHERE status IN ('pending', 'processing') GROUP BY status`)
	if err != nil {
		return
	}
	defer rows.Close()

	counts := map[string]float64{"pending": 0, "processing": 0}
	for rows.Next() {
		var status string
		var n float64
		if rows.Scan(&status, &n) == nil {
			counts[status] = n
		}
	}
	for status, n := range counts {
		metrics.QueueDepth.WithLabelValues(status).Set(n)
	}
}

func scanQueueItem(row interface{ Scan(...interface{}) error }) (*models.QueueItem, error) {
	var (
		item                  models.QueueItem
		checkType, status     string
		priority              int
		createdAt             string
		startedAt, completed  sql.NullString
	)
	if err := row.Scan(
		&item.ID, &item.WebsiteID, &checkType, &status, &priority, &item.RequestedBy,
		&createdAt, &startedAt, &completed, &item.ErrorMessage, &item.ResultPayload,
	); err != nil {
		return nil, err
	}

	item.CheckType = models.CheckType(checkType)
	item.Status = models.QueueStatus(status)
	item.Priority = models.Priority(priority)
	item.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if startedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, startedAt.String); err == nil {
			item.StartedAt = &t
		}
	}
	if completed.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completed.String); err == nil {
			item.CompletedAt = &t
		}
	}
	return &item, nil
}
