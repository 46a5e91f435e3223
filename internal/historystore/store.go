// Package historystore is the append-only History Store (spec.md §4.2):
// one check_history row per completed or failed check run, sharing the
// same SQLite file the Catalog Store opens (internal/dbstore).
package historystore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mbrown1837/webmonitor/internal/models"
)

// Store is the History Store.
type Store struct {
	db *sql.DB
}

// New wraps an already-migrated *sql.DB.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes a new CheckRecord. ID and Timestamp are stamped if unset.
func (s *Store) Append(rec *models.CheckRecord) (*models.CheckRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	crawlJSON, err := marshalOptional(rec.Crawl)
	if err != nil {
		return nil, err
	}
	visualJSON, err := marshalOptional(rec.Visual)
	if err != nil {
		return nil, err
	}
	blurJSON, err := marshalOptional(rec.Blur)
	if err != nil {
		return nil, err
	}
	perfJSON, err := marshalOptional(rec.Performance)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`INSERT INTO check_history
		(id, website_id, timestamp, status, is_manual, is_change_report,
		 crawl_json, visual_json, blur_json, performance_json, failure_reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.WebsiteID, rec.Timestamp.Format(time.RFC3339Nano), string(rec.Status),
		boolToInt(rec.IsManual), boolToInt(rec.IsChangeReport),
		crawlJSON, visualJSON, blurJSON, perfJSON, rec.FailureReason,
	)
	if err != nil {
		return nil, fmt.Errorf("historystore: append: %w", err)
	}
	return rec, nil
}

// Filter narrows ListByWebsite. A zero value returns everything.
type Filter struct {
	Since       *time.Time
	OnlyManual  bool
	OnlyChanges bool
	Limit       int
}

// ListByWebsite returns check records newest-first.
func (s *Store) ListByWebsite(websiteID string, filter Filter) ([]*models.CheckRecord, error) {
	query := `SELECT id, website_id, timestamp, status, is_manual, is_change_report,
		crawl_json, visual_json, blur_json, performance_json, failure_reason
		FROM check_history WHERE website_id = ?`
	args := []interface{}{websiteID}

	if filter.Since != nil {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	if filter.OnlyManual {
		query += " AND is_manual = 1"
	}
	if filter.OnlyChanges {
		query += " AND is_change_report = 1"
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("historystore: list: %w", err)
	}
	defer rows.Close()

	var out []*models.CheckRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("historystore: list scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns a single check record by id.
func (s *Store) Get(id string) (*models.CheckRecord, error) {
	row := s.db.QueryRow(`SELECT id, website_id, timestamp, status, is_manual, is_change_report,
		crawl_json, visual_json, blur_json, performance_json, failure_reason
		FROM check_history WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("historystore: %s: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("historystore: get: %w", err)
	}
	return rec, nil
}

// Latest returns the most recent record for a website, or nil if none
// exists yet.
func (s *Store) Latest(websiteID string) (*models.CheckRecord, error) {
	recs, err := s.ListByWebsite(websiteID, Filter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// DeleteForWebsite removes every history row for a website. Registered
// as a Catalog Store deletion hook by the process wiring (cmd/server),
// not called directly by catalogstore itself (spec.md §9 "one-way push").
func (s *Store) DeleteForWebsite(websiteID string) error {
	if _, err := s.db.Exec(`DELETE FROM check_history WHERE website_id = ?`, websiteID); err != nil {
		return fmt.Errorf("historystore: delete for website: %w", err)
	}
	return nil
}

// PruneOlderThan deletes rows older than age, per the
// history_retention_days setting (spec.md §6).
func (s *Store) PruneOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	res, err := s.db.Exec(`DELETE FROM check_history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("historystore: prune: %w", err)
	}
	return res.RowsAffected()
}

func marshalOptional(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("historystore: marshal: %w", err)
	}
	return string(raw), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanRecord(row interface{ Scan(...interface{}) error }) (*models.CheckRecord, error) {
	var (
		rec                                              models.CheckRecord
		status                                           string
		isManual, isChange                               int
		timestamp                                        string
		crawlJSON, visualJSON, blurJSON, perfJSON         sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &rec.WebsiteID, &timestamp, &status, &isManual, &isChange,
		&crawlJSON, &visualJSON, &blurJSON, &perfJSON, &rec.FailureReason,
	); err != nil {
		return nil, err
	}

	rec.Status = models.CheckStatus(status)
	rec.IsManual = isManual != 0
	rec.IsChangeReport = isChange != 0
	rec.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)

	if crawlJSON.Valid {
		var c models.CrawlStats
		if err := json.Unmarshal([]byte(crawlJSON.String), &c); err == nil {
			rec.Crawl = &c
		}
	}
	if visualJSON.Valid {
		var v models.VisualSummary
		if err := json.Unmarshal([]byte(visualJSON.String), &v); err == nil {
			rec.Visual = &v
		}
	}
	if blurJSON.Valid {
		var b models.BlurSummary
		if err := json.Unmarshal([]byte(blurJSON.String), &b); err == nil {
			rec.Blur = &b
		}
	}
	if perfJSON.Valid {
		var p models.PerformanceSummary
		if err := json.Unmarshal([]byte(perfJSON.String), &p); err == nil {
			rec.Performance = &p
		}
	}

	return &rec, nil
}
