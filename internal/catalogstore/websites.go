package catalogstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbrown1837/webmonitor/internal/models"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("catalogstore: website not found")

// List returns every website matching filter. There is no pagination
// contract (spec.md §4.1) — callers handle size.
func (s *Store) List(filter models.Filter) ([]*models.Website, error) {
	query := `SELECT id, url, display_name, cadence_minutes, is_active, tags, recipients,
		crawl_enabled, visual_enabled, blur_enabled, performance_enabled, full_check_enabled,
		max_crawl_depth, render_delay_seconds, visual_diff_threshold_percent, capture_subpages,
		exclude_page_keywords, baselines, last_checked_at, created_at, updated_at
		FROM websites WHERE 1=1`
	var args []interface{}

	if filter.Active != nil {
		query += " AND is_active = ?"
		args = append(args, boolToInt(*filter.Active))
	}
	if filter.Tag != "" {
		query += " AND tags LIKE ?"
		args = append(args, "%\""+filter.Tag+"\"%")
	}
	if filter.Search != "" {
		query += " AND (url LIKE ? OR display_name LIKE ?)"
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: list: %w", err)
	}
	defer rows.Close()

	var out []*models.Website
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, fmt.Errorf("catalogstore: list scan: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Get returns the website with id, using the per-website cache first.
func (s *Store) Get(id string) (*models.Website, error) {
	if w, ok := s.cache.get(id); ok {
		return w, nil
	}

	row := s.db.QueryRow(`SELECT id, url, display_name, cadence_minutes, is_active, tags, recipients,
		crawl_enabled, visual_enabled, blur_enabled, performance_enabled, full_check_enabled,
		max_crawl_depth, render_delay_seconds, visual_diff_threshold_percent, capture_subpages,
		exclude_page_keywords, baselines, last_checked_at, created_at, updated_at
		FROM websites WHERE id = ?`, id)

	w, err := scanWebsite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalogstore: get %s: %w", id, err)
	}
	s.cache.set(w)
	return w, nil
}

// Upsert replaces the website by ID (creating it if ID is empty or
// unseen), atomically stamping updated_at. CreatedAt is preserved across
// updates and set on first insert.
func (s *Store) Upsert(w *models.Website) (*models.Website, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CadenceMin < 1 {
		return nil, fmt.Errorf("catalogstore: cadence_minutes must be >= 1, got %d", w.CadenceMin)
	}

	now := time.Now().UTC()
	createdAt := now
	if existing, err := s.Get(w.ID); err == nil {
		createdAt = existing.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	w.CreatedAt = createdAt
	w.UpdatedAt = now
	if w.Baselines == nil {
		w.Baselines = map[string]models.Baseline{}
	}

	tags, err := json.Marshal(w.Tags)
	if err != nil {
		return nil, err
	}
	recipients, err := json.Marshal(w.Recipients)
	if err != nil {
		return nil, err
	}
	keywords, err := json.Marshal(w.ExcludePageKeywords)
	if err != nil {
		return nil, err
	}
	baselines, err := json.Marshal(w.Baselines)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("catalogstore: upsert begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO websites (
		id, url, display_name, cadence_minutes, is_active, tags, recipients,
		crawl_enabled, visual_enabled, blur_enabled, performance_enabled, full_check_enabled,
		max_crawl_depth, render_delay_seconds, visual_diff_threshold_percent, capture_subpages,
		exclude_page_keywords, baselines, last_checked_at, created_at, updated_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET
		url=excluded.url, display_name=excluded.display_name, cadence_minutes=excluded.cadence_minutes,
		is_active=excluded.is_active, tags=excluded.tags, recipients=excluded.recipients,
		crawl_enabled=excluded.crawl_enabled, visual_enabled=excluded.visual_enabled,
		blur_enabled=excluded.blur_enabled, performance_enabled=excluded.performance_enabled,
		full_check_enabled=excluded.full_check_enabled, max_crawl_depth=excluded.max_crawl_depth,
		render_delay_seconds=excluded.render_delay_seconds,
		visual_diff_threshold_percent=excluded.visual_diff_threshold_percent,
		capture_subpages=excluded.capture_subpages, exclude_page_keywords=excluded.exclude_page_keywords,
		baselines=excluded.baselines, last_checked_at=excluded.last_checked_at, updated_at=excluded.updated_at`,
		w.ID, w.URL, w.DisplayName, w.CadenceMin, boolToInt(w.IsActive), string(tags), string(recipients),
		boolToInt(w.CrawlEnabled), boolToInt(w.VisualEnabled), boolToInt(w.BlurEnabled),
		boolToInt(w.PerformanceEnabled), boolToInt(w.FullCheckEnabled),
		w.MaxCrawlDepth, w.RenderDelaySeconds, w.VisualDiffThresholdPct, boolToInt(w.CaptureSubpages),
		string(keywords), string(baselines), nullableTime(w.LastCheckedAt), formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("catalogstore: upsert exec: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("catalogstore: upsert commit: %w", err)
	}

	s.cache.invalidate(w.ID)
	s.audit("dashboard", "website.upsert", w.ID)
	return w, nil
}

// InvalidateCache drops the cached entry for id and leaves every other
// entry in place, so there is no full-cache stampede (spec.md §9).
// Upsert, UpdateBaselines, TouchLastChecked and Delete already drop the
// entry of the website they write.
func (s *Store) InvalidateCache(id string) {
	s.cache.invalidate(id)
}

// UpdateBaselines atomically replaces a website's baseline map and
// last-checked timestamp as a single JSON write — spec.md §4.4: "atomic
// JSON serialization of the map as a whole — never partial updates."
func (s *Store) UpdateBaselines(id string, baselines map[string]models.Baseline, checkedAt time.Time) error {
	raw, err := json.Marshal(baselines)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.Exec(`UPDATE websites SET baselines = ?, last_checked_at = ?, updated_at = ? WHERE id = ?`,
		string(raw), formatTime(checkedAt), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("catalogstore: update baselines: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	s.cache.invalidate(id)
	return nil
}

// TouchLastChecked records that a check ran without touching baselines.
func (s *Store) TouchLastChecked(id string, checkedAt time.Time) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(`UPDATE websites SET last_checked_at = ?, updated_at = ? WHERE id = ?`,
		formatTime(checkedAt), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("catalogstore: touch last_checked: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	s.cache.invalidate(id)
	return nil
}

// Delete removes a website and everything the catalog itself owns
// (all of the website's queue rows, whatever their status), then fires every registered deletion
// hook so collaborators that own their own cascades — the History Store,
// the snapshot filesystem, the Scheduler Core — can react without the
// Catalog Store depending on any of them. Idempotent: deleting an unknown
// id is not an error (spec.md §4.1).
func (s *Store) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("catalogstore: delete begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM manual_check_queue WHERE website_id = ?`, id); err != nil {
		return fmt.Errorf("catalogstore: delete queue rows: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM websites WHERE id = ?`, id); err != nil {
		return fmt.Errorf("catalogstore: delete website: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalogstore: delete commit: %w", err)
	}

	s.cache.invalidate(id)
	s.audit("dashboard", "website.delete", id)
	for _, hook := range s.onDelete {
		hook(id)
	}
	return nil
}

func scanWebsite(row interface{ Scan(...interface{}) error }) (*models.Website, error) {
	var (
		w                                    models.Website
		isActive, crawl, visual, blur, perf  int
		full, captureSubpages                int
		tagsRaw, recipientsRaw, keywordsRaw  string
		baselinesRaw                         string
		lastChecked                          sql.NullString
		createdAt, updatedAt                 string
	)
	if err := row.Scan(
		&w.ID, &w.URL, &w.DisplayName, &w.CadenceMin, &isActive, &tagsRaw, &recipientsRaw,
		&crawl, &visual, &blur, &perf, &full,
		&w.MaxCrawlDepth, &w.RenderDelaySeconds, &w.VisualDiffThresholdPct, &captureSubpages,
		&keywordsRaw, &baselinesRaw, &lastChecked, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	w.IsActive = isActive != 0
	w.CrawlEnabled = crawl != 0
	w.VisualEnabled = visual != 0
	w.BlurEnabled = blur != 0
	w.PerformanceEnabled = perf != 0
	w.FullCheckEnabled = full != 0
	w.CaptureSubpages = captureSubpages != 0

	w.Tags = decodeStringSlice(tagsRaw)
	w.Recipients = decodeStringSlice(recipientsRaw)
	w.ExcludePageKeywords = decodeStringSlice(keywordsRaw)
	w.Baselines = decodeBaselines(baselinesRaw)

	if lastChecked.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastChecked.String); err == nil {
			w.LastCheckedAt = &t
		}
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	w.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &w, nil
}

// decodeStringSlice degrades corrupted JSON to an empty collection rather
// than aborting the read (spec.md §4.1 "Failure semantics").
func decodeStringSlice(raw string) []string {
	var out []string
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func decodeBaselines(raw string) map[string]models.Baseline {
	out := map[string]models.Baseline{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]models.Baseline{}
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// manualCheckTemplate is the per-check-type starting flag set, AND'ed
// against the website's own enable flags (spec.md §4.1).
func manualCheckTemplate(checkType models.CheckType) models.CheckConfig {
	switch checkType {
	case models.CheckCrawl:
		return models.CheckConfig{Crawl: true}
	case models.CheckVisual:
		return models.CheckConfig{Visual: true}
	case models.CheckBlur:
		return models.CheckConfig{Blur: true}
	case models.CheckPerformance:
		return models.CheckConfig{Performance: true}
	case models.CheckFull:
		return models.CheckConfig{Crawl: true, Visual: true, Blur: true, Performance: true}
	case models.CheckBaseline:
		return models.CheckConfig{Visual: true, CreateBaseline: true}
	default:
		return models.CheckConfig{}
	}
}

// GetManualCheckConfig derives the per-invocation flag set for a manual
// queue request (spec.md §4.1). A site with a feature disabled never runs
// that phase even via a manual button; `baseline` always forces
// Visual+CreateBaseline.
func (s *Store) GetManualCheckConfig(id string, checkType models.CheckType) (models.CheckConfig, error) {
	w, err := s.Get(id)
	if err != nil {
		return models.CheckConfig{}, err
	}
	tmpl := manualCheckTemplate(checkType)
	cfg := models.CheckConfig{
		Crawl:          tmpl.Crawl && w.CrawlEnabled,
		Visual:         tmpl.Visual && w.VisualEnabled,
		Blur:           tmpl.Blur && w.BlurEnabled,
		Performance:    tmpl.Performance && w.PerformanceEnabled,
		CreateBaseline: tmpl.CreateBaseline,
	}
	if checkType == models.CheckBaseline {
		cfg.Visual = true
		cfg.CreateBaseline = true
	}
	if checkType == models.CheckFull && len(w.Baselines) == 0 {
		cfg.CreateBaseline = true
	}
	return cfg, nil
}

// GetAutomatedCheckConfig derives the flag set a scheduled tick runs with
// (spec.md §4.1): full_check_enabled forces all four phases on, otherwise
// the site's per-feature flags apply verbatim.
func (s *Store) GetAutomatedCheckConfig(id string) (models.CheckConfig, error) {
	w, err := s.Get(id)
	if err != nil {
		return models.CheckConfig{}, err
	}
	if w.FullCheckEnabled {
		cfg := models.CheckConfig{Crawl: true, Visual: true, Blur: true, Performance: true}
		if len(w.Baselines) == 0 {
			cfg.CreateBaseline = true
		}
		return cfg, nil
	}
	return models.CheckConfig{
		Crawl:       w.CrawlEnabled,
		Visual:      w.VisualEnabled,
		Blur:        w.BlurEnabled,
		Performance: w.PerformanceEnabled,
	}, nil
}

// ExcludesPage reports whether pageURL should be excluded from
// visual/baseline work under w's configured keywords (spec.md §3: "any
// URL whose path contains one is excluded", case-insensitive substring
// per spec.md §8).
func ExcludesPage(w *models.Website, pageURL string) bool {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		path = u.Path
	}
	lower := strings.ToLower(path)
	for _, kw := range w.ExcludePageKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
