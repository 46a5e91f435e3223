// Package models holds the shared domain types used by every control-plane
// component: the catalog, history, scheduler, queue, and dispatcher all
// speak in terms of these structs rather than their own private views.
package models

import "time"

// Website is the primary catalog entity. Its identity (ID) is immutable;
// every other field may be mutated by the dashboard or by the Check
// Dispatcher (baselines, timestamps).
type Website struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	DisplayName string    `json:"display_name"`
	CadenceMin  int       `json:"cadence_minutes"`
	IsActive    bool      `json:"is_active"`
	Tags        []string  `json:"tags"`
	Recipients  []string  `json:"notification_recipients"`

	CrawlEnabled       bool `json:"crawl_enabled"`
	VisualEnabled      bool `json:"visual_enabled"`
	BlurEnabled        bool `json:"blur_enabled"`
	PerformanceEnabled bool `json:"performance_enabled"`
	FullCheckEnabled   bool `json:"full_check_enabled"`

	MaxCrawlDepth          int      `json:"max_crawl_depth"`
	RenderDelaySeconds     int      `json:"render_delay_seconds"`
	VisualDiffThresholdPct float64  `json:"visual_diff_threshold_percent"`
	CaptureSubpages        bool     `json:"capture_subpages"`
	ExcludePageKeywords    []string `json:"exclude_page_keywords"`

	Baselines map[string]Baseline `json:"baselines"`

	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Baseline is the reference visual snapshot recorded for one page URL.
type Baseline struct {
	ImagePath  string    `json:"image_path"`
	CapturedAt time.Time `json:"captured_at"`
}

// Filter narrows a catalog list() call. A zero-value Filter matches every
// website.
type Filter struct {
	Active *bool
	Tag    string
	Search string
}

// CheckType is the closed enumeration of manual/automated check requests.
// Modeling it this way (rather than the source's string-keyed template
// lookups) lets the catalog's per-check-type template be a pure function
// over this enum, combined with a Website's feature flags.
type CheckType string

const (
	CheckCrawl       CheckType = "crawl"
	CheckVisual      CheckType = "visual"
	CheckBlur        CheckType = "blur"
	CheckPerformance CheckType = "performance"
	CheckFull        CheckType = "full"
	CheckBaseline    CheckType = "baseline"
)

// CheckConfig is the flag set a single Dispatcher invocation runs with.
// For a manual request it is the AND of a per-check-type template and the
// website's own enable flags, except that a baseline request always
// enables Visual; for a scheduled run full_check_enabled turns all four
// phases on. A full run on a site with no baselines also sets
// CreateBaseline (spec.md §4.1 get_manual_check_config / get_automated_check_config).
type CheckConfig struct {
	Crawl          bool
	Visual         bool
	Blur           bool
	Performance    bool
	CreateBaseline bool
}

// AnyEnabled reports whether at least one phase will run.
func (c CheckConfig) AnyEnabled() bool {
	return c.Crawl || c.Visual || c.Blur || c.Performance
}

// PhaseCount returns how many of the four phases are enabled, used by the
// Dispatcher to distinguish a single-phase manual check from a full check.
func (c CheckConfig) PhaseCount() int {
	n := 0
	if c.Crawl {
		n++
	}
	if c.Visual {
		n++
	}
	if c.Blur {
		n++
	}
	if c.Performance {
		n++
	}
	return n
}
