package models

import "time"

// CheckStatus is the terminal status written to a CheckRecord.
type CheckStatus string

const (
	StatusCompleted CheckStatus = "completed"
	StatusFailed    CheckStatus = "failed"
)

// CrawlStats summarizes the crawl phase.
type CrawlStats struct {
	PagesCrawled   int  `json:"pages_crawled"`
	LinksChecked   int  `json:"links_checked"`
	SitemapFound   bool `json:"sitemap_found"`
	BrokenLinks    []BrokenLink `json:"broken_links,omitempty"`
	MissingMeta    []MissingMeta `json:"missing_meta,omitempty"`
}

// BrokenLink is one outbound link the crawler could not resolve.
type BrokenLink struct {
	SourcePage string `json:"source_page"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

// MissingMeta records a page missing an expected meta tag.
type MissingMeta struct {
	Page string `json:"page"`
	Tag  string `json:"tag"`
}

// VisualSummary summarizes the visual-diff phase.
type VisualSummary struct {
	PagesCompared int              `json:"pages_compared"`
	Diffs         []PageVisualDiff `json:"diffs,omitempty"`
	BaselineOnly  bool             `json:"baseline_only"`
}

// PageVisualDiff is the per-page visual diff outcome.
type PageVisualDiff struct {
	Page          string  `json:"page"`
	DiffPercent   float64 `json:"diff_percent"`
	FlaggedChange bool    `json:"flagged_change"`
	DiffImagePath string  `json:"diff_image_path,omitempty"`
}

// BlurSummary summarizes the blur-detection phase.
type BlurSummary struct {
	ImagesProcessed int     `json:"images_processed"`
	BlurryCount     int     `json:"blurry_count"`
	BlurPercent     float64 `json:"blur_percent"`
}

// PerformanceSummary summarizes the performance phase.
type PerformanceSummary struct {
	PagesAnalyzed  int                  `json:"pages_analyzed"`
	AvgMobile      float64              `json:"avg_mobile_score"`
	AvgDesktop     float64              `json:"avg_desktop_score"`
	SlowestPage    string               `json:"slowest_page,omitempty"`
	TotalIssues    int                  `json:"total_issues"`
	PerPage        []PagePerformance    `json:"per_page,omitempty"`
}

// PagePerformance is one page's performance sample.
type PagePerformance struct {
	Page          string   `json:"page"`
	MobileScore   float64  `json:"mobile_score"`
	DesktopScore  float64  `json:"desktop_score"`
	Issues        []string `json:"issues,omitempty"`
}

// CheckRecord is one append-only row of the History Store.
type CheckRecord struct {
	ID              string
	WebsiteID       string
	Timestamp       time.Time
	Status          CheckStatus
	IsManual        bool
	IsChangeReport  bool

	Crawl       *CrawlStats         `json:"crawl,omitempty"`
	Visual      *VisualSummary      `json:"visual,omitempty"`
	Blur        *BlurSummary        `json:"blur,omitempty"`
	Performance *PerformanceSummary `json:"performance,omitempty"`

	FailureReason string
}
