// Package primitives models every external collaborator the Check
// Dispatcher depends on (spec.md §6) as a narrow interface with one
// concrete default adapter, so the control plane runs end-to-end without
// a real browser-automation or image-analysis service behind it.
// Swapping an adapter never touches internal/dispatcher.
package primitives

import (
	"context"

	"github.com/mbrown1837/webmonitor/internal/models"
)

// CrawlResult is what a Crawler discovers starting from a root URL.
type CrawlResult struct {
	Pages        []string
	ImageURLs    []string
	BrokenLinks  []models.BrokenLink
	MissingMeta  []models.MissingMeta
	SitemapFound bool
}

// Crawler discovers pages reachable from a root URL up to a depth limit,
// honoring a set of path-substring exclusions (spec.md §4.4 phase 1).
type Crawler interface {
	Crawl(ctx context.Context, rootURL string, maxDepth int, excludeKeywords []string) (*CrawlResult, error)
}

// ScreenshotCapturer captures a normalized 1280x720 screenshot of a page
// (spec.md §4.4 phase 2).
type ScreenshotCapturer interface {
	Capture(ctx context.Context, pageURL string) ([]byte, error)
}

// BlurVerdict is the combined variance/spatial-ratio result for one
// image. Data carries the downloaded bytes so the Dispatcher can persist
// the image under the snapshot tree's blur_images slot (spec.md §3);
// adapters that don't want this cost may leave it nil.
type BlurVerdict struct {
	URL    string
	Blurry bool
	Data   []byte
}

// BlurResult summarizes a batch of image blur verdicts.
type BlurResult struct {
	Processed int
	Blurry    int
	Verdicts  []BlurVerdict
}

// BlurAnalyzer downloads and scores a set of image URLs for blur
// (spec.md §4.4 phase 3).
type BlurAnalyzer interface {
	Analyze(ctx context.Context, imageURLs []string) (*BlurResult, error)
}

// PerformanceResult summarizes a batch of per-page performance samples.
type PerformanceResult struct {
	PerPage []models.PagePerformance
}

// PerformanceAnalyzer scores a sampled subset of pages for mobile/desktop
// performance (spec.md §4.4 phase 4).
type PerformanceAnalyzer interface {
	Analyze(ctx context.Context, pages []string) (*PerformanceResult, error)
}

// EmailMessage is a fully rendered notification ready for transport.
type EmailMessage struct {
	To       []string
	Subject  string
	HTMLBody string
}

// EmailTransport delivers a rendered report (spec.md §4.4 "report
// emission").
type EmailTransport interface {
	Send(ctx context.Context, msg EmailMessage) error
}
