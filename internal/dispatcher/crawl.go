package dispatcher

import (
	"context"
	"fmt"

	"github.com/mbrown1837/webmonitor/internal/catalogstore"
	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/mbrown1837/webmonitor/internal/primitives"
)

// runCrawl discovers pages starting at the website's root URL up to
// max_crawl_depth, honoring exclude_page_keywords (spec.md §4.4 phase 1).
func (d *Dispatcher) runCrawl(ctx context.Context, website *models.Website) (*primitives.CrawlResult, error) {
	depth := website.MaxCrawlDepth
	if depth < 1 {
		depth = 1
	}
	result, err := d.crawler.Crawl(ctx, website.URL, depth, website.ExcludePageKeywords)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", website.URL, err)
	}
	return result, nil
}

// filterExcluded drops pages matching website's exclude keywords, reusing
// the Catalog Store's own predicate so the visual/baseline exclusion rule
// is defined in exactly one place (spec.md §3 "any URL whose path
// contains one is excluded from visual/baseline work").
func filterExcluded(website *models.Website, pages []string) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if !catalogstore.ExcludesPage(website, p) {
			out = append(out, p)
		}
	}
	return out
}
