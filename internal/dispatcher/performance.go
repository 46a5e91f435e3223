package dispatcher

import (
	"context"

	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/mbrown1837/webmonitor/internal/primitives"
)

// runPerformance implements spec.md §4.4 phase 4: sample the discovered
// pages and invoke the external performance analyzer.
func (d *Dispatcher) runPerformance(ctx context.Context, crawl *primitives.CrawlResult) (*models.PerformanceSummary, error) {
	if len(crawl.Pages) == 0 {
		return &models.PerformanceSummary{}, nil
	}

	result, err := d.perf.Analyze(ctx, crawl.Pages)
	if err != nil {
		return nil, err
	}

	summary := &models.PerformanceSummary{
		PagesAnalyzed: len(result.PerPage),
		PerPage:       result.PerPage,
	}

	var mobileSum, desktopSum float64
	var slowest string
	slowestScore := -1.0
	for _, p := range result.PerPage {
		mobileSum += p.MobileScore
		desktopSum += p.DesktopScore
		summary.TotalIssues += len(p.Issues)
		if slowestScore < 0 || p.MobileScore < slowestScore {
			slowestScore = p.MobileScore
			slowest = p.Page
		}
	}
	if n := len(result.PerPage); n > 0 {
		summary.AvgMobile = mobileSum / float64(n)
		summary.AvgDesktop = desktopSum / float64(n)
	}
	summary.SlowestPage = slowest

	return summary, nil
}
