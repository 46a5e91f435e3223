package primitives

import (
	"context"
	"net/url"
	"time"

	"github.com/mbrown1837/webmonitor/internal/models"
)

const maxPerformanceSample = 10

// syntheticAnalyzer is the default PerformanceAnalyzer. spec.md §6 names
// "the external performance analyzer" (a Lighthouse-style service) as out
// of this repository's scope; this adapter derives a synthetic score
// from wall-clock fetch timing only, the same stdlib-`net/http`-timing
// justification as the blur analyzer's stdlib-only choice (see
// DESIGN.md).
type syntheticAnalyzer struct {
	fetch *FetchClient
}

// NewSyntheticAnalyzer returns the default PerformanceAnalyzer adapter.
func NewSyntheticAnalyzer(fetch *FetchClient) PerformanceAnalyzer {
	return &syntheticAnalyzer{fetch: fetch}
}

func (a *syntheticAnalyzer) Analyze(ctx context.Context, pages []string) (*PerformanceResult, error) {
	sample := pages
	if len(sample) > maxPerformanceSample {
		sample = sample[:maxPerformanceSample]
	}

	result := &PerformanceResult{}
	for _, page := range sample {
		host := ""
		if u, err := url.Parse(page); err == nil {
			host = u.Host
		}

		start := time.Now()
		_, _, err := a.fetch.Get(ctx, page, host)
		elapsed := time.Since(start)

		perf := models.PagePerformance{Page: page}
		if err != nil {
			perf.Issues = append(perf.Issues, "page did not respond within fetch timeout")
			perf.MobileScore, perf.DesktopScore = 0, 0
		} else {
			perf.DesktopScore = scoreFromLatency(elapsed, 1.0)
			perf.MobileScore = scoreFromLatency(elapsed, 2.5) // mobile assumed ~2.5x slower network
			if perf.MobileScore < 50 {
				perf.Issues = append(perf.Issues, "slow response time on simulated mobile network")
			}
		}
		result.PerPage = append(result.PerPage, perf)
	}
	return result, nil
}

// scoreFromLatency maps elapsed fetch time to a 0-100 score, penalizing
// linearly past a 200ms budget scaled by factor.
func scoreFromLatency(elapsed time.Duration, factor float64) float64 {
	budget := 200 * time.Millisecond
	scaled := time.Duration(float64(elapsed) * factor)
	if scaled <= budget {
		return 100
	}
	overBudget := scaled - budget
	penalty := float64(overBudget) / float64(time.Second) * 25
	score := 100 - penalty
	if score < 0 {
		return 0
	}
	return score
}
