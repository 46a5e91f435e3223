package dispatcher

import (
	"context"

	"github.com/mbrown1837/webmonitor/internal/models"
)

// ReportType classifies a single Dispatcher invocation into the report
// shape spec.md §4.4 describes, driving subject line, section set, and
// accent color. See DESIGN.md "Report classification ambiguity" for the
// resolution of the source's two conflicting predicates.
type ReportType string

const (
	ReportBaselineCreated ReportType = "baseline-created"
	ReportManualCrawl     ReportType = "manual-crawl"
	ReportManualVisual    ReportType = "manual-visual"
	ReportManualBlur      ReportType = "manual-blur"
	ReportManualPerf      ReportType = "manual-performance"
	ReportManualFull      ReportType = "manual-full"
	ReportScheduledFull   ReportType = "scheduled-full"
	ReportScheduled       ReportType = "scheduled"
	ReportError           ReportType = "error"
)

// classify implements the report-type table of spec.md §4.4, resolved per
// spec.md §9's guidance. An aborted run is checked first, so a failed
// baseline attempt still reports as an error rather than as a baseline
// success; the baseline-created case comes next, and only then the
// subject-line-facing manual/scheduled and single/full distinctions.
func classify(cfg models.CheckConfig, isManual bool, aborted bool) ReportType {
	if aborted {
		return ReportError
	}
	if cfg.CreateBaseline && cfg.Visual && cfg.PhaseCount() == 1 {
		return ReportBaselineCreated
	}
	switch {
	case cfg.PhaseCount() == 4 && isManual:
		return ReportManualFull
	case cfg.PhaseCount() == 4 && !isManual:
		return ReportScheduledFull
	case cfg.PhaseCount() == 1 && isManual:
		switch {
		case cfg.Crawl:
			return ReportManualCrawl
		case cfg.Visual:
			return ReportManualVisual
		case cfg.Blur:
			return ReportManualBlur
		default:
			return ReportManualPerf
		}
	default:
		return ReportScheduled
	}
}

// ReportInput carries everything a ReportEmitter needs to render and send
// exactly one notification for a Dispatcher invocation (spec.md §4.4
// "report emission").
type ReportInput struct {
	Website       *models.Website
	Type          ReportType
	IsManual      bool
	Crawl         *models.CrawlStats
	Visual        *models.VisualSummary
	Blur          *models.BlurSummary
	Performance   *models.PerformanceSummary
	FailureReason string
}

// ReportEmitter is the narrow contract the Dispatcher needs from
// internal/notifications — defined on the consumer side so this package
// never imports the transport/templating layer's concrete types.
type ReportEmitter interface {
	Emit(ctx context.Context, input ReportInput) error
}
