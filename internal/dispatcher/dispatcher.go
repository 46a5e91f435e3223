// Package dispatcher is the Check Dispatcher (spec.md §4.4): the
// composition point that runs a website's configured phases in order,
// persists a History Store record, updates baselines, and emits exactly
// one report.
//
// Grounded on the teacher's risk/pretrade.go (a multi-stage validation
// pipeline accumulating independent check results into one verdict
// struct) generalized from order validation to four independent
// page-analysis phases.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mbrown1837/webmonitor/internal/catalogstore"
	"github.com/mbrown1837/webmonitor/internal/historystore"
	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/metrics"
	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/mbrown1837/webmonitor/internal/primitives"
)

// SnapshotWriter is the narrow filesystem contract the Dispatcher needs
// from internal/snapshot — defined here, on the consumer side, so this
// package never imports the filesystem layer's concrete type.
type SnapshotWriter interface {
	WriteBaseline(websiteID, pageURL string, data []byte) (path string, err error)
	WriteDiffImage(websiteID, pageURL string, data []byte) (path string, err error)
	WriteBlurImage(websiteID, pageURL, imageHash string, data []byte) (path string, err error)
	ReadBaseline(path string) ([]byte, error)
}

// Dispatcher is the Check Dispatcher.
type Dispatcher struct {
	catalog    *catalogstore.Store
	history    *historystore.Store
	snapshots  SnapshotWriter
	crawler    primitives.Crawler
	screenshot primitives.ScreenshotCapturer
	blur       primitives.BlurAnalyzer
	perf       primitives.PerformanceAnalyzer
	reports    ReportEmitter
	log        *logging.Logger
}

// New constructs a Dispatcher from its external collaborators.
func New(
	catalog *catalogstore.Store,
	history *historystore.Store,
	snapshots SnapshotWriter,
	crawler primitives.Crawler,
	screenshot primitives.ScreenshotCapturer,
	blur primitives.BlurAnalyzer,
	perf primitives.PerformanceAnalyzer,
	reports ReportEmitter,
	log *logging.Logger,
) *Dispatcher {
	return &Dispatcher{
		catalog: catalog, history: history, snapshots: snapshots,
		crawler: crawler, screenshot: screenshot, blur: blur, perf: perf,
		reports: reports, log: log,
	}
}

// precondErr marks an error that aborts the whole invocation with a
// user-visible message, rather than being recorded as a recoverable
// per-phase failure (spec.md §7 "precondition errors").
type precondErr struct{ msg string }

func (e *precondErr) Error() string { return e.msg }

// Dispatch runs every phase cfg requests, in spec order, and returns the
// persisted CheckRecord. When a precondition aborts the run, the failed
// record is returned together with an error carrying the user-visible
// message. Callers (Scheduler Core, Queue Processor) are
// responsible for ensuring no two Dispatch calls run concurrently
// (spec.md §5) — this method does not take its own lock.
func (d *Dispatcher) Dispatch(ctx context.Context, website *models.Website, cfg models.CheckConfig, isManual bool) (*models.CheckRecord, error) {
	start := time.Now()
	ran := map[string]bool{}
	var errs *multierror.Error
	var abortReason string

	var crawlResult *primitives.CrawlResult
	needsPages := cfg.Crawl || cfg.Visual || cfg.Blur || cfg.Performance
	if needsPages {
		phaseStart := time.Now()
		result, err := d.runCrawl(ctx, website)
		metrics.ObservePhase("crawl", phaseStart)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("crawl: %w", err))
		} else {
			crawlResult = result
			if cfg.Crawl {
				ran["crawl"] = true
			}
		}
	}

	var visualSummary *models.VisualSummary
	if cfg.Visual {
		phaseStart := time.Now()
		vs, err := d.runVisual(ctx, website, crawlResult, cfg.CreateBaseline)
		metrics.ObservePhase("visual", phaseStart)
		if err != nil {
			if pe, ok := err.(*precondErr); ok {
				abortReason = pe.msg
			} else {
				errs = multierror.Append(errs, fmt.Errorf("visual: %w", err))
			}
		} else {
			visualSummary = vs
			ran["visual"] = true
		}
	}

	var blurSummary *models.BlurSummary
	if cfg.Blur && crawlResult != nil {
		phaseStart := time.Now()
		bs, err := d.runBlur(ctx, website.ID, crawlResult)
		metrics.ObservePhase("blur", phaseStart)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("blur: %w", err))
		} else {
			blurSummary = bs
			ran["blur"] = true
		}
	}

	var perfSummary *models.PerformanceSummary
	if cfg.Performance && crawlResult != nil {
		phaseStart := time.Now()
		ps, err := d.runPerformance(ctx, crawlResult)
		metrics.ObservePhase("performance", phaseStart)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("performance: %w", err))
		} else {
			perfSummary = ps
			ran["performance"] = true
		}
	}

	rec := &models.CheckRecord{
		WebsiteID:      website.ID,
		IsManual:       isManual,
		Crawl:          toCrawlStats(crawlResult),
		Visual:         visualSummary,
		Blur:           blurSummary,
		Performance:    perfSummary,
		Status:         models.StatusCompleted,
		IsChangeReport: visualSummary != nil && hasFlaggedChange(visualSummary),
	}

	anyRequestedPhaseRan := !needsPages || len(ran) > 0
	switch {
	case abortReason != "":
		rec.Status = models.StatusFailed
		rec.FailureReason = abortReason
	case !anyRequestedPhaseRan && errs.ErrorOrNil() != nil:
		rec.Status = models.StatusFailed
		rec.FailureReason = errs.Error()
	}

	saved, err := d.history.Append(rec)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: persist history: %w", err)
	}

	if err := d.catalog.TouchLastChecked(website.ID, saved.Timestamp); err != nil {
		d.log.Warn("failed to update last_checked_at", map[string]interface{}{"website_id": website.ID, "error": err})
	}

	reportType := classify(cfg, isManual, rec.Status == models.StatusFailed)
	if d.reports != nil {
		input := ReportInput{
			Website: website, Type: reportType, IsManual: isManual,
			Crawl: rec.Crawl, Visual: visualSummary, Blur: blurSummary, Performance: perfSummary,
			FailureReason: rec.FailureReason,
		}
		if err := d.reports.Emit(ctx, input); err != nil {
			d.log.Warn("report emission failed", map[string]interface{}{"website_id": website.ID, "error": err})
		}
	}

	metrics.DispatcherInvocations.WithLabelValues(string(reportType)).Inc()
	metrics.ObservePhase("dispatch_total", start)

	if errs.ErrorOrNil() != nil {
		d.log.Warn("dispatch completed with phase errors", map[string]interface{}{"website_id": website.ID, "error": errs.Error()})
	}

	if abortReason != "" {
		return saved, &precondErr{msg: abortReason}
	}
	return saved, nil
}

func hasFlaggedChange(vs *models.VisualSummary) bool {
	for _, d := range vs.Diffs {
		if d.FlaggedChange {
			return true
		}
	}
	return false
}

func toCrawlStats(result *primitives.CrawlResult) *models.CrawlStats {
	if result == nil {
		return nil
	}
	return &models.CrawlStats{
		PagesCrawled: len(result.Pages),
		LinksChecked: len(result.Pages) + len(result.BrokenLinks),
		SitemapFound: result.SitemapFound,
		BrokenLinks:  result.BrokenLinks,
		MissingMeta:  result.MissingMeta,
	}
}
