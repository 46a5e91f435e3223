package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/mbrown1837/webmonitor/internal/dispatcher"
	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/mbrown1837/webmonitor/internal/primitives"
)

// accent is the visual tag applied to a rendered report, per spec.md
// §4.4's "a visual accent (manual/scheduled/error)".
type accent string

const (
	accentManual    accent = "manual"
	accentScheduled accent = "scheduled"
	accentError     accent = "error"
)

// Manager is the default dispatcher.ReportEmitter: it selects a subject
// template and section set by report type and sends through whichever
// primitives.EmailTransport configuration selects.
//
// Grounded on the teacher's notifications/manager.go (provider selection,
// one outbound send per notification event).
type Manager struct {
	transport         primitives.EmailTransport
	defaultRecipients []string
	dashboardURL      string
	log               *logging.Logger
	tmpl              *template.Template
}

// New constructs a Manager. defaultRecipients applies when a website has
// none configured (spec.md §4.4 "Recipient list").
func New(transport primitives.EmailTransport, defaultRecipients []string, dashboardURL string, log *logging.Logger) *Manager {
	return &Manager{
		transport:         transport,
		defaultRecipients: defaultRecipients,
		dashboardURL:      dashboardURL,
		log:               log,
		tmpl:              template.Must(template.New("report").Parse(reportTemplate)),
	}
}

// Emit renders and sends exactly one notification for a Dispatcher
// invocation (spec.md §4.4: "produces exactly one notification per
// invocation"). A second invocation with identical inputs produces a
// second email — deduplication is the caller's job, per spec.md.
func (m *Manager) Emit(ctx context.Context, input dispatcher.ReportInput) error {
	recipients := input.Website.Recipients
	if len(recipients) == 0 {
		recipients = m.defaultRecipients
	}
	if len(recipients) == 0 {
		m.log.Warn("no notification recipients configured", map[string]interface{}{"website_id": input.Website.ID})
		return nil
	}

	subject := subjectFor(input)
	view := newReportView(input, m.dashboardURL)

	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, view); err != nil {
		return fmt.Errorf("notifications: render report: %w", err)
	}

	return m.transport.Send(ctx, primitives.EmailMessage{
		To:       recipients,
		Subject:  subject,
		HTMLBody: body.String(),
	})
}

// subjectFor builds the operator-facing subject line per spec.md §4.4's
// report-type table.
func subjectFor(input dispatcher.ReportInput) string {
	site := input.Website.DisplayName
	if site == "" {
		site = input.Website.URL
	}

	switch input.Type {
	case dispatcher.ReportBaselineCreated:
		return fmt.Sprintf("Baseline Created for %s", site)
	case dispatcher.ReportManualCrawl:
		return fmt.Sprintf("Manual Crawl Check for %s — %s", site, summaryFor(input))
	case dispatcher.ReportManualVisual:
		return fmt.Sprintf("Manual Visual Check for %s — %s", site, summaryFor(input))
	case dispatcher.ReportManualBlur:
		return fmt.Sprintf("Manual Blur Check for %s — %s", site, summaryFor(input))
	case dispatcher.ReportManualPerf:
		return fmt.Sprintf("Manual Performance Check for %s — %s", site, summaryFor(input))
	case dispatcher.ReportManualFull:
		return fmt.Sprintf("Manual Full Check for %s — %s", site, summaryFor(input))
	case dispatcher.ReportScheduledFull:
		return fmt.Sprintf("Scheduled Full Check for %s", site)
	case dispatcher.ReportError:
		return fmt.Sprintf("Check Failed for %s — %s", site, input.FailureReason)
	default:
		return fmt.Sprintf("Scheduled Check for %s", site)
	}
}

// summaryFor is the short clause following the em dash in a manual
// (single-phase or full) subject line.
func summaryFor(input dispatcher.ReportInput) string {
	switch {
	case input.Visual != nil && hasFlaggedChange(input.Visual):
		return "changes detected"
	case input.Blur != nil && input.Blur.BlurryCount > 0:
		return fmt.Sprintf("%d blurry image(s)", input.Blur.BlurryCount)
	case input.Crawl != nil && len(input.Crawl.BrokenLinks) > 0:
		return fmt.Sprintf("%d broken link(s)", len(input.Crawl.BrokenLinks))
	default:
		return "no issues found"
	}
}

func hasFlaggedChange(vs *models.VisualSummary) bool {
	for _, d := range vs.Diffs {
		if d.FlaggedChange {
			return true
		}
	}
	return false
}
