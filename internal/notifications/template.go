package notifications

import (
	"path/filepath"
	"strings"

	"github.com/mbrown1837/webmonitor/internal/dispatcher"
)

// snapshotHref builds the dashboard's /snapshots/<relative> link for a
// path returned by the snapshot filesystem (spec.md §6: "Paths written
// into notification templates must resolve via the dashboard's
// /snapshots/<relative> route, which serves files verbatim from this
// tree").
func snapshotHref(dashboardURL, path string) string {
	return strings.TrimRight(dashboardURL, "/") + "/snapshots/" + strings.TrimLeft(filepath.ToSlash(path), "/")
}

// reportView is the data bound into reportTemplate. Only the sections for
// phases that actually ran are populated (spec.md §4.4 "the section set
// in the HTML body — only sections for phases that actually ran").
type reportView struct {
	Accent       accent
	Site         string
	URL          string
	DashboardURL string
	ReportType   dispatcher.ReportType
	FailureReason string

	ShowCrawl   bool
	ShowVisual  bool
	ShowBlur    bool
	ShowPerf    bool

	CrawlPages   int
	BrokenLinks  int
	MissingMeta  int

	VisualPages   int
	VisualFlagged int
	DiffLinks     []diffLink

	BlurProcessed int
	BlurBlurry    int
	BlurPercent   float64

	PerfPages   int
	PerfMobile  float64
	PerfDesktop float64
	PerfSlowest string
}

// diffLink is one flagged page's visual-diff image, resolved through the
// dashboard's `/snapshots/<relative>` route (spec.md §6) so a recipient
// can open it directly from the notification.
type diffLink struct {
	Page string
	Href string
}

func newReportView(input dispatcher.ReportInput, dashboardURL string) reportView {
	site := input.Website.DisplayName
	if site == "" {
		site = input.Website.URL
	}

	v := reportView{
		Site:          site,
		URL:           input.Website.URL,
		DashboardURL:  dashboardURL,
		ReportType:    input.Type,
		FailureReason: input.FailureReason,
	}

	switch {
	case input.Type == dispatcher.ReportError:
		v.Accent = accentError
	case input.IsManual:
		v.Accent = accentManual
	default:
		v.Accent = accentScheduled
	}

	if input.Crawl != nil {
		v.ShowCrawl = true
		v.CrawlPages = input.Crawl.PagesCrawled
		v.BrokenLinks = len(input.Crawl.BrokenLinks)
		v.MissingMeta = len(input.Crawl.MissingMeta)
	}
	if input.Visual != nil {
		v.ShowVisual = true
		v.VisualPages = input.Visual.PagesCompared
		for _, d := range input.Visual.Diffs {
			if d.FlaggedChange {
				v.VisualFlagged++
				if d.DiffImagePath != "" {
					v.DiffLinks = append(v.DiffLinks, diffLink{
						Page: d.Page,
						Href: snapshotHref(dashboardURL, d.DiffImagePath),
					})
				}
			}
		}
	}
	if input.Blur != nil {
		v.ShowBlur = true
		v.BlurProcessed = input.Blur.ImagesProcessed
		v.BlurBlurry = input.Blur.BlurryCount
		v.BlurPercent = input.Blur.BlurPercent
	}
	if input.Performance != nil {
		v.ShowPerf = true
		v.PerfPages = input.Performance.PagesAnalyzed
		v.PerfMobile = input.Performance.AvgMobile
		v.PerfDesktop = input.Performance.AvgDesktop
		v.PerfSlowest = input.Performance.SlowestPage
	}

	return v
}

// reportTemplate is the HTML body shared by every report type, following
// the teacher's own inline-style single-file template convention
// (notifications/email.go's WelcomeEmailTemplate/OrderExecutedTemplate).
const reportTemplate = `
<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 640px; margin: 0 auto; padding: 20px; }
.header { color: white; padding: 20px; text-align: center; }
.header.manual { background: #2196F3; }
.header.scheduled { background: #4CAF50; }
.header.error { background: #E53935; }
.content { padding: 20px; background: #f9f9f9; }
.section { background: white; padding: 15px; border-left: 4px solid #2196F3; margin: 16px 0; }
.snapshot-link { display: inline-block; margin: 4px 8px 0 0; padding: 6px 10px; background-color: #2196F3; color: white; text-decoration: none; border-radius: 4px; font-size: 13px; }
.snapshot-link:hover { background-color: #0d6fbf; }
.footer { text-align: center; padding: 20px; font-size: 12px; color: #666; }
</style>
</head>
<body>
<div class="container">
  <div class="header {{.Accent}}">
    <h1>{{.Site}}</h1>
    <p>{{.URL}}</p>
  </div>
  <div class="content">
    {{if eq .ReportType "error"}}
    <div class="section">
      <h3>Check Failed</h3>
      <p>{{.FailureReason}}</p>
    </div>
    {{end}}
    {{if .ShowCrawl}}
    <div class="section">
      <h3>Crawl</h3>
      <p>{{.CrawlPages}} pages crawled, {{.BrokenLinks}} broken link(s), {{.MissingMeta}} page(s) missing meta tags.</p>
    </div>
    {{end}}
    {{if .ShowVisual}}
    <div class="section">
      <h3>Visual</h3>
      <p>{{.VisualPages}} page(s) compared, {{.VisualFlagged}} flagged as changed.</p>
      {{range .DiffLinks}}<a class="snapshot-link" href="{{.Href}}">View diff: {{.Page}}</a>{{end}}
    </div>
    {{end}}
    {{if .ShowBlur}}
    <div class="section">
      <h3>Image Blur</h3>
      <p>{{.BlurProcessed}} image(s) processed, {{.BlurBlurry}} blurry ({{printf "%.1f" .BlurPercent}}%).</p>
    </div>
    {{end}}
    {{if .ShowPerf}}
    <div class="section">
      <h3>Performance</h3>
      <p>{{.PerfPages}} page(s) analyzed. Average mobile score {{printf "%.0f" .PerfMobile}}, desktop {{printf "%.0f" .PerfDesktop}}.</p>
      {{if .PerfSlowest}}<p>Slowest page: {{.PerfSlowest}}</p>{{end}}
    </div>
    {{end}}
  </div>
  <div class="footer">
    <p><a href="{{.DashboardURL}}">Open dashboard</a></p>
  </div>
</div>
</body>
</html>`
