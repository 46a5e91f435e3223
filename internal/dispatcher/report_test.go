package dispatcher

import (
	"testing"

	"github.com/mbrown1837/webmonitor/internal/models"
)

func TestClassify(t *testing.T) {
	full := models.CheckConfig{Crawl: true, Visual: true, Blur: true, Performance: true}
	baseline := models.CheckConfig{Visual: true, CreateBaseline: true}

	cases := []struct {
		name     string
		cfg      models.CheckConfig
		isManual bool
		aborted  bool
		want     ReportType
	}{
		{"aborted always wins", full, true, true, ReportError},
		{"aborted baseline still error", baseline, true, true, ReportError},
		{"baseline created", baseline, true, false, ReportBaselineCreated},
		{"manual full", full, true, false, ReportManualFull},
		{"scheduled full", full, false, false, ReportScheduledFull},
		{"manual crawl only", models.CheckConfig{Crawl: true}, true, false, ReportManualCrawl},
		{"manual visual only", models.CheckConfig{Visual: true}, true, false, ReportManualVisual},
		{"manual blur only", models.CheckConfig{Blur: true}, true, false, ReportManualBlur},
		{"manual performance only", models.CheckConfig{Performance: true}, true, false, ReportManualPerf},
		{"scheduled single phase falls back", models.CheckConfig{Crawl: true}, false, false, ReportScheduled},
		{"scheduled two phases falls back", models.CheckConfig{Crawl: true, Visual: true}, false, false, ReportScheduled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.cfg, tc.isManual, tc.aborted)
			if got != tc.want {
				t.Fatalf("classify(%+v, manual=%v, aborted=%v) = %s, want %s", tc.cfg, tc.isManual, tc.aborted, got, tc.want)
			}
		})
	}
}
