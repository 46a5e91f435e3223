package notifications

import (
	"context"
	"testing"

	"github.com/mbrown1837/webmonitor/internal/dispatcher"
	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/mbrown1837/webmonitor/internal/primitives"
)

type fakeTransport struct {
	sent []primitives.EmailMessage
	err  error
}

func (f *fakeTransport) Send(ctx context.Context, msg primitives.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestSubjectFor(t *testing.T) {
	site := &models.Website{DisplayName: "Example Site"}

	cases := []struct {
		name  string
		input dispatcher.ReportInput
		want  string
	}{
		{
			name:  "baseline created",
			input: dispatcher.ReportInput{Website: site, Type: dispatcher.ReportBaselineCreated},
			want:  "Baseline Created for Example Site",
		},
		{
			name:  "manual visual no changes",
			input: dispatcher.ReportInput{Website: site, Type: dispatcher.ReportManualVisual},
			want:  "Manual Visual Check for Example Site — no issues found",
		},
		{
			name: "manual visual changes detected",
			input: dispatcher.ReportInput{
				Website: site, Type: dispatcher.ReportManualVisual,
				Visual: &models.VisualSummary{Diffs: []models.PageVisualDiff{{FlaggedChange: true}}},
			},
			want: "Manual Visual Check for Example Site — changes detected",
		},
		{
			name:  "scheduled full",
			input: dispatcher.ReportInput{Website: site, Type: dispatcher.ReportScheduledFull},
			want:  "Scheduled Full Check for Example Site",
		},
		{
			name:  "error includes failure reason",
			input: dispatcher.ReportInput{Website: site, Type: dispatcher.ReportError, FailureReason: "please create baselines first"},
			want:  "Check Failed for Example Site — please create baselines first",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := subjectFor(tc.input); got != tc.want {
				t.Errorf("subjectFor() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSummaryFor_PrefersVisualThenBlurThenCrawl(t *testing.T) {
	input := dispatcher.ReportInput{
		Visual: &models.VisualSummary{Diffs: []models.PageVisualDiff{{FlaggedChange: false}}},
		Blur:   &models.BlurSummary{BlurryCount: 2},
		Crawl:  &models.CrawlStats{BrokenLinks: []models.BrokenLink{{}}},
	}
	if got, want := summaryFor(input), "2 blurry image(s)"; got != want {
		t.Errorf("summaryFor() = %q, want %q", got, want)
	}
}

func TestEmit_FallsBackToDefaultRecipients(t *testing.T) {
	transport := &fakeTransport{}
	mgr := New(transport, []string{"ops@example.com"}, "https://dashboard.example.com", logging.NewDefault("test"))

	site := &models.Website{ID: "site-1", DisplayName: "Example Site", URL: "https://example.com"}
	err := mgr.Emit(context.Background(), dispatcher.ReportInput{Website: site, Type: dispatcher.ReportScheduled})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(transport.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(transport.sent))
	}
	if got := transport.sent[0].To; len(got) != 1 || got[0] != "ops@example.com" {
		t.Fatalf("expected default recipients, got %v", got)
	}
}

func TestNewReportView_LinksFlaggedDiffsOnly(t *testing.T) {
	site := &models.Website{DisplayName: "Example Site"}
	input := dispatcher.ReportInput{
		Website: site,
		Type:    dispatcher.ReportManualVisual,
		Visual: &models.VisualSummary{Diffs: []models.PageVisualDiff{
			{Page: "/home", FlaggedChange: true, DiffImagePath: "example_com/site-1/diffs/20260101T000000Z__home.png"},
			{Page: "/about", FlaggedChange: false, DiffImagePath: ""},
			{Page: "/blog", FlaggedChange: true, DiffImagePath: ""},
		}},
	}

	view := newReportView(input, "https://dashboard.example.com/")
	if len(view.DiffLinks) != 1 {
		t.Fatalf("expected exactly one diff link, got %d: %+v", len(view.DiffLinks), view.DiffLinks)
	}
	want := "https://dashboard.example.com/snapshots/example_com/site-1/diffs/20260101T000000Z__home.png"
	if got := view.DiffLinks[0].Href; got != want {
		t.Errorf("href = %q, want %q", got, want)
	}
	if view.DiffLinks[0].Page != "/home" {
		t.Errorf("page = %q, want /home", view.DiffLinks[0].Page)
	}
}

func TestSnapshotHref_JoinsWithoutDoubleSlash(t *testing.T) {
	got := snapshotHref("https://dashboard.example.com/", "/example_com/site-1/baseline/baseline_home.png")
	want := "https://dashboard.example.com/snapshots/example_com/site-1/baseline/baseline_home.png"
	if got != want {
		t.Errorf("snapshotHref() = %q, want %q", got, want)
	}
}

func TestEmit_NoRecipientsIsWarningNotError(t *testing.T) {
	transport := &fakeTransport{}
	mgr := New(transport, nil, "https://dashboard.example.com", logging.NewDefault("test"))

	site := &models.Website{ID: "site-1", DisplayName: "Example Site"}
	err := mgr.Emit(context.Background(), dispatcher.ReportInput{Website: site, Type: dispatcher.ReportScheduled})
	if err != nil {
		t.Fatalf("expected no error when recipients are missing, got %v", err)
	}
	if len(transport.sent) != 0 {
		t.Fatalf("expected no send, got %d", len(transport.sent))
	}
}
