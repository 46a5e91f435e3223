package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/mbrown1837/webmonitor/internal/primitives"
)

// runVisual implements spec.md §4.4 phase 2: baseline creation, or a
// per-page diff against the stored baseline.
func (d *Dispatcher) runVisual(ctx context.Context, website *models.Website, crawl *primitives.CrawlResult, createBaseline bool) (*models.VisualSummary, error) {
	if crawl == nil {
		return nil, fmt.Errorf("visual phase requires a discovered page list")
	}
	pages := filterExcluded(website, crawl.Pages)
	if len(pages) == 0 {
		pages = filterExcluded(website, []string{website.URL})
	}

	if createBaseline {
		return d.createBaselines(ctx, website, pages)
	}

	if len(website.Baselines) == 0 {
		return nil, &precondErr{msg: "Please first create baselines, then do the visual check."}
	}

	summary := &models.VisualSummary{}
	for _, page := range pages {
		baseline, ok := website.Baselines[page]
		if !ok {
			continue
		}
		current, err := d.screenshot.Capture(ctx, page)
		if err != nil {
			continue
		}
		baselineBytes, err := d.snapshots.ReadBaseline(baseline.ImagePath)
		if err != nil {
			continue
		}

		diffPct, err := imageDiffPercent(baselineBytes, current)
		if err != nil {
			continue
		}
		flagged := diffPct > website.VisualDiffThresholdPct

		var diffPath string
		if flagged {
			if p, err := d.snapshots.WriteDiffImage(website.ID, page, current); err == nil {
				diffPath = p
			}
		}

		summary.Diffs = append(summary.Diffs, models.PageVisualDiff{
			Page: page, DiffPercent: diffPct, FlaggedChange: flagged, DiffImagePath: diffPath,
		})
		summary.PagesCompared++
	}
	return summary, nil
}

func (d *Dispatcher) createBaselines(ctx context.Context, website *models.Website, pages []string) (*models.VisualSummary, error) {
	newBaselines := make(map[string]models.Baseline, len(website.Baselines)+len(pages))
	for k, v := range website.Baselines {
		newBaselines[k] = v
	}

	now := time.Now().UTC()
	captured := 0
	for _, page := range pages {
		shot, err := d.screenshot.Capture(ctx, page)
		if err != nil {
			continue
		}
		path, err := d.snapshots.WriteBaseline(website.ID, page, shot)
		if err != nil {
			continue
		}
		newBaselines[page] = models.Baseline{ImagePath: path, CapturedAt: now}
		captured++
	}

	if err := d.catalog.UpdateBaselines(website.ID, newBaselines, now); err != nil {
		return nil, fmt.Errorf("persist baselines: %w", err)
	}

	return &models.VisualSummary{PagesCompared: captured, BaselineOnly: true}, nil
}

// imageDiffPercent decodes both images and computes the percentage
// (0-100) of pixel positions that differ beyond a small per-channel
// tolerance, comparing every pixel of the overlap given by the smaller of
// the two images' dimensions.
func imageDiffPercent(baseline, current []byte) (float64, error) {
	base, _, err := image.Decode(bytes.NewReader(baseline))
	if err != nil {
		return 0, fmt.Errorf("decode baseline: %w", err)
	}
	cur, _, err := image.Decode(bytes.NewReader(current))
	if err != nil {
		return 0, fmt.Errorf("decode current: %w", err)
	}

	bb, cb := base.Bounds(), cur.Bounds()
	w := min(bb.Dx(), cb.Dx())
	h := min(bb.Dy(), cb.Dy())
	if w == 0 || h == 0 {
		return 100, nil
	}

	const tolerance = 16 // out of 65535 per channel
	var diffCount, total int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r1, g1, b1, _ := base.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			r2, g2, b2, _ := cur.At(cb.Min.X+x, cb.Min.Y+y).RGBA()
			if absDiff(r1, r2) > tolerance || absDiff(g1, g2) > tolerance || absDiff(b1, b2) > tolerance {
				diffCount++
			}
			total++
		}
	}
	return float64(diffCount) / float64(total) * 100, nil
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
