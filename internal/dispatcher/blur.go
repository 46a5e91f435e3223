package dispatcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/mbrown1837/webmonitor/internal/primitives"
)

// runBlur implements spec.md §4.4 phase 3: score every image referenced
// by the crawl's image inventory for blur, persisting blurry images under
// the snapshot tree's blur_images slot for operator review.
func (d *Dispatcher) runBlur(ctx context.Context, websiteID string, crawl *primitives.CrawlResult) (*models.BlurSummary, error) {
	if len(crawl.ImageURLs) == 0 {
		return &models.BlurSummary{}, nil
	}

	result, err := d.blur.Analyze(ctx, crawl.ImageURLs)
	if err != nil {
		return nil, err
	}

	for _, v := range result.Verdicts {
		if !v.Blurry || len(v.Data) == 0 {
			continue
		}
		hash := sha256.Sum256(v.Data)
		if _, err := d.snapshots.WriteBlurImage(websiteID, v.URL, hex.EncodeToString(hash[:]), v.Data); err != nil {
			d.log.Warn("failed to persist blurry image", map[string]interface{}{"website_id": websiteID, "url": v.URL, "error": err})
		}
	}

	summary := &models.BlurSummary{
		ImagesProcessed: result.Processed,
		BlurryCount:     result.Blurry,
	}
	if result.Processed > 0 {
		summary.BlurPercent = float64(result.Blurry) / float64(result.Processed) * 100
	}
	return summary, nil
}
