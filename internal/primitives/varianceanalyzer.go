package primitives

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"github.com/mbrown1837/webmonitor/internal/primitives/internal/imgstat"
)

// knownTrackingHosts are stripped before download, per spec.md §4.4 phase
// 3 "reject known tracking hosts". Not exhaustive; this is the same kind
// of small denylist the teacher's own input-sanitization helpers use
// (config/config.go's allowlist-by-substring pattern) rather than a
// dedicated trackers database.
var knownTrackingHosts = []string{
	"doubleclick.net", "google-analytics.com", "googletagmanager.com",
	"facebook.com/tr", "pixel.", "scorecardresearch.com",
}

const (
	varianceBlurThreshold = 100.0 // below this, the image is considered blurry
	spatialRatioThreshold = 0.15
)

// varianceAnalyzer is the default BlurAnalyzer. spec.md §4.4 phase 3
// explicitly names this as an external collaborator with no corresponding
// pack dependency for "compute a blur verdict from pixel data" — see
// DESIGN.md for why stdlib image/image-color is used here instead of a
// third-party library.
type varianceAnalyzer struct {
	fetch *FetchClient
}

// NewVarianceAnalyzer returns the default BlurAnalyzer adapter.
func NewVarianceAnalyzer(fetch *FetchClient) BlurAnalyzer {
	return &varianceAnalyzer{fetch: fetch}
}

func (a *varianceAnalyzer) Analyze(ctx context.Context, imageURLs []string) (*BlurResult, error) {
	result := &BlurResult{}

	for _, raw := range imageURLs {
		normalized, ok := normalizeImageURL(raw)
		if !ok {
			continue
		}

		host := ""
		if u, err := url.Parse(normalized); err == nil {
			host = u.Host
		}
		body, contentType, err := a.fetch.Get(ctx, normalized, host)
		if err != nil {
			continue // bounded retries already happened inside fetch; skip unreachable images
		}
		if !strings.HasPrefix(contentType, "image/") && contentType != "" {
			continue
		}

		img, _, err := image.Decode(bytes.NewReader(body))
		if err != nil {
			continue
		}

		variance := imgstat.LaplacianVariance(img)
		spatialRatio := imgstat.SpatialBlurRatio(img)
		blurry := variance < varianceBlurThreshold || spatialRatio > spatialRatioThreshold

		result.Processed++
		if blurry {
			result.Blurry++
		}
		result.Verdicts = append(result.Verdicts, BlurVerdict{URL: normalized, Blurry: blurry, Data: body})
	}

	return result, nil
}

// normalizeImageURL applies spec.md §4.4 phase 3's normalization rules:
// reject data URIs, reject known tracking hosts, upgrade scheme to HTTPS,
// resolve protocol-relative URLs.
func normalizeImageURL(raw string) (string, bool) {
	if strings.HasPrefix(raw, "data:") {
		return "", false
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	for _, tracker := range knownTrackingHosts {
		if strings.Contains(u.Host+u.Path, tracker) {
			return "", false
		}
	}
	return u.String(), true
}
