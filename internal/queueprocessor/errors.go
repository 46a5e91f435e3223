package queueprocessor

import "strings"

// translateError converts a raw primitive/dispatcher error into the
// curated user-facing phrase catalog from spec.md §7's error taxonomy.
// Matching is by keyword against the lowercased error string, mirroring
// how the teacher's own notifications/retry.go classifies transport
// errors for a retry decision rather than parsing typed error values —
// the upstream primitives in this domain (crawler, screenshot service,
// image fetcher) surface heterogeneous, often third-party error strings
// that don't share a common typed hierarchy.
func translateError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "no baseline") || strings.Contains(msg, "create baselines"):
		return "Please first create baselines, then do the visual check."
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "dns"):
		return "Domain could not be found."
	case strings.Contains(msg, "certificate") || strings.Contains(msg, "x509") || strings.Contains(msg, "ssl") || strings.Contains(msg, "tls"):
		return "SSL certificate issue detected."
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		return "Access denied by the target website."
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return "Page not found."
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return "Too many requests — the target website is rate-limiting this check."
	case strings.Contains(msg, "50") && (strings.Contains(msg, "server error") || strings.Contains(msg, "bad gateway") || strings.Contains(msg, "service unavailable")):
		return "Server error on the target website."
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return "Unable to connect — the request timed out."
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "no route to host"):
		return "Unable to connect to the target website."
	case strings.Contains(msg, "website no longer exists") || strings.Contains(msg, "not found: website"):
		return "This website no longer exists."
	default:
		return "The check could not be completed due to an unexpected error."
	}
}
