package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_WritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "scheduler", INFO)
	l.Info("tick fired", map[string]interface{}{"website_id": "w1"})

	var entry Entry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal: %v (raw=%q)", err, buf.String())
	}
	if entry.Component != "scheduler" {
		t.Errorf("Component = %q, want scheduler", entry.Component)
	}
	if entry.WebsiteID != "w1" {
		t.Errorf("WebsiteID = %q, want w1", entry.WebsiteID)
	}
}

func TestLogger_FiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "queue", WARN)
	l.Info("should be dropped", nil)
	l.Warn("should appear", nil)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("expected INFO entry to be filtered, got %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("expected WARN entry to appear, got %q", out)
	}
}
