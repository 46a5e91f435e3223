package primitives

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRasterCapturer_NormalizesToBaselineDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	capturer := NewRasterCapturer(NewFetchClient(50, 10))
	raw, err := capturer.Capture(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != baselineWidth || bounds.Dy() != baselineHeight {
		t.Fatalf("expected %dx%d, got %dx%d", baselineWidth, baselineHeight, bounds.Dx(), bounds.Dy())
	}
}

func TestRasterCapturer_IsDeterministicForUnchangedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>same every time</html>"))
	}))
	defer srv.Close()

	capturer := NewRasterCapturer(NewFetchClient(50, 10))
	first, err := capturer.Capture(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("capture 1: %v", err)
	}
	second, err := capturer.Capture(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("capture 2: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected identical content to rasterize identically")
	}
}
