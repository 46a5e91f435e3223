package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"example.com":          "example_com",
		"www.example.com:8080": "www_example_com_8080",
		"/blog/post-1":         "_blog_post_1",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHostAndPageSlug(t *testing.T) {
	if got, want := hostSlug("https://example.com/blog/post-1"), "example_com"; got != want {
		t.Errorf("hostSlug = %q, want %q", got, want)
	}
	if got, want := pageSlug("https://example.com/blog/post-1"), "_blog_post_1"; got != want {
		t.Errorf("pageSlug = %q, want %q", got, want)
	}
	if got, want := pageSlug("https://example.com"), "root"; got != want {
		t.Errorf("pageSlug root = %q, want %q", got, want)
	}
}

func TestWriteBaseline_AtomicAndReadable(t *testing.T) {
	s := New(t.TempDir(), nil)
	path, err := s.WriteBaseline("site-1", "https://example.com/home", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("write baseline: %v", err)
	}
	data, err := s.ReadBaseline(path)
	if err != nil {
		t.Fatalf("read baseline: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected content: %q", data)
	}

	// No leftover temp files in the target directory.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".png" {
			t.Errorf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestWriteVisualAndDiff_DistinctFromBaseline(t *testing.T) {
	s := New(t.TempDir(), nil)
	base, err := s.WriteBaseline("site-1", "https://example.com/home", []byte("a"))
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	visual, err := s.WriteVisual("site-1", "https://example.com/home", []byte("b"), time.Now())
	if err != nil {
		t.Fatalf("visual: %v", err)
	}
	diff, err := s.WriteDiffImage("site-1", "https://example.com/home", []byte("c"))
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if base == visual || base == diff || visual == diff {
		t.Fatalf("expected distinct paths, got base=%s visual=%s diff=%s", base, visual, diff)
	}
}

func TestDeleteWebsite_RemovesTreeAcrossHosts(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil)
	if _, err := s.WriteBaseline("site-1", "https://a.example.com/x", []byte("a")); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if _, err := s.WriteBaseline("site-1", "https://b.example.com/y", []byte("b")); err != nil {
		t.Fatalf("write b: %v", err)
	}
	if _, err := s.WriteBlurImage("site-1", "https://a.example.com/x", "deadbeef", []byte("blurry")); err != nil {
		t.Fatalf("write blur: %v", err)
	}

	if err := s.DeleteWebsite("site-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
			if seg == "site-1" {
				t.Errorf("found leftover path under deleted website: %s", path)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
}
