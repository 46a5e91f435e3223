// Package snapshot is the Check Dispatcher's exclusive write domain on
// disk (spec.md §3 "Snapshot Filesystem Layout", §5 "the snapshot
// filesystem is the Dispatcher's exclusive write domain; readers ...
// must tolerate partially written files").
//
// Grounded on the teacher's backup/backup.go: the same
// write-to-temp-name-then-rename discipline that file uses when staging
// a backup archive before it is considered durable, applied here to
// every image write so a concurrent reader (the dashboard, serving
// `/snapshots/<relative>`) never observes a half-written PNG.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mbrown1837/webmonitor/internal/logging"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Slug replaces every non-alphanumeric character with "_" (spec.md §3:
// "Host and page slugs are derived by replacing every non-alphanumeric
// character with _").
func Slug(s string) string {
	return nonAlnum.ReplaceAllString(s, "_")
}

// Store is the default dispatcher.SnapshotWriter, rooted at
// config.SnapshotDirectory.
type Store struct {
	root string
	log  *logging.Logger
}

// New returns a Store rooted at root. root is created on first write, not
// at construction.
func New(root string, log *logging.Logger) *Store {
	return &Store{root: root, log: log}
}

func hostSlug(pageURL string) string {
	host := pageURL
	if i := strings.Index(pageURL, "://"); i >= 0 {
		host = pageURL[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	return Slug(host)
}

func pageSlug(pageURL string) string {
	path := pageURL
	if i := strings.Index(pageURL, "://"); i >= 0 {
		path = pageURL[i+3:]
		if j := strings.Index(path, "/"); j >= 0 {
			path = path[j:]
		} else {
			path = "/"
		}
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "root"
	}
	return Slug(path)
}

func (s *Store) websiteDir(websiteID, pageURL string) string {
	return filepath.Join(s.root, hostSlug(pageURL), websiteID)
}

// writeAtomic writes data to a temp file in dir and renames it into place
// so partially written files are never observable to a reader (spec.md
// §5).
func writeAtomic(finalPath string, data []byte) error {
	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}

// WriteBaseline writes the baseline slot for pageURL, replacing any prior
// baseline for that URL (spec.md §4.4 phase 2).
func (s *Store) WriteBaseline(websiteID, pageURL string, data []byte) (string, error) {
	path := filepath.Join(s.websiteDir(websiteID, pageURL), "baseline", fmt.Sprintf("baseline_%s.png", pageSlug(pageURL)))
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteVisual writes a current-snapshot capture for pageURL, distinct
// from the baseline slot so prior visual snapshots are retained for
// inspection.
func (s *Store) WriteVisual(websiteID, pageURL string, data []byte, at time.Time) (string, error) {
	name := fmt.Sprintf("%s_%s.png", at.UTC().Format("20060102T150405Z"), pageSlug(pageURL))
	path := filepath.Join(s.websiteDir(websiteID, pageURL), "visual", name)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteDiffImage writes a visual-diff image for pageURL when a page is
// flagged as changed (spec.md §4.4 phase 2).
func (s *Store) WriteDiffImage(websiteID, pageURL string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s.png", time.Now().UTC().Format("20060102T150405Z"), pageSlug(pageURL))
	path := filepath.Join(s.websiteDir(websiteID, pageURL), "diffs", name)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteBlurImage persists a downloaded image considered for blur analysis
// under a content-hash name, so repeated checks of the same image don't
// accumulate duplicate files. It nests under the same
// <host_slug>/<website_id>/ tree as every other Write* method, alongside
// baseline/visual/diffs, rather than a separate top-level bucket.
func (s *Store) WriteBlurImage(websiteID, pageURL, imageHash string, data []byte) (string, error) {
	path := filepath.Join(s.websiteDir(websiteID, pageURL), "blur_images", imageHash+".png")
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ReadBaseline reads back a previously written baseline image by its
// stored path.
func (s *Store) ReadBaseline(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DeleteWebsite removes every snapshot file for websiteID, searching
// every host-slug directory since the Store doesn't index website->host
// itself (spec.md §3 "On website deletion the entire <website_id>
// subtree is removed"). Registered as a Catalog Store deletion hook.
func (s *Store) DeleteWebsite(websiteID string) error {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("snapshot: list host dirs: %w", err)
	}

	var removed int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name(), websiteID)
		if info, err := dirSize(dir); err == nil {
			removed += info
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("snapshot: remove %s: %w", dir, err)
		}
	}

	if s.log != nil && removed > 0 {
		s.log.Info("removed website snapshot tree", map[string]interface{}{
			"website_id": websiteID, "bytes_freed": humanize.Bytes(uint64(removed)),
		})
	}
	return nil
}

func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
