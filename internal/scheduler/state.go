package scheduler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mbrown1837/webmonitor/internal/models"
)

// loadState reads scheduler_state.json, returning a fresh empty state if
// the file does not exist yet (first start, spec.md §3).
func loadState(path string) (*models.SchedulerState, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return models.NewSchedulerState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduler: read state: %w", err)
	}
	var state models.SchedulerState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("scheduler: parse state: %w", err)
	}
	if state.ScheduledWebsites == nil {
		state.ScheduledWebsites = make(map[string]models.ScheduledWebsite)
	}
	return &state, nil
}

// saveState writes state atomically via a temp-file-then-rename, the same
// pattern the snapshot filesystem uses for artifact writes (spec.md §4.2
// "persist the entire scheduler state").
func saveState(path string, state *models.SchedulerState) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("scheduler: create state dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("scheduler: marshal state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("scheduler: write temp state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("scheduler: rename state: %w", err)
	}
	return nil
}
