package models

import "time"

// ScheduledWebsite is one entry of the scheduler's live job map, persisted
// verbatim to scheduler_state.json (spec.md §3).
type ScheduledWebsite struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	CadenceMin   int       `json:"cadence_minutes"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

// SchedulerState is the whole persisted scheduler snapshot.
type SchedulerState struct {
	LastScheduleAt       time.Time                   `json:"last_schedule_at"`
	ScheduledWebsites    map[string]ScheduledWebsite  `json:"scheduled_websites"`
	ConsecutiveErrorCount int                         `json:"consecutive_error_count"`
	LastErrorAt          *time.Time                  `json:"last_error_at,omitempty"`
	IsRunning            bool                        `json:"is_running"`
}

// NewSchedulerState returns an empty, ready-to-persist state.
func NewSchedulerState() *SchedulerState {
	return &SchedulerState{
		ScheduledWebsites: make(map[string]ScheduledWebsite),
	}
}
