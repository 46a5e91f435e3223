// Package scheduler is the Scheduler Core (spec.md §4.2): it turns the
// catalog's active websites into a live set of cron jobs, persists its
// own state, and enforces that only one instance runs against a given
// data directory at a time.
//
// Grounded on the teacher's risk/circuit_breaker.go CircuitBreakerManager
// (start/stop goroutine, stopChan, single owning worker) generalized from
// a fixed-interval ticker to per-website cron entries, and on
// lpmanager/manager.go's config-driven reload pattern for
// force_reschedule's clear-then-rebuild shape.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mbrown1837/webmonitor/internal/catalogstore"
	"github.com/mbrown1837/webmonitor/internal/lockfile"
	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/metrics"
	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/robfig/cron/v3"
)

// maxConsecutiveErrors triggers a full force_reschedule, per spec.md §4.2.
const maxConsecutiveErrors = 5

// DispatchFunc invokes the Check Dispatcher. The scheduler never imports
// the dispatcher package directly — this keeps the dependency one-way
// (cmd/server wires the real implementation in).
type DispatchFunc func(ctx context.Context, website *models.Website, cfg models.CheckConfig, isManual bool) error

// Core is the Scheduler Core.
type Core struct {
	catalog   *catalogstore.Store
	dispatch  DispatchFunc
	dispatchMu *sync.Mutex // shared with the Queue Processor: no two Dispatcher invocations overlap (spec.md §5)

	statePath string
	lockPath  string
	log       *logging.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	state   *models.SchedulerState
	lock    *lockfile.Lock
	running bool
}

// New constructs a Core. dispatchMu must be the same mutex instance the
// Queue Processor serializes its own Dispatcher calls against.
func New(catalog *catalogstore.Store, dispatch DispatchFunc, dispatchMu *sync.Mutex, statePath, lockPath string, log *logging.Logger) *Core {
	return &Core{
		catalog:    catalog,
		dispatch:   dispatch,
		dispatchMu: dispatchMu,
		statePath:  statePath,
		lockPath:   lockPath,
		log:        log,
		entries:    make(map[string]cron.EntryID),
	}
}

// Start acquires the singleton lock, loads persisted state, builds the
// job set from the catalog, and begins ticking. Returns an error without
// mutating anything if another live instance already holds the lock
// (spec.md §4.2 "singleton enforcement").
func (c *Core) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("scheduler: already running")
	}

	lock, err := lockfile.Acquire(c.lockPath)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("scheduler: start: %w", err)
	}
	c.lock = lock

	state, err := loadState(c.statePath)
	if err != nil {
		c.lock.Release()
		c.lock = nil
		c.mu.Unlock()
		return err
	}
	c.state = state
	c.state.IsRunning = true

	c.cron = cron.New()
	c.cron.Start()
	c.running = true
	c.mu.Unlock()

	if err := c.ForceReschedule(); err != nil {
		c.log.Error("initial job build failed", map[string]interface{}{"error": err})
	}

	c.log.Info("scheduler started", nil)
	return nil
}

// Stop cooperatively drains the cron scheduler (hard join timeout 30s per
// spec.md §4.2) and releases the lock.
func (c *Core) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	cronHandle := c.cron
	c.state.IsRunning = false
	state := c.state
	c.mu.Unlock()

	ctx := cronHandle.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		c.log.Warn("scheduler stop: jobs did not drain within 30s", nil)
	}

	if err := saveState(c.statePath, state); err != nil {
		c.log.Error("scheduler: persist state on stop failed", map[string]interface{}{"error": err})
	}

	c.mu.Lock()
	lock := c.lock
	c.lock = nil
	c.mu.Unlock()
	if err := lock.Release(); err != nil {
		return err
	}
	c.log.Info("scheduler stopped", nil)
	return nil
}

// Status returns a snapshot of the persisted scheduler state for the
// Admin API (spec.md §4.2 "status() -> runtime snapshot").
func (c *Core) Status() models.SchedulerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return *models.NewSchedulerState()
	}
	cp := *c.state
	cp.ScheduledWebsites = make(map[string]models.ScheduledWebsite, len(c.state.ScheduledWebsites))
	for k, v := range c.state.ScheduledWebsites {
		cp.ScheduledWebsites[k] = v
	}
	return cp
}

// ForceReschedule clears every live job and rebuilds the set from the
// catalog's current active websites (spec.md §4.2 "job set construction").
func (c *Core) ForceReschedule() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forceRescheduleLocked()
}

func (c *Core) forceRescheduleLocked() error {
	for id, entryID := range c.entries {
		c.cron.Remove(entryID)
		delete(c.entries, id)
	}
	c.state.ScheduledWebsites = make(map[string]models.ScheduledWebsite)

	active := true
	sites, err := c.catalog.List(models.Filter{Active: &active})
	if err != nil {
		metrics.SchedulerTicks.WithLabelValues("error").Inc()
		return fmt.Errorf("scheduler: list active websites: %w", err)
	}

	now := time.Now().UTC()
	for _, w := range sites {
		websiteID := w.ID
		spec := fmt.Sprintf("@every %dm", w.CadenceMin)
		entryID, err := c.cron.AddFunc(spec, func() { c.tick(websiteID) })
		if err != nil {
			c.log.Error("scheduler: failed to install job", map[string]interface{}{"website_id": websiteID, "error": err})
			continue
		}
		c.entries[websiteID] = entryID
		c.state.ScheduledWebsites[websiteID] = models.ScheduledWebsite{
			Name:        w.DisplayName,
			URL:         w.URL,
			CadenceMin:  w.CadenceMin,
			ScheduledAt: now,
		}
	}

	c.state.LastScheduleAt = now
	if err := saveState(c.statePath, c.state); err != nil {
		return fmt.Errorf("scheduler: persist after reschedule: %w", err)
	}
	return nil
}

// RemoveWebsite un-installs the job for id, if any, and persists the
// resulting state. Safe to call for an id with no installed job.
// Registered as the Catalog Store's deletion hook by cmd/server, closing
// the "website deleted mid-flight" race (spec.md §4.2 "removal contract",
// §9 "one-way push").
func (c *Core) RemoveWebsite(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if entryID, ok := c.entries[id]; ok {
		c.cron.Remove(entryID)
		delete(c.entries, id)
	}
	delete(c.state.ScheduledWebsites, id)
	if err := saveState(c.statePath, c.state); err != nil {
		c.log.Error("scheduler: persist after remove_website failed", map[string]interface{}{"website_id": id, "error": err})
	}
}

// tick fires when a cron entry is due. It re-reads the website fresh,
// uninstalls the job if the site vanished or went inactive, and otherwise
// invokes the Check Dispatcher under the shared process-wide mutex
// (spec.md §4.2 "tick semantics", §5 "no two Dispatcher invocations
// overlap").
func (c *Core) tick(websiteID string) {
	w, err := c.catalog.Get(websiteID)
	if errors.Is(err, catalogstore.ErrNotFound) {
		c.log.Info("scheduler tick: website vanished, removing job", map[string]interface{}{"website_id": websiteID})
		metrics.SchedulerTicks.WithLabelValues("skipped_missing").Inc()
		c.RemoveWebsite(websiteID)
		return
	}
	if err != nil {
		c.recordTickError(fmt.Errorf("read website: %w", err))
		return
	}
	if !w.IsActive {
		metrics.SchedulerTicks.WithLabelValues("skipped_inactive").Inc()
		c.RemoveWebsite(websiteID)
		return
	}

	cfg, err := c.catalog.GetAutomatedCheckConfig(websiteID)
	if err != nil {
		c.recordTickError(fmt.Errorf("derive check config: %w", err))
		return
	}

	c.dispatchMu.Lock()
	dispatchErr := c.dispatch(context.Background(), w, cfg, false)
	c.dispatchMu.Unlock()

	if dispatchErr != nil {
		// Dispatcher failures never propagate into the scheduler's own
		// error-escalation counter (spec.md §4.2 "tick semantics").
		c.log.Warn("scheduled check failed", map[string]interface{}{"website_id": websiteID, "error": dispatchErr})
	}
	metrics.SchedulerTicks.WithLabelValues("due").Inc()
	c.resetTickErrors()
}

// recordTickError increments the consecutive-error counter and, once it
// reaches the threshold, forces a full reschedule (spec.md §4.2 "error
// recovery").
func (c *Core) recordTickError(err error) {
	c.mu.Lock()
	now := time.Now().UTC()
	c.state.ConsecutiveErrorCount++
	c.state.LastErrorAt = &now
	count := c.state.ConsecutiveErrorCount
	metrics.SchedulerConsecutiveErrors.Set(float64(count))
	metrics.SchedulerTicks.WithLabelValues("error").Inc()
	_ = saveState(c.statePath, c.state)
	c.mu.Unlock()

	c.log.Error("scheduler tick error", map[string]interface{}{"error": err, "consecutive_errors": count})

	if count >= maxConsecutiveErrors {
		c.mu.Lock()
		c.state.ConsecutiveErrorCount = 0
		rescheduleErr := c.forceRescheduleLocked()
		c.mu.Unlock()
		if rescheduleErr != nil {
			c.log.Error("scheduler: force_reschedule after error threshold failed", map[string]interface{}{"error": rescheduleErr})
		}
	}
}

func (c *Core) resetTickErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ConsecutiveErrorCount != 0 {
		c.state.ConsecutiveErrorCount = 0
		metrics.SchedulerConsecutiveErrors.Set(0)
		_ = saveState(c.statePath, c.state)
	}
}
