// Package queueprocessor is the Queue Processor (spec.md §4.3): a
// long-running worker draining the manual-check queue one item at a time
// across all websites, with no overlap against the Scheduler Core's own
// Dispatcher invocations.
//
// Grounded on the teacher's lpmanager/manager.go (single-owner,
// config-driven loop with a mutex-protected active slot) and
// notifications/retry.go (translating a raw transport error into a
// curated user-facing phrase, generalized here into errors.go).
package queueprocessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mbrown1837/webmonitor/internal/catalogstore"
	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/metrics"
	"github.com/mbrown1837/webmonitor/internal/models"
)

// idlePoll is how long the loop sleeps when the queue is empty or the
// processing slot is taken (spec.md §5 "suspension points ... ≤ 2s queue").
const idlePoll = 2 * time.Second

// betweenItems is the brief pause after releasing a slot before the next
// dequeue attempt (spec.md §4.3 step 8 "sleep briefly before continuing").
const betweenItems = 250 * time.Millisecond

// DispatchFunc invokes the Check Dispatcher. ResultPayload must be a
// JSON-safe value or nil.
type DispatchFunc func(ctx context.Context, website *models.Website, cfg models.CheckConfig, isManual bool) (resultPayload interface{}, err error)

// Processor is the Queue Processor.
type Processor struct {
	store      *catalogstore.Store
	dispatch   DispatchFunc
	dispatchMu *sync.Mutex
	broadcast  *Broadcaster
	log        *logging.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New constructs a Processor. dispatchMu must be the same mutex instance
// the Scheduler Core serializes its own Dispatcher calls against
// (spec.md §5: "no two Dispatcher invocations overlap").
func New(store *catalogstore.Store, dispatch DispatchFunc, dispatchMu *sync.Mutex, broadcast *Broadcaster, log *logging.Logger) *Processor {
	return &Processor{
		store:      store,
		dispatch:   dispatch,
		dispatchMu: dispatchMu,
		broadcast:  broadcast,
		log:        log,
	}
}

// Start clears any orphaned processing rows from a prior crash (spec.md
// §4.3 "clear_active() ... intended only for operator recovery") and
// begins the drain loop in a background goroutine.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("queueprocessor: already running")
	}

	if n, err := p.store.ClearActive(); err != nil {
		return fmt.Errorf("queueprocessor: clear orphaned active rows: %w", err)
	} else if n > 0 {
		p.log.Warn("cleared orphaned processing rows on startup", map[string]interface{}{"count": n})
	}

	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.running = true
	go p.loop()
	return nil
}

// Stop signals the loop to exit and waits (bounded) for it to drain its
// current item.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		p.log.Warn("queue processor did not stop within 30s", nil)
	}
}

func (p *Processor) loop() {
	defer close(p.doneCh)
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		item, err := p.store.DequeueNext()
		if err != nil {
			p.log.Error("dequeue failed", map[string]interface{}{"error": err})
			if p.sleepOrStop(idlePoll) {
				return
			}
			continue
		}
		if item == nil {
			if p.sleepOrStop(idlePoll) {
				return
			}
			continue
		}

		p.processItem(item)

		if p.sleepOrStop(betweenItems) {
			return
		}
	}
}

func (p *Processor) sleepOrStop(d time.Duration) bool {
	select {
	case <-p.stopCh:
		return true
	case <-time.After(d):
		return false
	}
}

func (p *Processor) processItem(item *models.QueueItem) {
	p.broadcast.Publish(models.StatusEvent{
		QueueID: item.ID, WebsiteID: item.WebsiteID, CheckType: item.CheckType,
		Status: models.QueueProcessing, At: time.Now().UTC(),
	})

	website, err := p.store.Get(item.WebsiteID)
	if errors.Is(err, catalogstore.ErrNotFound) {
		p.fail(item, "This website no longer exists.")
		return
	}
	if err != nil {
		p.fail(item, translateError(err))
		return
	}

	cfg, err := p.store.GetManualCheckConfig(item.WebsiteID, item.CheckType)
	if err != nil {
		p.fail(item, translateError(err))
		return
	}

	p.dispatchMu.Lock()
	start := time.Now()
	payload, dispatchErr := p.dispatch(context.Background(), website, cfg, true)
	metrics.ObservePhase("dispatcher_invocation", start)
	p.dispatchMu.Unlock()

	if dispatchErr != nil {
		p.fail(item, translateError(dispatchErr))
		return
	}

	raw, err := safeMarshal(payload)
	if err != nil {
		p.log.Warn("result payload not fully JSON-safe, reduced to string", map[string]interface{}{"queue_id": item.ID, "error": err})
	}

	if err := p.store.UpdateStatus(item.ID, models.QueueCompleted, "", raw); err != nil {
		p.log.Error("failed to mark queue item completed", map[string]interface{}{"queue_id": item.ID, "error": err})
	}
	p.broadcast.Publish(models.StatusEvent{
		QueueID: item.ID, WebsiteID: item.WebsiteID, CheckType: item.CheckType,
		Status: models.QueueCompleted, At: time.Now().UTC(),
	})
}

func (p *Processor) fail(item *models.QueueItem, message string) {
	if err := p.store.UpdateStatus(item.ID, models.QueueFailed, message, ""); err != nil {
		p.log.Error("failed to mark queue item failed", map[string]interface{}{"queue_id": item.ID, "error": err})
	}
	p.broadcast.Publish(models.StatusEvent{
		QueueID: item.ID, WebsiteID: item.WebsiteID, CheckType: item.CheckType,
		Status: models.QueueFailed, At: time.Now().UTC(), Error: message,
	})
}

// safeMarshal reduces non-JSON-safe values to their string form rather
// than failing the whole serialization (spec.md §4.3 step 7).
func safeMarshal(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v), err
	}
	return string(raw), nil
}
