// Command server is the control-plane process (spec.md §1): it wires the
// Catalog Store, History Store, Scheduler Core, Queue Processor, Check
// Dispatcher, and Admin API together and runs until an interrupt or
// terminate signal arrives.
//
// Grounded on the teacher's cmd/server/main.go: explicit construction of
// every long-lived component followed by signal.Notify-driven graceful
// shutdown (also seen in examples/pipeline_integration_example.go).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mbrown1837/webmonitor/internal/adminapi"
	"github.com/mbrown1837/webmonitor/internal/catalogstore"
	"github.com/mbrown1837/webmonitor/internal/config"
	"github.com/mbrown1837/webmonitor/internal/dbstore"
	"github.com/mbrown1837/webmonitor/internal/dispatcher"
	"github.com/mbrown1837/webmonitor/internal/historystore"
	"github.com/mbrown1837/webmonitor/internal/lockfile"
	"github.com/mbrown1837/webmonitor/internal/logging"
	"github.com/mbrown1837/webmonitor/internal/models"
	"github.com/mbrown1837/webmonitor/internal/notifications"
	"github.com/mbrown1837/webmonitor/internal/primitives"
	"github.com/mbrown1837/webmonitor/internal/queueprocessor"
	"github.com/mbrown1837/webmonitor/internal/scheduler"
	"github.com/mbrown1837/webmonitor/internal/snapshot"
)

func main() {
	envFile := flag.String("env-file", "", "optional .env-style config file")
	flag.Parse()

	log := logging.NewDefault("webmonitor")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("config load failed", map[string]interface{}{"error": err})
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("fatal", map[string]interface{}{"error": err})
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	db, err := dbstore.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var catalogOpts []catalogstore.Option
	if cfg.CatalogRedisAddr != "" {
		catalogOpts = append(catalogOpts, catalogstore.WithRedisCache(cfg.CatalogRedisAddr))
	}
	catalog := catalogstore.New(db, log, catalogOpts...)
	history := historystore.New(db)
	snapshots := snapshot.New(cfg.SnapshotDirectory, log)

	fetch := primitives.NewFetchClient(2.0, 4)
	crawler := primitives.NewHTTPCrawler(fetch, 4)
	capturer := primitives.NewRasterCapturer(fetch)
	blurAnalyzer := primitives.NewVarianceAnalyzer(fetch)
	perfAnalyzer := primitives.NewSyntheticAnalyzer(fetch)

	transport, err := buildTransport(cfg)
	if err != nil {
		return fmt.Errorf("build email transport: %w", err)
	}
	reports := notifications.New(transport, cfg.DefaultRecipients, cfg.DashboardURL, log)

	check := dispatcher.New(catalog, history, snapshots, crawler, capturer, blurAnalyzer, perfAnalyzer, reports, log)

	// spec.md §5: "no two Dispatcher invocations overlap" — a single
	// process-wide mutex serializes the Scheduler Core's ticks against the
	// Queue Processor's manual drain.
	var dispatchMu sync.Mutex

	core := scheduler.New(
		catalog,
		func(ctx context.Context, w *models.Website, c models.CheckConfig, manual bool) error {
			_, err := check.Dispatch(ctx, w, c, manual)
			return err
		},
		&dispatchMu,
		cfg.SchedulerStatePath(),
		cfg.SchedulerLockPath(),
		log,
	)
	catalog.OnWebsiteDeleted(core.RemoveWebsite)
	catalog.OnWebsiteDeleted(func(id string) {
		if err := history.DeleteForWebsite(id); err != nil {
			log.Error("delete history for website failed", map[string]interface{}{"website_id": id, "error": err})
		}
	})
	catalog.OnWebsiteDeleted(func(id string) {
		if err := snapshots.DeleteWebsite(id); err != nil {
			log.Error("delete snapshot tree for website failed", map[string]interface{}{"website_id": id, "error": err})
		}
	})

	broadcast := queueprocessor.NewBroadcaster()
	processor := queueprocessor.New(
		catalog,
		func(ctx context.Context, w *models.Website, c models.CheckConfig, manual bool) (interface{}, error) {
			return check.Dispatch(ctx, w, c, manual)
		},
		&dispatchMu,
		broadcast,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.SchedulerEnabled {
		if err := core.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer core.Stop()
	} else {
		log.Info("scheduler_enabled is false; not starting the Scheduler Core", nil)
	}

	if err := processor.Start(); err != nil {
		return fmt.Errorf("start queue processor: %w", err)
	}
	defer processor.Stop()

	stopRetention := make(chan struct{})
	defer close(stopRetention)
	processor.StartRetentionSweep(
		time.Duration(cfg.QueueRetentionDays)*24*time.Hour,
		1*time.Hour,
		stopRetention,
	)
	go runHistoryRetentionSweep(ctx, history, cfg.HistoryRetentionDays, log)

	admin := adminapi.New(core, broadcast, cfg.AdminJWTSecret, log)
	go func() {
		log.Info("admin api listening", map[string]interface{}{"addr": cfg.AdminListenAddr})
		if err := admin.ListenAndServe(ctx, cfg.AdminListenAddr); err != nil {
			log.Error("admin api stopped", map[string]interface{}{"error": err})
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received", nil)
	cancel()
	return nil
}

// buildTransport selects the email transport by configuration
// (SPEC_FULL.md §5: "notification_provider=sendgrid").
func buildTransport(cfg *config.Config) (primitives.EmailTransport, error) {
	if cfg.NotificationProvider == "sendgrid" {
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("notification_provider=sendgrid requires SENDGRID_API_KEY")
		}
		return notifications.NewSendGridTransport(cfg.SendGridAPIKey, cfg.NotificationSender), nil
	}
	return notifications.NewSMTPTransport(notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.NotificationSender,
		UseTLS:   cfg.SMTPUseTLS,
		UseSSL:   cfg.SMTPUseSSL,
	}), nil
}

func runHistoryRetentionSweep(ctx context.Context, history *historystore.Store, retentionDays int, log *logging.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := history.PruneOlderThan(time.Duration(retentionDays) * 24 * time.Hour)
			if err != nil {
				log.Error("history retention sweep failed", map[string]interface{}{"error": err})
				continue
			}
			if n > 0 {
				log.Info("pruned old history rows", map[string]interface{}{"count": n})
			}
		}
	}
}
