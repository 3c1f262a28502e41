// Command netsentry is a network monitoring daemon: it sweeps a subnet on
// an interval, tracks per-device state and latency baselines, and alerts
// on meaningful changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HerbHall/netsentry/internal/alert"
	"github.com/HerbHall/netsentry/internal/baseline"
	"github.com/HerbHall/netsentry/internal/config"
	"github.com/HerbHall/netsentry/internal/detect"
	"github.com/HerbHall/netsentry/internal/event"
	"github.com/HerbHall/netsentry/internal/metrics"
	"github.com/HerbHall/netsentry/internal/pipeline"
	"github.com/HerbHall/netsentry/internal/scan"
	"github.com/HerbHall/netsentry/internal/store"
	"github.com/HerbHall/netsentry/internal/version"
	"github.com/HerbHall/netsentry/pkg/models"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./netsentry.yaml, /etc/netsentry)")
	subnet := flag.String("subnet", "", "target range in CIDR form (overrides config)")
	once := flag.Bool("once", false, "run a single cycle and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	if err := run(*configPath, *subnet, *once); err != nil {
		fmt.Fprintf(os.Stderr, "netsentry: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, subnetFlag string, once bool) error {
	v, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is unactionable

	logger.Info("netsentry starting", zap.String("version", version.Version))

	// Configuration sections, defaults first.
	scanCfg := scan.DefaultConfig()
	if err := v.UnmarshalKey("scan", &scanCfg); err != nil {
		return fmt.Errorf("scan config: %w", err)
	}
	if subnetFlag != "" {
		scanCfg.Subnet = subnetFlag
	}
	if scanCfg.Subnet == "" {
		return errors.New("no target range: set scan.subnet or pass -subnet")
	}

	detectCfg := detect.DefaultConfig()
	if err := v.UnmarshalKey("detect", &detectCfg); err != nil {
		return fmt.Errorf("detect config: %w", err)
	}
	baselineCfg := baseline.DefaultConfig()
	if err := v.UnmarshalKey("baseline", &baselineCfg); err != nil {
		return fmt.Errorf("baseline config: %w", err)
	}
	alertCfg := alert.DefaultConfig()
	if err := v.UnmarshalKey("alert", &alertCfg); err != nil {
		return fmt.Errorf("alert config: %w", err)
	}

	// Persistence.
	db, err := store.New(v.GetString("database.path"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.CheckVersion(ctx, version.Version); err != nil {
		return err
	}
	if err := db.Migrate(ctx, "scan", scan.Migrations()); err != nil {
		return fmt.Errorf("migrate scan: %w", err)
	}
	if err := db.Migrate(ctx, "detect", detect.Migrations()); err != nil {
		return fmt.Errorf("migrate detect: %w", err)
	}
	if err := db.Migrate(ctx, "baseline", baseline.Migrations()); err != nil {
		return fmt.Errorf("migrate baseline: %w", err)
	}
	if err := db.Migrate(ctx, "alert", alert.Migrations()); err != nil {
		return fmt.Errorf("migrate alert: %w", err)
	}

	bus := event.NewBus(logger.Named("bus"))
	m := metrics.New()

	// Scanner.
	var arp scan.ARPTableReader
	if scanCfg.ARPEnabled {
		arp = scan.NewARPReader(logger.Named("arp"))
	}
	scanner := scan.NewScanner(scanCfg,
		scan.NewICMPProber(scanCfg, logger.Named("probe")),
		arp, scan.NewOUITable(), bus, logger.Named("scan"))

	// Detection and baselines.
	tracker := baseline.NewTracker(baselineCfg, logger.Named("baseline"))
	detector := detect.NewDetector(detectCfg, tracker, logger.Named("detect"))

	// Alerting.
	engine := alert.NewEngine(alertCfg, logger.Named("alert"))
	engine.Register(alert.NewLogNotifier(logger.Named("alert")), models.SeverityInfo)
	engine.Register(alert.NewDashboardNotifier(bus), models.SeverityInfo)
	if alertCfg.Webhook.Enabled {
		if alertCfg.Webhook.URL == "" {
			return errors.New("alert.webhook.enabled is set but alert.webhook.url is empty")
		}
		engine.Register(
			alert.NewWebhookNotifier(alertCfg.Webhook, alertCfg.ChannelTimeout),
			alertCfg.Webhook.MinSeverity,
		)
	}

	// Restore state from previous runs.
	stateStore := detect.NewStateStore(db)
	baselineStore := baseline.NewBaselineStore(db)
	alertStore := alert.NewAlertStore(db)

	runner := pipeline.NewRunner(scanCfg.Subnet, pipeline.Deps{
		Scanner:   scanner,
		Detector:  detector,
		Tracker:   tracker,
		Engine:    engine,
		Snapshots: scan.NewSnapshotStore(db),
		States:    stateStore,
		Baselines: baselineStore,
		Alerts:    alertStore,
		Bus:       bus,
		Metrics:   m,
		Logger:    logger.Named("pipeline"),
	})

	if states, err := stateStore.LoadStates(ctx); err != nil {
		logger.Warn("failed to restore device states", zap.Error(err))
	} else if len(states) > 0 {
		runner.LoadStates(states)
		logger.Info("restored device states", zap.Int("devices", len(states)))
	}
	if baselines, err := baselineStore.LoadAll(ctx); err != nil {
		logger.Warn("failed to restore baselines", zap.Error(err))
	} else if len(baselines) > 0 {
		tracker.Load(baselines)
		logger.Info("restored baselines", zap.Int("baselines", len(baselines)))
	}
	if tracking, err := alertStore.LoadTracking(ctx); err != nil {
		logger.Warn("failed to restore alert tracking", zap.Error(err))
	} else if len(tracking) > 0 {
		engine.LoadTracking(tracking)
		logger.Info("restored alert tracking", zap.Int("entries", len(tracking)))
	}

	// Metrics endpoint is optional.
	if addr := v.GetString("metrics.listen_addr"); addr != "" {
		srv := m.Server(addr)
		go func() {
			logger.Info("metrics listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()
	}

	cycle := func(ctx context.Context) {
		if _, err := runner.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("cycle failed", zap.Error(err))
		}
	}

	if once {
		res, err := runner.RunCycle(ctx)
		if err != nil {
			return err
		}
		logger.Info("single cycle done",
			zap.String("scan_id", res.ScanID),
			zap.Int("online", res.Summary.Online),
			zap.Int("anomalies", len(res.Anomalies)),
		)
		return nil
	}

	scheduler, err := scan.NewScheduler(scanCfg, logger.Named("scheduler"))
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	logger.Info("monitoring started",
		zap.String("subnet", scanCfg.Subnet),
		zap.Duration("interval", scanCfg.Interval),
	)
	scheduler.Run(ctx, cycle)

	logger.Info("shutting down")
	return nil
}
