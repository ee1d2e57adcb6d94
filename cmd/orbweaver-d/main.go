package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/orbweaver/pkg/accel"
	"github.com/rmax-ai/orbweaver/pkg/api"
	"github.com/rmax-ai/orbweaver/pkg/blob"
	"github.com/rmax-ai/orbweaver/pkg/export"
	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/hub"
	"github.com/rmax-ai/orbweaver/pkg/metadata"
	"github.com/rmax-ai/orbweaver/pkg/physics"
	"github.com/rmax-ai/orbweaver/pkg/retry"
	"github.com/rmax-ai/orbweaver/pkg/service"
	"github.com/rmax-ai/orbweaver/pkg/settings"
)

const version = "0.3.0"

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("System started", "component", "orbweaver-d", "version", version, "addr", cfg.Addr)

	cfgSettings, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		slog.Error("Failed to load settings", "path", cfg.SettingsPath, "error", err)
		os.Exit(1)
	}

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open metadata store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first build needs the metadata file to exist; ingestion may
	// still be writing it on a fresh deployment.
	if cfg.StoreKind == "json" {
		if err := metadata.WaitForFile(ctx, cfg.MetadataPath, metadata.DefaultWaitTimeout); err != nil {
			slog.Warn("Metadata file not present yet, starting with an empty graph", "path", cfg.MetadataPath, "error", err)
		}
	}

	engine := physics.NewEngine(nil, retry.DefaultPolicy())

	localHub := hub.NewHub()
	broadcaster := hub.Broadcaster(localHub)

	var relay *hub.Relay
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		relay = hub.NewRelay(rdb, cfg.RedisChannel, localHub)
		broadcaster = hub.MultiBroadcaster{localHub, relay}
	}

	var archiver *service.Archiver
	if cfg.ArchiveDir != "" {
		archiver, err = service.NewArchiver(blob.NewLocalStore(cfg.ArchiveDir), export.FormatJSON, nil)
		if err != nil {
			slog.Error("Failed to configure snapshot archive", "error", err)
			os.Exit(1)
		}
	}

	svc := service.New(service.Config{
		Engine:            engine,
		Builder:           graph.NewBuilder(nil),
		Store:             store,
		Broadcaster:       broadcaster,
		CacheTTL:          cfgSettings.Engine.CacheTTL(),
		UpdateInterval:    cfgSettings.Engine.UpdateInterval(),
		BroadcastInterval: cfgSettings.Engine.BroadcastInterval(),
		Archiver:          archiver,
	})

	if _, _, err := svc.Rebuild(ctx); err != nil {
		// An empty or missing metadata set is not fatal: the daemon
		// serves an empty graph until a rebuild succeeds.
		slog.Warn("Initial graph build failed", "error", err)
	}

	if cfgSettings.Engine.AcceleratorEnabled {
		attachAccelerator(svc, engine, cfgSettings)
	}

	apiServer := api.NewServer(svc, localHub, version, cfg.Addr)

	var instance *service.Instance
	if cfgSettings.Engine.PhysicsEnabled {
		instance = svc.NewInstance(cfgSettings.Physics, cfgSettings.Engine.TickInterval())
		instance.Start(ctx)
		apiServer.SetInstance(instance)
	} else {
		slog.Info("Physics disabled, serving static layout")
	}

	go svc.RunBroadcastLoop(ctx)
	go localHub.Run(ctx)

	if relay != nil {
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Frame relay stopped", "error", err)
			}
		}()
	}

	if cfg.Watch {
		watchPath := cfg.MetadataPath
		if cfg.StoreKind == "sqlite" {
			watchPath = cfg.DBPath
		}
		watcher := metadata.NewWatcher(watchPath, 0, func() {
			if _, _, err := svc.Rebuild(context.Background()); err != nil {
				slog.Warn("Auto rebuild failed", "error", err)
			}
		})
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Metadata watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := apiServer.Start(); err != nil {
			slog.Error("API server failed", "error", err)
			cancel()
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigs
		if sig == syscall.SIGHUP {
			// Reload settings and supersede the running instance:
			// params are immutable per instance, so new physics
			// means a new loop.
			fresh, err := settings.Load(cfg.SettingsPath)
			if err != nil {
				slog.Error("Settings reload failed, keeping current instance", "error", err)
				continue
			}
			slog.Info("Settings reloaded, restarting simulation instance")
			next := svc.NewInstance(fresh.Physics, fresh.Engine.TickInterval())
			next.Start(ctx)
			apiServer.SetInstance(next)
			instance = next
			continue
		}

		slog.Info("Shutdown initiated", "signal", sig.String())
		break
	}

	if instance != nil {
		if err := instance.Shutdown(); err != nil {
			slog.Warn("Simulation shutdown incomplete", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Error("API server shutdown failed", "error", err)
	}
	cancel()

	slog.Info("Shutdown complete")
}

func openStore(cfg Config) (metadata.Store, error) {
	if cfg.StoreKind == "sqlite" {
		return metadata.NewSQLiteStore(cfg.DBPath)
	}
	return metadata.NewJSONStore(cfg.MetadataPath), nil
}

// attachAccelerator builds the local device from the current graph and
// schedules its startup self test. Device construction failure leaves the
// engine CPU-only; the simulation degrades rather than halts.
func attachAccelerator(svc *service.Service, engine *physics.Engine, s settings.Settings) {
	g := svc.Graph()
	device, err := accel.NewLocalDevice(g, s.Physics, s.Engine.AcceleratorWorkers)
	if err != nil {
		slog.Warn("Accelerator construction failed, running CPU-only", "error", err)
		return
	}
	engine.SetAccelerator(device)
	engine.ScheduleSelfTest(physics.DefaultSelfTestDelay, func() (physics.Accelerator, error) {
		return accel.NewLocalDevice(svc.Graph(), s.Physics, s.Engine.AcceleratorWorkers)
	})
	slog.Info("Accelerator attached", "workers", s.Engine.AcceleratorWorkers)
}
