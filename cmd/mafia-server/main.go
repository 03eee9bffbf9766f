// Package main is the entry point for the Cosa Nostra game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cosanostra-game/server/internal/api"
	"github.com/cosanostra-game/server/internal/domain/catalog"
	"github.com/cosanostra-game/server/internal/engine"
	"github.com/cosanostra-game/server/internal/events"
	"github.com/cosanostra-game/server/internal/infra/cache"
	"github.com/cosanostra-game/server/internal/infra/storage"
	"github.com/cosanostra-game/server/internal/network"
	"github.com/cosanostra-game/server/internal/platform/config"
	"github.com/cosanostra-game/server/internal/platform/logger"
	"github.com/cosanostra-game/server/internal/platform/metrics"
	"github.com/cosanostra-game/server/internal/platform/optimization"
)

// meteredPersister times every ledger write.
type meteredPersister struct {
	next events.EventPersister
}

func (m meteredPersister) Append(event events.GameEvent) error {
	start := time.Now()
	err := m.next.Append(event)
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}

func loadCatalog(path string, appLogger *logger.Logger) (*catalog.Catalog, error) {
	if path == "" {
		appLogger.Info("Using embedded balance catalog")
		return catalog.Default()
	}
	appLogger.Info("Loading balance catalog from " + path)
	return catalog.Load(path)
}

// restoreWorld loads the last saved world, or seeds a fresh one.
func restoreWorld(ctx context.Context, repo *storage.SQLRepository, eng *engine.Engine, eventLog *events.EventLog, appLogger *logger.Logger) error {
	empty, err := repo.Empty(ctx)
	if err != nil {
		return err
	}
	if empty {
		appLogger.Info("Database empty. Seeding world from catalog...")
	} else {
		ws, err := repo.LoadWorld(ctx)
		if err != nil {
			return err
		}
		eng.Restore(ws)
		appLogger.Infof("Restored %d players, %d families, %d territories (tick %d)",
			len(ws.Players), len(ws.Families), len(ws.Territories), ws.Tick)
	}
	// Territories or NPC families added to the catalog since the last save.
	eng.SeedWorld()

	lastSeq, err := repo.LastEventSeq(ctx)
	if err != nil {
		return err
	}
	eventLog.Restore(lastSeq)
	return nil
}

func save(ctx context.Context, repo *storage.SQLRepository, eng *engine.Engine) error {
	start := time.Now()
	saveCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	err := repo.SaveWorld(saveCtx, eng.Snapshot())
	metrics.Get().RecordSave(time.Since(start), err)
	return err
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	log.Println("[MAFIA-SERVER] Initializing 'Cosa Nostra' Authoritative Server...")
	appLogger := logger.NewLogger()

	cfg, err := config.Load(*envFile)
	if err != nil {
		appLogger.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}
	appLogger.Infof("Profile %s, tick every %s, save every %s", cfg.Profile, cfg.TickRate, cfg.SaveEvery)

	cat, err := loadCatalog(cfg.TuningPath, appLogger)
	if err != nil {
		appLogger.Error("Failed to load catalog: " + err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger.Infof("Opening %s database...", cfg.DBDialect)
	repo, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		appLogger.Error("Failed to open database: " + err.Error())
		os.Exit(1)
	}
	defer repo.Close()

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(cfg.EventRetention)

	appLogger.Info("Bootstrapping Engine Subsystems...")
	gameEngine := engine.NewEngine(cat, eventLog, appLogger, engine.Options{TickRate: cfg.TickRate})
	if err := restoreWorld(ctx, repo, gameEngine, eventLog, appLogger); err != nil {
		appLogger.Error("Failed to restore world: " + err.Error())
		os.Exit(1)
	}
	eventLog.AttachPersister(meteredPersister{next: storage.NewEventPersister(repo)}, cfg.Tuning.EventPersistBuffer,
		func(e events.GameEvent, err error) {
			appLogger.Errorf("Failed to persist event %d (%s): %v", e.Seq, e.Type, err)
		})

	gameEngine.Start(ctx)

	// Automated State Backup Routine
	go func() {
		backupTicker := time.NewTicker(cfg.SaveEvery)
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				if err := save(ctx, repo, gameEngine); err != nil {
					appLogger.Error("Periodic save failed: " + err.Error())
				}
				rec := optimization.Analyze(metrics.Get().Snapshot())
				for _, note := range rec.Notes {
					appLogger.Warn("Tuning: " + note)
				}
			}
		}
	}()

	profiles := cache.NewProfileCache(cache.Options{Size: cfg.Tuning.ProfileCacheSize, Clock: gameEngine.Now})
	dispatcher := api.NewDispatcher(gameEngine, profiles, appLogger)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(dispatcher, appLogger, network.Options{
		ActionRate:      cfg.ActionRate,
		ActionBurst:     cfg.ActionBurst,
		SendBuffer:      cfg.Tuning.ClientSendBuffer,
		BroadcastBuffer: cfg.Tuning.BroadcastChannelBuffer,
		MaxClients:      cfg.Tuning.MaxClients,
	})
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	server := api.NewServer(gameEngine, dispatcher, profiles, appLogger, api.Options{
		RequestsPerSecond: cfg.Tuning.HTTPRequestsPerSecond,
		Burst:             cfg.Tuning.HTTPBurst,
		EventRepo:         repo,
		WebSocket:         http.HandlerFunc(hub.ServeWS),
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[MAFIA-SERVER] HTTP API & WS Server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[MAFIA-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[MAFIA-SERVER] Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown: " + err.Error())
	}
	cancel()
	if err := save(shutdownCtx, repo, gameEngine); err != nil {
		appLogger.Error("Final save failed: " + err.Error())
	} else {
		appLogger.Info("World saved.")
	}
	eventLog.Close()
}
