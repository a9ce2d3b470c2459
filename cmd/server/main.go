// Package main is the entry point of the Memory Palace MCP server.
//
// The server exposes memory palace and progression tools over MCP, either on
// stdin/stdout (MCP_TRANSPORT=stdio) or as a streamable HTTP endpoint with
// health probes (MCP_TRANSPORT=http). Logs always go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/memory-palace/config"
	"github.com/alem-hub/memory-palace/internal/application/command"
	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/application/query"
	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/infrastructure/catalog"
	"github.com/alem-hub/memory-palace/internal/infrastructure/identity"
	"github.com/alem-hub/memory-palace/internal/infrastructure/messaging"
	httpserver "github.com/alem-hub/memory-palace/internal/interface/http"
	"github.com/alem-hub/memory-palace/internal/interface/http/handlers"
	"github.com/alem-hub/memory-palace/internal/interface/mcp"
	"github.com/alem-hub/memory-palace/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stderr,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    cfg.Observability.LogFormat,
		AddCaller: true,
	})
	defer func() { _ = log.Sync() }()

	log.Info("starting memory palace server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("transport", cfg.MCP.Transport),
		logger.String("timezone", cfg.App.Location.String()),
		logger.Any("features", cfg.Features.Enabled()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. CATALOG
	// ─────────────────────────────────────────────────────────────────────────
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE, CACHE, LOCKS, EVENTS
	// ─────────────────────────────────────────────────────────────────────────
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.close()

	coord, err := setupCoordination(ctx, cfg, store.profiles, log)
	if err != nil {
		return err
	}
	defer coord.close()

	if err := messaging.LogEvents(coord.bus, log); err != nil {
		return fmt.Errorf("failed to subscribe event log: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. DOMAIN & APPLICATION
	// ─────────────────────────────────────────────────────────────────────────
	seed := cfg.Engine.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	clock := engine.SystemClock

	palaceSvc := palace.NewService(store.palace, identity.NewLocationIDs(), cat.ReviewIntervals())
	eng := engine.New(engine.Deps{
		Profiles:  coord.profiles,
		Palace:    palaceSvc,
		Catalog:   cat,
		Locker:    coord.locker,
		Publisher: coord.bus,
		Rand:      rand.New(rand.NewSource(seed)),
		IDs:       identity.ChallengeIDs{},
		Clock:     clock,
		Logger:    log,
	}, engineConfig(cfg))

	info := cat.ServerInfo()
	if cfg.App.Version != "" {
		info.Version = cfg.App.Version
	}

	commands := mcp.Commands{
		CreateRoom:        command.NewCreateRoomHandler(palaceSvc, eng, clock, log),
		StoreMemory:       command.NewStoreMemoryHandler(palaceSvc, eng, clock, log),
		TakeJourney:       command.NewTakeJourneyHandler(palaceSvc, eng, clock, log),
		SearchMemories:    command.NewSearchMemoriesHandler(palaceSvc, eng, clock, log),
		SetPersonality:    command.NewSetPersonalityHandler(eng),
		StartLearningPath: command.NewStartLearningPathHandler(eng),
		CompleteTask:      command.NewCompleteTaskHandler(eng),
	}
	queries := mcp.Queries{
		PalaceOverview: query.NewGetPalaceOverviewHandler(palaceSvc, cat.Defaults().Suggestions),
		ReviewSchedule: query.NewGetReviewScheduleHandler(palaceSvc, clock.Now),
		ServerInfo: query.NewGetServerInfoHandler(query.ServerMeta{
			Name:         info.Name,
			Version:      info.Version,
			Description:  info.Description,
			Capabilities: info.Capabilities,
		}, cfg.Storage.Driver, cat),
		Progress:         query.NewGetProgressHandler(eng, cat),
		LearningPaths:    query.NewListLearningPathsHandler(eng, cat),
		ListAchievements: query.NewListAchievementsHandler(eng, cat, eng.AchievementRules()),
		Challenges:       query.NewGetChallengesHandler(eng, cat),
	}

	tools := mcp.NewServer(mcp.Config{
		Name:        info.Name,
		Version:     info.Version,
		DefaultUser: cfg.Engine.DefaultUser,
	}, commands, queries, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. TRANSPORT
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	switch cfg.MCP.Transport {
	case config.TransportHTTP:
		checker := handlers.NewCompositeHealthChecker(info.Version)
		if store.pinger != nil {
			checker.AddCheck("storage", handlers.NewDatabaseCheck(store.pinger))
		}
		if coord.cache != nil {
			checker.AddCheck("cache", handlers.NewCacheCheck(coord.cache))
		}

		httpCfg := httpserver.DefaultConfig()
		httpCfg.Addr = cfg.MCP.HTTPAddr
		srv := httpserver.NewServer(httpCfg, httpserver.Dependencies{
			MCP:           tools.HTTPHandler(),
			HealthChecker: checker,
			Info: httpserver.Info{
				Name:        info.Name,
				Version:     info.Version,
				Description: info.Description,
				Storage:     cfg.Storage.Driver,
			},
			Logger: log,
		})

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

	default:
		g.Go(func() error {
			log.Info("serving MCP over stdio")
			return tools.RunStdio(gctx)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("memory palace server stopped")
	return nil
}
