package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/memory-palace/config"
	"github.com/alem-hub/memory-palace/internal/application/engine"
	"github.com/alem-hub/memory-palace/internal/domain/palace"
	"github.com/alem-hub/memory-palace/internal/domain/progression"
	"github.com/alem-hub/memory-palace/internal/domain/shared"
	"github.com/alem-hub/memory-palace/internal/infrastructure/messaging"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/sqlite"
	"github.com/alem-hub/memory-palace/internal/interface/http/handlers"
	"github.com/alem-hub/memory-palace/pkg/logger"
	"github.com/alem-hub/memory-palace/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

// storage is the persistence backend selected by STORAGE_DRIVER.
type storage struct {
	palace   palace.Repository
	profiles progression.ProfileStore

	// pinger backs the storage health check; nil for the memory driver.
	pinger handlers.Pinger
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return &storage{
			palace:   memory.NewPalaceRepository(),
			profiles: memory.NewProfileStore(),
			close:    func() {},
		}, nil

	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite storage opened", logger.String("path", cfg.Storage.SQLitePath))
		return &storage{
			palace:   store,
			profiles: store,
			pinger:   store,
			close: func() {
				if err := store.Close(); err != nil {
					log.Warn("failed to close sqlite store", logger.Err(err))
				}
			},
		}, nil

	case config.StoragePostgres:
		conn, err := connectPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("postgres storage ready", logger.Int("migrations_applied", applied))
		return &storage{
			palace:   postgres.NewPalaceRepository(conn),
			profiles: postgres.NewProfileRepository(conn),
			pinger:   conn,
			close:    conn.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*postgres.Connection, error) {
	pool := postgres.DefaultPoolConfig()
	pool.MaxConns = cfg.MaxConns
	pool.MinConns = cfg.MinConns
	pool.MaxConnLifetime = cfg.ConnMaxLifetime
	pool.MaxConnIdleTime = cfg.ConnMaxIdleTime

	var conn *postgres.Connection
	err := retry.DatabaseRetrier(cfg.ConnectAttempts, logRetry(log, "postgres")).Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, cfg.URL, pool)
		if err != nil {
			if postgres.IsPermanent(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COORDINATION (locks, cache, events)
// ══════════════════════════════════════════════════════════════════════════════

// coordination holds the per-user locker, the event bus and, when Redis is
// enabled, the cache connection.
type coordination struct {
	locker   engine.Locker
	bus      eventBus
	cache    *redis.Cache
	profiles progression.ProfileStore
	close    func()
}

type eventBus interface {
	shared.EventPublisher
	shared.EventSubscriber
	Close() error
}

// setupCoordination wraps profiles with the Redis cache and picks the
// distributed or in-process locker and bus.
func setupCoordination(ctx context.Context, cfg *config.Config, profiles progression.ProfileStore, log *logger.Logger) (*coordination, error) {
	if !cfg.Redis.Enabled {
		bus := messaging.NewInMemoryEventBus(busConfig(log))
		return &coordination{
			locker:   memory.NewKeyedLocker(),
			bus:      bus,
			profiles: profiles,
			close:    func() { _ = bus.Close() },
		}, nil
	}

	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

	var cache *redis.Cache
	err := retry.DatabaseRetrier(cfg.Database.ConnectAttempts, logRetry(log, "redis")).Do(ctx, func(context.Context) error {
		c, err := redis.NewCache(redisCfg)
		if err != nil {
			return err
		}
		cache = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr(), err)
	}

	bus, err := messaging.NewRedisEventBus(ctx, messaging.RedisEventBusConfig{
		Client:         cache.Client(),
		ChannelName:    cfg.Redis.EventChannel,
		LocalBusConfig: busConfig(log),
		Logger:         log,
	})
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("failed to start event bus: %w", err)
	}

	log.Info("redis connection established", logger.String("addr", cfg.Redis.Addr()))
	return &coordination{
		locker:   redis.NewLocker(cache, cfg.Redis.LockTTL),
		bus:      bus,
		cache:    cache,
		profiles: redis.NewProfileCache(profiles, cache, cfg.Redis.ProfileTTL, log),
		close: func() {
			_ = bus.Close()
			_ = cache.Close()
		},
	}, nil
}

func busConfig(log *logger.Logger) messaging.InMemoryEventBusConfig {
	c := messaging.DefaultInMemoryEventBusConfig()
	c.Logger = log
	return c
}

func logRetry(log *logger.Logger, target string) func(attempt int, err error, delay time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		log.Warn("connection attempt failed, retrying",
			logger.String("target", target),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// engineConfig maps configuration and feature flags onto the engine.
func engineConfig(cfg *config.Config) engine.Config {
	ec := engine.DefaultConfig()
	ec.ChallengeChance = cfg.Engine.ChallengeChance
	ec.ChallengesEnabled = cfg.Features.IsEnabled(config.FeatureChallenges)
	ec.ExtendedChallenges = cfg.Features.IsEnabled(config.FeatureExtendedChallenges)
	ec.ActivityAchievements = cfg.Features.IsEnabled(config.FeatureActivityAchievements)
	ec.PersonalityMessages = cfg.Features.IsEnabled(config.FeaturePersonalityMessages)
	ec.Location = cfg.App.Location
	return ec
}
