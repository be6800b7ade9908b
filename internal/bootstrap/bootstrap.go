// Package bootstrap opens the document store and message broker selected by
// configuration. It is shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/config"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/repository"
	"github.com/jwalitptl/medtracker/internal/repository/cache"
	"github.com/jwalitptl/medtracker/internal/repository/encrypted"
	"github.com/jwalitptl/medtracker/internal/repository/memory"
	"github.com/jwalitptl/medtracker/internal/repository/postgres"
	redisrepo "github.com/jwalitptl/medtracker/internal/repository/redis"
	"github.com/jwalitptl/medtracker/pkg/messaging"
	redisbroker "github.com/jwalitptl/medtracker/pkg/messaging/redis"
	"github.com/jwalitptl/medtracker/pkg/metrics"
	"github.com/jwalitptl/medtracker/pkg/security"
)

// Infra holds the opened store and broker and the connections behind them.
type Infra struct {
	Store  repository.DocumentRepository
	Broker messaging.Broker
	// Shared reports whether the broker reaches other processes.
	Shared bool

	redis   *goredis.Client
	closers []func() error
}

// Open connects to the configured backend. A backend whose credentials are missing is
// replaced by an unconfigured repository, so the process starts and every request fails
// with a configuration error. Connection failures are returned.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*Infra, error) {
	infra := &Infra{}

	if cfg.Redis.URL != "" {
		client, err := redisbroker.NewClient(ctx, cfg.Redis.ToBrokerConfig())
		if err != nil {
			return nil, err
		}
		infra.redis = client
		infra.closers = append(infra.closers, client.Close)
	}

	store, err := infra.openStore(ctx, cfg, m, logger)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	if cfg.Store.EncryptionKey != "" {
		key, err := security.ParseKey(cfg.Store.EncryptionKey)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		enc, err := security.NewEncryptor(key)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		store = encrypted.NewDocumentRepository(store, enc)
	}
	var cached *cache.DocumentRepository
	if cfg.Store.CacheTTL > 0 {
		cached = cache.NewDocumentRepository(store, cfg.Store.CacheTTL)
		store = cached
	}
	infra.Store = store

	if infra.redis != nil {
		broker := redisbroker.NewRedisBroker(infra.redis, logger)
		infra.Broker = broker
		infra.Shared = true
		infra.closers = append(infra.closers, broker.Close)
	} else {
		broker := messaging.NewMemoryBroker()
		infra.Broker = broker
		infra.closers = append(infra.closers, broker.Close)
	}

	if cached != nil {
		watchCtx, cancel := context.WithCancel(context.Background())
		events, err := infra.Broker.Subscribe(watchCtx, model.ChannelDocumentSaved)
		if err != nil {
			cancel()
			_ = infra.Close()
			return nil, err
		}
		go cached.EvictOnSave(events, logger)
		infra.closers = append(infra.closers, func() error {
			cancel()
			return nil
		})
	}

	return infra, nil
}

func (i *Infra) openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (repository.DocumentRepository, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		logger.Warn().Msg("Using in-memory document store; data is lost on restart")
		return memory.NewDocumentRepository(m), nil

	case config.BackendPostgres:
		if cfg.Database.URL == "" {
			logger.Error().Msg("DATABASE_URL is not set; document requests will fail")
			return repository.NewUnconfigured("database URL is not set"), nil
		}
		db, err := postgres.NewDB(ctx, cfg.Database.ToPostgresConfig())
		if err != nil {
			return nil, err
		}
		i.closers = append(i.closers, db.Close)
		if cfg.Database.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				return nil, err
			}
		}
		return postgres.NewDocumentRepository(db, m), nil

	case config.BackendRedis:
		if i.redis == nil {
			logger.Error().Msg("REDIS_URL is not set; document requests will fail")
			return repository.NewUnconfigured("redis URL is not set"), nil
		}
		return redisrepo.NewDocumentRepository(i.redis, cfg.Store.KeyPrefix, m), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// Close releases connections in reverse order of opening.
func (i *Infra) Close() error {
	var first error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](); err != nil && first == nil {
			first = err
		}
	}
	i.closers = nil
	return first
}
