package main

import (
	"context"
	"io"
	"time"

	"github.com/toolshop/storefront/api/controllers"
	"github.com/toolshop/storefront/pkg/config"
	"github.com/toolshop/storefront/pkg/db"
	"github.com/toolshop/storefront/pkg/logger"
	"github.com/toolshop/storefront/pkg/metrics"
	"github.com/toolshop/storefront/pkg/migrate"
	"github.com/toolshop/storefront/pkg/redis"
	"github.com/toolshop/storefront/pkg/storage"
	"github.com/toolshop/storefront/pkg/storage/breaker"
	"github.com/toolshop/storefront/pkg/storage/memory"
	"github.com/toolshop/storefront/pkg/storage/redisstore"
	"github.com/toolshop/storefront/pkg/storage/sqlstore"
)

type purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// storageStack is the backend selected by STOREFRONT_STORAGE_DRIVER plus the
// resources main has to ping and close.
type storageStack struct {
	backend   storage.Backend
	readiness []controllers.ReadinessCheck
	closers   []io.Closer
	purger    purger
}

func openStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger, m *metrics.Storefront) (*storageStack, error) {
	stack := &storageStack{}

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		mem := memory.New()
		stack.backend = mem
		stack.readiness = append(stack.readiness, controllers.ReadinessCheck{Name: "storage", Pinger: mem})
		return stack, nil

	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		stack.closers = append(stack.closers, client)
		stack.readiness = append(stack.readiness, controllers.ReadinessCheck{Name: "redis", Pinger: client})
		stack.backend = guard(cfg, logg, m, "redis", redisstore.New(client, cfg.Redis.EntryTTL))
		return stack, nil

	default:
		client, err := db.New(ctx, cfg.Storage.Driver, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		stack.closers = append(stack.closers, client)
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, err
		}
		store := sqlstore.New(client.DB())
		stack.purger = store
		stack.readiness = append(stack.readiness, controllers.ReadinessCheck{Name: "database", Pinger: client})
		stack.backend = guard(cfg, logg, m, client.Dialect(), store)
		return stack, nil
	}
}

func guard(cfg *config.Config, logg *logger.Logger, m *metrics.Storefront, name string, next storage.Backend) storage.Backend {
	if !cfg.Breaker.Enabled {
		return next
	}
	m.SetBreakerState(name, "closed")
	return breaker.New(next, breaker.Settings{
		Name:        name,
		MaxFailures: cfg.Breaker.MaxFailures,
		Interval:    cfg.Breaker.Interval,
		OpenTimeout: cfg.Breaker.OpenTimeout,
		OnStateChange: func(name, from, to string) {
			m.SetBreakerState(name, to)
			logg.Warn(logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from,
				"to":      to,
			}), "storage breaker state changed")
		},
	})
}
