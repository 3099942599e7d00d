package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/engine"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/repository"
	"github.com/rushteam/hybridrec/store"
	"github.com/rushteam/hybridrec/tracker"
)

// runtime 是一次命令执行所需的全部组件。
type runtime struct {
	cfg    *config.Config
	logger zerolog.Logger

	kv           core.KeyValueStore
	repo         *repository.KV
	interactions core.InteractionRepository
	catalog      core.CatalogRepository

	tracker *tracker.Tracker
	engine  *engine.Engine
}

// openRuntime 按配置装配：存储 → KV 仓储 → 熔断/缓存装饰 → Tracker → Engine。
// fixturePath 非空时先灌入演示数据。
func openRuntime(ctx context.Context, cfg *config.Config, fixturePath string) (*runtime, error) {
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	rt := &runtime{cfg: cfg, logger: logger}

	kv, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	rt.kv = kv

	rt.repo = repository.NewKV(kv)
	if cfg.Store.Prefix != "" {
		rt.repo.Prefix = cfg.Store.Prefix
	}
	blacklist := filter.NewStoreAdapter(kv)

	if fixturePath != "" {
		fx, err := LoadFixture(fixturePath)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		if err := fx.Apply(ctx, rt.repo, blacklist, cfg.Blacklist.Key, cfg.Blacklist.UserKeyPrefix); err != nil {
			_ = rt.Close()
			return nil, err
		}
		logger.Debug().
			Int("products", len(fx.Products)).
			Int("events", len(fx.Events)).
			Msg("fixture loaded")
	}

	rt.interactions = rt.repo
	rt.catalog = rt.repo
	if cfg.Breaker.Enabled {
		bc := cfg.BreakerSettings()
		rt.interactions = repository.NewGuardedInteractions(rt.interactions, bc, logger)
		rt.catalog = repository.NewGuardedCatalog(rt.catalog, bc, logger)
	}
	if cfg.Cache.CatalogSize > 0 {
		cached, err := repository.NewCachedCatalog(rt.catalog, cfg.Cache.CatalogSize)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.catalog = cached
	}

	rt.tracker, err = tracker.New(rt.interactions,
		tracker.WithLogger(logging.Component(logger, "tracker")),
		tracker.WithBufferSize(cfg.Tracker.Buffer),
		tracker.WithWriteTimeout(cfg.Tracker.WriteTimeout),
	)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	rt.engine, err = engine.New(rt.interactions, rt.catalog,
		engine.WithLogger(logger),
		engine.WithSettings(cfg.EngineSettings()),
		engine.WithTracker(rt.tracker),
		engine.WithBlacklistStore(blacklist),
	)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (core.KeyValueStore, error) {
	switch sc.Backend {
	case "redis":
		rs, err := store.NewRedisStore(ctx, sc.Addr, sc.Password, sc.DB)
		if err != nil {
			return nil, err
		}
		return rs, nil
	case "", "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "unknown store backend "+sc.Backend)
	}
}

// Close 依次关闭引擎、Tracker 与存储。
func (rt *runtime) Close() error {
	var errs []error
	if rt.engine != nil {
		errs = append(errs, rt.engine.Close())
	}
	if rt.tracker != nil {
		errs = append(errs, rt.tracker.Close())
	}
	if rt.kv != nil {
		errs = append(errs, rt.kv.Close())
	}
	return errors.Join(errs...)
}
