package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sendahq/senda"
	"github.com/sendahq/senda/internal/config"
	"github.com/sendahq/senda/pkg/actions"
	"github.com/sendahq/senda/pkg/adapters/memory"
	"github.com/sendahq/senda/pkg/adapters/postgres"
	"github.com/sendahq/senda/pkg/adapters/process"
	redisad "github.com/sendahq/senda/pkg/adapters/redis"
	"github.com/sendahq/senda/pkg/loader"
	"github.com/sendahq/senda/pkg/state"
	"github.com/sendahq/senda/pkg/state/middleware"
)

// Runtime bundles the assembled engine with the backend-specific extras the
// commands need: a distributed locker when the store supports one, and a
// Close that releases backend connections.
type Runtime struct {
	Engine *senda.Engine
	Locker state.Locker
	Close  func()
}

// NewRuntime assembles an engine from config: store and tracker selection,
// external command bindings, and the definitions found in the flows
// directory. A missing flows directory is not an error since definitions can
// also arrive through the API.
func NewRuntime(cfg *config.Config, logger *slog.Logger, extra ...senda.Option) (*Runtime, error) {
	rt := &Runtime{Close: func() {}}

	opts := []senda.Option{
		senda.WithLogger(logger),
		senda.WithResumeWindow(cfg.Resume.Window),
	}

	var st state.Store
	switch cfg.Store {
	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		storeOpts := []redisad.Option{}
		if cfg.Redis.Prefix != "" {
			storeOpts = append(storeOpts, redisad.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			storeOpts = append(storeOpts, redisad.WithTTL(cfg.Redis.TTL))
		}
		st = redisad.NewFromClient(client, storeOpts...)
		opts = append(opts, senda.WithTracker(redisad.NewTracker(client, cfg.Redis.Prefix)))
		rt.Locker = redisad.NewLocker(client, cfg.Redis.Prefix)
		rt.Close = func() { _ = client.Close() }

	case config.StorePostgres:
		db, err := postgres.Connect(postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := postgres.Migrate(context.Background(), db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		st = postgres.New(db)
		opts = append(opts, senda.WithTracker(postgres.NewTracker(db)))
		rt.Close = func() { _ = db.Close() }
	}

	st, err := secureStore(st, cfg.Security)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if st != nil {
		opts = append(opts, senda.WithStore(st))
	}

	if cfg.CommandsFile != "" {
		commands, err := process.LoadManifest(cfg.CommandsFile)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("load commands manifest: %w", err)
		}
		reg := actions.NewRegistry()
		if err := process.NewRunner(process.WithCommands(commands)).Bind(reg); err != nil {
			rt.Close()
			return nil, fmt.Errorf("bind commands: %w", err)
		}
		opts = append(opts, senda.WithActions(reg))
	}

	opts = append(opts, extra...)
	rt.Engine = senda.New(opts...)

	defs, err := loader.LoadDir(cfg.FlowsDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			rt.Close()
			return nil, fmt.Errorf("load flows from %s: %w", cfg.FlowsDir, err)
		}
		logger.Debug("flows directory absent, starting empty", "dir", cfg.FlowsDir)
	}
	for _, def := range defs {
		if err := rt.Engine.Register(def); err != nil {
			rt.Close()
			return nil, fmt.Errorf("register %s: %w", def.ID, err)
		}
	}

	return rt, nil
}

// secureStore layers the configured security middleware over the backend
// store. With nothing configured a nil store stays nil so the engine keeps
// its in-memory default. Masking is chained after encryption so it runs
// first on writes and sees plaintext values.
func secureStore(st state.Store, sec config.SecurityConfig) (state.Store, error) {
	active, fallbacks, err := sec.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	patterns, err := sec.MaskPatterns()
	if err != nil {
		return nil, err
	}

	var mws []middleware.Middleware
	if active != nil {
		mws = append(mws, middleware.NewEncryption(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		}))
	}
	if len(patterns) > 0 {
		mws = append(mws, middleware.NewPIIMask(patterns))
	}
	if len(mws) == 0 {
		return st, nil
	}
	if st == nil {
		st = memory.NewStore()
	}
	return middleware.Chain(st, mws...), nil
}
