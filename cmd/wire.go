package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codesync/codesync-backend/config"
	"github.com/codesync/codesync-backend/internal/postgres"
	"github.com/codesync/codesync-backend/internal/sqlite"
	"github.com/codesync/codesync-backend/internal/store"
	"github.com/codesync/codesync-backend/pkg/logger"
)

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(config.ResolvePath(path))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	return cfg, nil
}

// openStore connects to the configured backend and applies the schema.
func openStore(ctx context.Context, cfg config.Storage) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Driver {
	case store.DriverSQLite:
		st, err = sqlite.Open(ctx, cfg.SQLite.Path)
	default:
		st, err = postgres.Open(ctx, cfg.Postgres.ToPGConfig())
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	slog.Info("store ready", "driver", cfg.Driver)
	return st, nil
}
