// Package factory builds the Store selected by configuration: one of the
// single-tier backends, or the hybrid dispatcher composing all of them.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/config"
	"github.com/silverquant/tierstore/internal/storage"
	"github.com/silverquant/tierstore/internal/storage/clickstore"
	"github.com/silverquant/tierstore/internal/storage/filestore"
	"github.com/silverquant/tierstore/internal/storage/hybrid"
	"github.com/silverquant/tierstore/internal/storage/mysqlstore"
	"github.com/silverquant/tierstore/internal/storage/redisstore"
)

// New builds the backend for cfg.Mode. Single-tier modes fail when their
// backend is unreachable; hybrid mode degrades unreachable database tiers
// to nil and serves their classes from file.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Store, error) {
	switch cfg.Mode {
	case config.ModeFile:
		return filestore.New(cfg.CachePath, log)

	case config.ModeHot:
		return redisstore.New(ctx, redisOptions(cfg), log)

	case config.ModeWarm:
		store, err := mysqlstore.New(ctx, cfg.MySQL.DSN(), log)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	case config.ModeCool:
		store, err := clickstore.New(ctx, clickOptions(cfg), log)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	case config.ModeHybrid:
		return newHybrid(ctx, cfg, log)

	default:
		return nil, fmt.Errorf("unknown store mode %q", cfg.Mode)
	}
}

// newHybrid builds every tier, tolerating database tiers that are down:
// each failed tier is logged at WARN and its class served from file.
func newHybrid(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Store, error) {
	file, err := filestore.New(cfg.CachePath, log)
	if err != nil {
		return nil, fmt.Errorf("file tier is mandatory: %w", err)
	}

	var hot storage.Store
	if redis, err := redisstore.New(ctx, redisOptions(cfg), log); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, position state served from file")
	} else {
		hot = redis
	}

	var warm storage.Store
	if mysql, err := mysqlstore.New(ctx, cfg.MySQL.DSN(), log); err != nil {
		log.Warn().Err(err).Msg("mysql unavailable, accounts and strategies served from file")
	} else if err := mysql.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("mysql schema init failed, accounts and strategies served from file")
		_ = mysql.Close()
	} else {
		warm = mysql
	}

	var cool storage.Store
	if click, err := clickstore.New(ctx, clickOptions(cfg), log); err != nil {
		log.Warn().Err(err).Msg("clickhouse unavailable, trade history served from file")
	} else if err := click.InitSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("clickhouse schema init failed, trade history served from file")
		_ = click.Close()
	} else {
		cool = click
	}

	return hybrid.New(file, hot, warm, cool, hybrid.Options{
		DualWrite:    cfg.EnableDualWrite,
		AutoFallback: cfg.EnableAutoFallback,
	}, log)
}

func redisOptions(cfg *config.Config) redisstore.Options {
	return redisstore.Options{
		Addr:     cfg.Redis.Addr(),
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
		PoolSize: cfg.Redis.PoolSize,
	}
}

func clickOptions(cfg *config.Config) clickstore.Options {
	return clickstore.Options{
		Addr:     cfg.ClickHouse.Addr(),
		Database: cfg.ClickHouse.Database,
		User:     cfg.ClickHouse.User,
		Password: cfg.ClickHouse.Password,
	}
}
