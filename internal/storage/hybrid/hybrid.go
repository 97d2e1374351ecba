// Package hybrid composes the four storage tiers into one Store. Each
// operation class routes to its primary tier with the file tier as backup:
// position state to Redis, accounts and strategies to MySQL, trades and
// candles to ClickHouse.
//
// Reads prefer the primary and fall back to file when the primary errors
// (auto-fallback) or, for record classes, when the primary has no data.
// Position reads are final: an absent key on a healthy HOT tier means the
// position does not exist. Writes go to the primary and, in dual-write
// mode or on primary failure, to file; a write succeeds when either side
// does.
package hybrid

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage"
)

// Latency budgets; reads beyond them log at INFO with the elapsed time.
const (
	positionReadBudget = 10 * time.Millisecond
	historyReadBudget  = 100 * time.Millisecond
)

// Backend names carried on degradation and write-failure log events.
const (
	backendRedis      = "redis"
	backendMySQL      = "mysql"
	backendClickHouse = "clickhouse"
	backendFile       = "file"
)

// Options toggles the dispatch behaviors. Deployments run with both
// behaviors on unless explicitly disabled; DefaultOptions carries those
// defaults for callers not driven by configuration.
type Options struct {
	DualWrite    bool
	AutoFallback bool
}

// DefaultOptions is the standard dispatch behavior: writes mirrored to
// the file tier and degraded reads allowed.
var DefaultOptions = Options{DualWrite: true, AutoFallback: true}

// Store dispatches operations across the tiers. file is mandatory; any of
// the database tiers may be nil, in which case its class runs file-only.
type Store struct {
	file storage.Store
	hot  storage.Store
	warm storage.Store
	cool storage.Store

	dualWrite    bool
	autoFallback bool
	log          zerolog.Logger
}

// New builds the dispatcher. Nil database tiers degrade their class to
// file-only service.
func New(file, hot, warm, cool storage.Store, opts Options, log zerolog.Logger) (*Store, error) {
	if file == nil {
		return nil, storage.Invalidf("file tier is required")
	}
	return &Store{
		file:         file,
		hot:          hot,
		warm:         warm,
		cool:         cool,
		dualWrite:    opts.DualWrite,
		autoFallback: opts.AutoFallback,
		log:          log.With().Str("component", "hybrid").Logger(),
	}, nil
}

// TierStatus reports per-tier reachability.
type TierStatus struct {
	File       bool
	Redis      bool
	MySQL      bool
	ClickHouse bool
}

// Status checks every configured tier. Unconfigured tiers report false.
func (s *Store) Status(ctx context.Context) TierStatus {
	st := TierStatus{File: s.file.HealthCheck(ctx)}
	if s.hot != nil {
		st.Redis = s.hot.HealthCheck(ctx)
	}
	if s.warm != nil {
		st.MySQL = s.warm.HealthCheck(ctx)
	}
	if s.cool != nil {
		st.ClickHouse = s.cool.HealthCheck(ctx)
	}
	return st
}

// HealthCheck reports whether the mandatory file tier is usable.
func (s *Store) HealthCheck(ctx context.Context) bool {
	return s.file.HealthCheck(ctx)
}

// Close closes every configured tier and returns the first error.
func (s *Store) Close() error {
	var firstErr error
	for _, tier := range []storage.Store{s.hot, s.warm, s.cool, s.file} {
		if tier == nil {
			continue
		}
		if err := tier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// trace logs reads that exceed their latency budget.
func (s *Store) trace(op string, budget time.Duration, start time.Time) {
	if elapsed := time.Since(start); elapsed > budget {
		s.log.Info().Str("op", op).Dur("elapsed", elapsed).Msg("read exceeded latency budget")
	}
}

// fallbackErr decides whether a primary-tier read error degrades to file.
// ErrInvalidArgument is the caller's mistake and never degrades.
func (s *Store) fallbackErr(op, backend string, err error) bool {
	if errors.Is(err, storage.ErrInvalidArgument) {
		return false
	}
	if !s.autoFallback {
		return false
	}
	s.log.Warn().Err(err).Str("op", op).Str("backend", backend).Msg("primary tier failed, falling back to file")
	return true
}

// dualWriteErr combines the two sides of a write: success when either
// side succeeded, otherwise the primary error (or the file error when the
// primary tier is absent).
func (s *Store) dualWriteErr(op, backend string, primary storage.Store, primaryWrite, fileWrite func(storage.Store) error) error {
	var primaryErr error
	primaryOK := false
	if primary != nil {
		primaryErr = primaryWrite(primary)
		if primaryErr != nil {
			if errors.Is(primaryErr, storage.ErrInvalidArgument) {
				return primaryErr
			}
			s.log.Error().Err(primaryErr).Str("op", op).Str("backend", backend).Msg("primary tier write failed")
		} else {
			primaryOK = true
		}
	}

	if primary != nil && primaryOK && !s.dualWrite {
		return nil
	}

	fileErr := fileWrite(s.file)
	if fileErr != nil {
		if errors.Is(fileErr, storage.ErrInvalidArgument) {
			return fileErr
		}
		s.log.Error().Err(fileErr).Str("op", op).Str("backend", backendFile).Msg("file tier write failed")
	}

	if primaryOK || fileErr == nil {
		return nil
	}
	if primaryErr != nil {
		return primaryErr
	}
	return fileErr
}
