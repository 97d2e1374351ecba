// Package filestore is the on-disk storage tier: JSON documents for
// position state, accounts and strategies, plus an append-only CSV trade
// log, all under one cache directory.
//
// The layout is single-account: position documents are keyed by stock code
// only, and the accountID argument does not select a subdirectory. Callers
// that need per-account isolation run one Store per cache path.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Document names inside the cache directory.
const (
	fileHeldDays   = "held_days.json"
	fileMaxPrices  = "max_prices.json"
	fileMinPrices  = "min_prices.json"
	fileAccounts   = "accounts.json"
	fileStrategies = "strategies.json"
	fileTrades     = "trades.csv"
)

// incDateKey is the reserved held-days key holding the last AllHeldInc date.
// Keys starting with "_" are markers, never positions.
const incDateKey = "_inc_date"

// Store implements the storage operation set on plain files.
type Store struct {
	root string
	log  zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the cache directory and the JSON documents that must exist.
func New(root string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", root, err)
	}
	s := &Store{
		root:  root,
		log:   log.With().Str("component", "filestore").Logger(),
		locks: make(map[string]*sync.Mutex),
	}
	for _, name := range []string{fileHeldDays, fileMaxPrices, fileMinPrices, fileAccounts, fileStrategies} {
		path := s.path(name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeDoc(path, map[string]any{}); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.root, name)
}

// lockFor returns the mutex guarding one document path, creating it on
// first use. Every read-modify-write of a document holds its mutex.
func (s *Store) lockFor(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// readDoc decodes a JSON document into v. A missing file decodes as the
// empty document.
func readDoc(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// writeDoc encodes v and replaces the document atomically via a temp file
// and rename, so readers never observe a half-written document.
func writeDoc(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// HealthCheck checks that the cache directory is writable.
func (s *Store) HealthCheck(_ context.Context) bool {
	marker := s.path(".health_check")
	if err := os.WriteFile(marker, []byte("ok"), 0o644); err != nil {
		s.log.Warn().Err(err).Msg("health check write failed")
		return false
	}
	if err := os.Remove(marker); err != nil {
		s.log.Warn().Err(err).Msg("health check cleanup failed")
		return false
	}
	return true
}

// Close is a no-op; the store holds no descriptors between calls.
func (s *Store) Close() error { return nil }
