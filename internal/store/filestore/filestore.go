// Package filestore implements the persistence gateway over a single JSON
// document. Transactions are made atomic by writing the whole document to a
// temporary file and renaming it over the previous one; a partial failure
// leaves the prior file untouched.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/genovault/genovault/internal/record"
	"github.com/genovault/genovault/internal/store"
)

// Store is the file-based backend. It wraps the shared transactional core
// and snapshots the full state on every committed transaction.
type Store struct {
	*store.Memory
	path   string
	mu     sync.Mutex // exclusive lock around the write-temp-then-replace sequence
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Open loads the document at path, creating an empty store when the file
// does not exist yet.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.Memory = store.NewMemory(store.WithPersist(s.persist))

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, &record.StorageUnavailable{Err: fmt.Errorf("read %s: %w", path, err)}
	}

	var snap record.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if snap.SchemaVersion > record.SchemaVersion {
		return nil, fmt.Errorf("%s: schema version %d is newer than supported %d", path, snap.SchemaVersion, record.SchemaVersion)
	}
	if err := s.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	s.logger.Debug("loaded document",
		zap.String("path", path),
		zap.Int("patients", len(snap.Patients)),
		zap.Int("geneRecords", len(snap.GeneRecords)))
	return s, nil
}

// Option configures a file store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// persist writes the snapshot to <path>.tmp and atomically replaces the
// previous document. Called by the core inside the commit, so a failure here
// aborts the transaction before the new state becomes visible.
func (s *Store) persist(snap record.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return &record.StorageUnavailable{Err: fmt.Errorf("create %s: %w", dir, err)}
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &record.StorageUnavailable{Err: fmt.Errorf("write %s: %w", tmp, err)}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &record.StorageUnavailable{Err: fmt.Errorf("replace %s: %w", s.path, err)}
	}
	return nil
}

// Close is a no-op: every committed transaction has already been flushed.
func (s *Store) Close() error { return nil }
