// Package jsonstore keeps a single typed document in memory and persists it
// as a JSON file. Writes go through a temp file and a rename, so readers never
// see a half written document. Unchanged documents are not rewritten.
package jsonstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// Config holds options for a Store.
type Config struct {
	// Path of the JSON document.
	Path string
	// BackupCount is the number of timestamped backups kept next to Path.
	// Zero disables backups.
	BackupCount int
	// LegacyTOML, when set and present on disk, is decoded instead of Path,
	// written out as JSON and then removed.
	LegacyTOML string
}

// DefaultConfig returns a Config for path with three backups.
func DefaultConfig(path string) Config {
	return Config{Path: path, BackupCount: 3}
}

// Store is a JSON backed document of type T. It is safe for concurrent use.
type Store[T any] struct {
	mu           sync.RWMutex
	cfg          Config
	data         T
	seed         func() T
	lastChecksum string
}

// Open loads the document at cfg.Path. If neither the file nor the legacy
// TOML file exist, the document is initialised from seed and saved.
func Open[T any](cfg Config, seed func() T) (*Store[T], error) {
	if cfg.Path == "" {
		return nil, errors.New("file path cannot be empty")
	}
	if seed == nil {
		seed = func() T {
			var zero T
			return zero
		}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &Store[T]{cfg: cfg, seed: seed}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the document path.
func (s *Store[T]) Path() string { return s.cfg.Path }

// Load replaces the in-memory document with the one on disk, discarding
// unsaved changes.
func (s *Store[T]) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store[T]) loadLocked() error {
	if s.cfg.LegacyTOML != "" {
		if _, err := os.Stat(s.cfg.LegacyTOML); err == nil {
			return s.convertLegacyLocked()
		}
	}

	raw, err := os.ReadFile(s.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", s.cfg.Path).Msg("document does not exist yet, initialising")
		s.data = s.seed()
		s.lastChecksum = ""
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.cfg.Path, err)
	}

	data := s.seed()
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%s does not contain valid json: %w", s.cfg.Path, err)
	}
	s.data = data
	s.lastChecksum = checksum(raw)
	log.Debug().Str("path", s.cfg.Path).Msg("document loaded")
	return nil
}

func (s *Store[T]) convertLegacyLocked() error {
	data := s.seed()
	if _, err := toml.DecodeFile(s.cfg.LegacyTOML, &data); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.cfg.LegacyTOML, err)
	}
	s.data = data
	s.lastChecksum = ""
	if err := s.saveLocked(); err != nil {
		return err
	}
	if err := os.Remove(s.cfg.LegacyTOML); err != nil {
		return fmt.Errorf("failed to remove %s: %w", s.cfg.LegacyTOML, err)
	}
	log.Info().Str("from", s.cfg.LegacyTOML).Str("to", s.cfg.Path).Msg("converted legacy toml document")
	return nil
}

// Save writes the document to disk if it changed since the last save.
func (s *Store[T]) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// View calls fn with the document under a read lock. fn must not retain or
// modify it.
func (s *Store[T]) View(fn func(doc *T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

// Update calls fn with the document under the write lock and saves it if fn
// returns nil. When the save fails the change stays in memory.
func (s *Store[T]) Update(fn func(doc *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(&s.data); err != nil {
		return err
	}
	return s.saveLocked()
}

func (s *Store[T]) saveLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	sum := checksum(raw)
	if sum == s.lastChecksum {
		return nil
	}

	if s.cfg.BackupCount > 0 {
		if err := s.backup(); err != nil {
			log.Warn().Err(err).Str("path", s.cfg.Path).Msg("failed to create backup")
		}
	}
	if err := writeFileAtomic(s.cfg.Path, raw); err != nil {
		return err
	}
	s.lastChecksum = sum
	return nil
}

// writeFileAtomic writes data to a temp file, syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// backup copies the current file to path.backup.<timestamp> and prunes old copies.
func (s *Store[T]) backup() error {
	src, err := os.Open(s.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	name := fmt.Sprintf("%s.backup.%s", s.cfg.Path, time.Now().Format("20060102_150405.000000"))
	dst, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	s.pruneBackups()
	return nil
}

func (s *Store[T]) pruneBackups() {
	matches, err := filepath.Glob(s.cfg.Path + ".backup.*")
	if err != nil || len(matches) <= s.cfg.BackupCount {
		return
	}
	// timestamp suffixes sort chronologically
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-s.cfg.BackupCount] {
		os.Remove(old)
	}
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
