// Package localstore is a file-backed key-value store for client-side
// fallback snapshots, such as the last resolved identity and the last
// seen project list. Every file carries an explicit schema version so a
// record written by one release can be migrated, or refused, by
// another.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SchemaVersion is the version written by this release.
const SchemaVersion = 1

// ErrSchemaVersion is returned when a store file was written by a newer
// release than this one understands.
var ErrSchemaVersion = errors.New("localstore: unsupported schema version")

type envelope struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

// Store is a persistent string key-value map. Writes go to disk
// immediately via an atomic rename. Safe for concurrent use.
type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]string
}

// Open loads the store at path, creating an empty one if the file does
// not exist. Files written without a version wrapper are migrated in
// place on the next write; files from a newer schema are refused.
func Open(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local store: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Entries == nil {
		return openLegacy(s, raw)
	}
	if env.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: file has version %d, this build understands up to %d",
			ErrSchemaVersion, env.Version, SchemaVersion)
	}
	s.entries = env.Entries
	return s, nil
}

// openLegacy migrates the pre-versioning format, a bare JSON object of
// string pairs.
func openLegacy(s *Store, raw []byte) (*Store, error) {
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode local store: %w", err)
	}
	s.entries = flat
	return s, nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[key]
	return value, ok
}

// GetJSON decodes the value for key into v. Returns false when the key
// is absent.
func (s *Store) GetJSON(key string, v any) (bool, error) {
	value, ok := s.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(value), v); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores the value and persists the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return s.flushLocked()
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return s.Set(key, string(raw))
}

// Delete removes the key and persists the file.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.flushLocked()
}

// flushLocked writes the whole store through a temp file rename so a
// crash mid-write cannot truncate the previous snapshot.
func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(envelope{Version: SchemaVersion, Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create local store dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}
