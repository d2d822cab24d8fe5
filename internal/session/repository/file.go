package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// FileKV keeps all entries in one JSON document. Every Write rewrites the document via
// temp file + rename, so a batch lands completely or not at all.
type FileKV struct {
	path string
	mu   sync.RWMutex
	data map[string]string
}

// DefaultSessionFile returns <user config dir>/singlebrief/session.json.
func DefaultSessionFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "singlebrief", "session.json"), nil
}

// NewFileKV loads the document at path. A missing or corrupted document starts empty.
func NewFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("repository: session file path is empty")
	}
	s := &FileKV{path: path, data: map[string]string{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileKV) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FileKV) Write(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.data)+len(b.Set))
	for k, v := range s.data {
		next[k] = v
	}
	for k, v := range b.Set {
		next[k] = v
	}
	for _, k := range b.Delete {
		delete(next, k)
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *FileKV) Close() error { return nil }

func (s *FileKV) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		// Fall back to empty for corrupted JSON
		return nil
	}
	if m != nil {
		s.data = m
	}
	return nil
}

func (s *FileKV) save(m map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file then rename
	tmp, err := os.CreateTemp(dir, "session-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, s.path)
}
