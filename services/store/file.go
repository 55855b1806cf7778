package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"sjsage522/jobfeedworker/logger"
	apperrors "sjsage522/jobfeedworker/pkg/errors"

	"github.com/gofrs/flock"
)

// FileStore keeps the seen set in a JSON document on disk
type FileStore struct {
	path string
	lock *flock.Flock
	log  *logger.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens the state file at path and takes an exclusive lock on
// path+".lock" for the lifetime of the store.
func NewFileStore(path string, log *logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock state file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("state file %s is in use by another process", path)
	}

	return &FileStore{path: path, lock: lock, log: log}, nil
}

// Load reads the state file
func (s *FileStore) Load(ctx context.Context) (SeenSet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info().Str("path", s.path).Msg("No state file yet, starting with an empty seen set")
		return SeenSet{}, nil
	}
	if err != nil {
		return nil, apperrors.NewLoad(s.path, "read failed", err)
	}

	var set SeenSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, apperrors.NewLoad(s.path, "state is not a JSON object of strings", err)
	}
	// "null" decodes without error but is not a valid state document
	if set == nil {
		return nil, apperrors.NewLoad(s.path, "state is null", nil)
	}
	s.log.Debug().Str("path", s.path).Int("links", len(set)).Msg("Loaded seen set")
	return set, nil
}

// Persist writes set to a temporary file next to the state file and renames
// it into place, so an interrupted write leaves the previous state intact.
func (s *FileStore) Persist(ctx context.Context, set SeenSet) error {
	data, err := encode(set)
	if err != nil {
		return apperrors.NewPersist(s.path, "encode failed", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperrors.NewPersist(s.path, "create temp file failed", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewPersist(s.path, "write failed", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewPersist(s.path, "sync failed", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewPersist(s.path, "close failed", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return apperrors.NewPersist(s.path, "chmod failed", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apperrors.NewPersist(s.path, "rename failed", err)
	}
	s.log.Debug().Str("path", s.path).Int("links", len(set)).Msg("Persisted seen set")
	return nil
}

// Close releases the state file lock
func (s *FileStore) Close() error {
	return s.lock.Unlock()
}

// encode renders set as two-space indented JSON. encoding/json sorts map
// keys, so equal sets always encode to identical bytes.
func encode(set SeenSet) ([]byte, error) {
	if set == nil {
		set = SeenSet{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
