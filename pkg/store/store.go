// Package store provides the persistent key-to-blob layer backing the
// pattern registry and session state. Writes are debounced and always land
// via write-to-temp-then-rename; at-rest encryption is opt-in through an
// environment variable.
package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pagelens/pagelens/pkg/observability"
)

// Store is the persistence contract consumed by the registry
type Store interface {
	// Load returns the stored blob, or nil when nothing has been saved yet.
	Load() ([]byte, error)
	// Save schedules the blob for writing. Calls within the debounce window
	// coalesce; the last blob wins.
	Save(blob []byte) error
	// Flush writes any pending blob immediately.
	Flush() error
	// Close flushes and stops the debounce timer.
	Close() error
}

// FileStore persists a single blob to one file on disk
type FileStore struct {
	path     string
	debounce time.Duration
	logger   observability.Logger

	mu      sync.Mutex
	pending []byte
	timer   *time.Timer
	key     []byte
}

// NewFileStore creates a file-backed store. The encryption key is read from
// the environment once at construction; an invalid key is an error, an absent
// key means plaintext.
func NewFileStore(path string, debounce time.Duration, logger observability.Logger) (*FileStore, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	key, err := loadKeyFromEnv()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create store directory")
	}
	return &FileStore{
		path:     path,
		debounce: debounce,
		logger:   logger,
		key:      key,
	}, nil
}

// Load reads the blob from disk, transparently decrypting. A plaintext file
// read while a key is configured is re-encrypted in place (migration on read).
func (s *FileStore) Load() ([]byte, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read store file")
	}
	if len(content) == 0 {
		return nil, nil
	}

	if isEncrypted(content) {
		if s.key == nil {
			return nil, errors.Errorf("store file is encrypted but %s is not set", encryptionEnvVar)
		}
		return openPayload(content, s.key)
	}

	// Plaintext on disk with a key configured: migrate now so the next
	// reader never sees cleartext.
	if s.key != nil {
		if err := s.writeFile(content); err != nil {
			s.logger.Warn("Failed to re-encrypt store file on load", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		} else {
			s.logger.Info("Migrated plaintext store file to encrypted format", map[string]interface{}{
				"path": s.path,
			})
		}
	}
	return content, nil
}

// Save schedules the blob for a debounced write
func (s *FileStore) Save(blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = blob
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(); err != nil {
			s.logger.Error("Debounced store write failed", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
	})
	return nil
}

// Flush writes the pending blob, if any, immediately
func (s *FileStore) Flush() error {
	s.mu.Lock()
	blob := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if blob == nil {
		return nil
	}
	return s.writeFile(blob)
}

// Close flushes pending state and releases the timer
func (s *FileStore) Close() error {
	return s.Flush()
}

// writeFile serializes, writes to a unique temp file in the same directory,
// and renames onto the destination. The temp file is removed on any failure.
func (s *FileStore) writeFile(blob []byte) error {
	payload := blob
	if s.key != nil {
		sealed, err := sealPayload(blob, s.key)
		if err != nil {
			return err
		}
		payload = sealed
	}

	tmpPath := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, payload, 0o600); err != nil {
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "failed to rename temp file")
	}
	return nil
}

// MemoryStore is an in-memory Store for tests and ephemeral use
type MemoryStore struct {
	mu   sync.RWMutex
	blob []byte
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the last saved blob
func (s *MemoryStore) Load() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.blob == nil {
		return nil, nil
	}
	out := make([]byte, len(s.blob))
	copy(out, s.blob)
	return out, nil
}

// Save stores the blob
func (s *MemoryStore) Save(blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = make([]byte, len(blob))
	copy(s.blob, blob)
	return nil
}

// Flush is a no-op for the in-memory store
func (s *MemoryStore) Flush() error { return nil }

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error { return nil }
