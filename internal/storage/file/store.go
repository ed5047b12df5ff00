// Package file stores the ledger as a single JSON document on disk. Every
// save rewrites the whole file through a temporary file and a rename, so a
// reader sees either the old document or the new one.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	interfaces "github.com/sheikh-saqib/educoin-ledger/internal/interfaces"
	"github.com/sheikh-saqib/educoin-ledger/internal/models"
)

const (
	DefaultFile    = "ledger.json"
	lockSuffix     = ".lock"
	lockRetryDelay = 10 * time.Millisecond
)

// FileLedgerStore persists the ledger document to a flat file. Its version
// token is the SHA-256 of the file contents. Save compares and replaces the
// file while holding an exclusive flock on ledger.json.lock, so separate
// processes sharing the file detect each other's writes.
type FileLedgerStore struct {
	mu   sync.Mutex
	path string
}

func NewFileLedgerStore(path string) *FileLedgerStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileLedgerStore{path: path}
}

// Path returns the location of the ledger file.
func (s *FileLedgerStore) Path() string {
	return s.path
}

func (s *FileLedgerStore) Load(ctx context.Context) (models.Ledger, interfaces.Version, error) {
	if err := ctx.Err(); err != nil {
		return models.Ledger{}, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Ledger{}, "", interfaces.ErrLedgerNotFound
	}
	if err != nil {
		return models.Ledger{}, "", fmt.Errorf("read %s: %w", s.path, err)
	}

	ledger, err := models.Decode(data)
	if err != nil {
		return models.Ledger{}, "", fmt.Errorf("load %s: %w", s.path, err)
	}
	return ledger, versionOf(data), nil
}

func (s *FileLedgerStore) Save(ctx context.Context, ledger models.Ledger, expected interfaces.Version) (interfaces.Version, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ledger.Validate(); err != nil {
		return "", err
	}
	data, err := models.Encode(ledger)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	current, err := s.currentVersionLocked()
	if err != nil {
		return "", err
	}
	if current != expected {
		return "", interfaces.ErrConcurrentModification
	}

	if err := s.writeLocked(data); err != nil {
		return "", err
	}
	return versionOf(data), nil
}

// lockFile takes the exclusive lock on the sibling .lock file that other
// processes sharing this ledger also take before comparing and replacing it.
func (s *FileLedgerStore) lockFile(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	fl := flock.New(s.path + lockSuffix)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", fl.Path())
	}
	return func() { fl.Unlock() }, nil
}

func (s *FileLedgerStore) currentVersionLocked() (interfaces.Version, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.path, err)
	}
	return versionOf(data), nil
}

func (s *FileLedgerStore) writeLocked(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func versionOf(data []byte) interfaces.Version {
	sum := sha256.Sum256(data)
	return interfaces.Version(hex.EncodeToString(sum[:]))
}

var _ interfaces.LedgerStore = (*FileLedgerStore)(nil)
