package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"worldip/internal/fileutil"
)

const lockRetryDelay = 25 * time.Millisecond

// Store reads and writes the session file.
type Store struct {
	path string
	lock *flock.Flock
	now  func() time.Time
}

// NewStore returns a store for the session file at path. The lock file sits
// next to it.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Save validates id and replaces the stored session with it. SignedInAt
// defaults to now and the username to GenerateUsername.
func (s *Store) Save(ctx context.Context, id Identity) (Identity, error) {
	if err := id.normalize(); err != nil {
		return Identity{}, fmt.Errorf("session: %w", err)
	}
	if id.SignedInAt.IsZero() {
		id.SignedInAt = s.now().Truncate(time.Second)
	}
	data, err := toml.Marshal(id)
	if err != nil {
		return Identity{}, fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return Identity{}, fmt.Errorf("session: create dir: %w", err)
	}

	unlock, err := s.acquire(ctx, false)
	if err != nil {
		return Identity{}, err
	}
	defer unlock()

	if err := fileutil.WriteFileAtomic(s.path, data, 0o600, 0o700); err != nil {
		return Identity{}, fmt.Errorf("session: %w", err)
	}
	return id, nil
}

// Load returns the stored identity, or ErrNotSignedIn when there is none.
func (s *Store) Load(ctx context.Context) (Identity, error) {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, fs.ErrNotExist) {
		return Identity{}, ErrNotSignedIn
	}
	unlock, err := s.acquire(ctx, true)
	if err != nil {
		return Identity{}, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Identity{}, ErrNotSignedIn
	}
	if err != nil {
		return Identity{}, fmt.Errorf("session: read: %w", err)
	}
	var id Identity
	if err := toml.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("session: decode %s: %w", s.path, err)
	}
	if id.Address == "" {
		return Identity{}, ErrNotSignedIn
	}
	if err := id.normalize(); err != nil {
		return Identity{}, fmt.Errorf("session: %s: %w", s.path, err)
	}
	return id, nil
}

// Clear removes the stored session. Clearing when signed out is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	unlock, err := s.acquire(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove: %w", err)
	}
	return nil
}

func (s *Store) acquire(ctx context.Context, shared bool) (func(), error) {
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = s.lock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = s.lock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("session: acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("session: lock held by another process")
	}
	return func() {
		_ = s.lock.Unlock()
	}, nil
}
