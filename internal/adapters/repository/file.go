package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/okian/elovote/internal/atomicfile"
	model "github.com/okian/elovote/internal/domain/model"
	"github.com/okian/elovote/pkg/logger"
)

// BackendFileName labels metrics and logs for FileStore.
const BackendFileName = "file"

const fileFormatVersion = 1

type fileDocument struct {
	FormatVersion int          `json:"format_version"`
	Items         []model.Item `json:"items"`
}

// legacyEntry is the bare {name, elo} list kept by the browser version.
type legacyEntry struct {
	Name string  `json:"name"`
	Elo  float64 `json:"elo"`
}

// FileStore keeps items in a single JSON document on disk. Every change is
// written to a temp file and renamed over the document, so a failed write
// leaves the previous state in place. Writers hold an exclusive lock on
// path+".lock" and re-read the document under it, so several processes can
// share one file. Readers reload whenever the document changed on disk.
type FileStore struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	t      *table
	info   os.FileInfo
	loaded bool
	cfg    settings
	closed bool
}

// lockRetryDelay is how often a writer polls for the file lock.
const lockRetryDelay = 5 * time.Millisecond

// OpenFileStore loads path, or starts empty when it does not exist. A legacy
// {name, elo} list is converted and written back in the current format.
func OpenFileStore(ctx context.Context, path string, opts ...Option) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, unavailable(fmt.Errorf("create dir %s: %w", dir, err))
	}
	s := &FileStore{path: path, lock: flock.New(path + ".lock"), t: newTable(), cfg: applyOptions(opts)}
	if err := s.locked(ctx, func() error { return s.reloadLocked(ctx) }); err != nil {
		_ = s.lock.Close()
		return nil, err
	}
	return s, nil
}

// Name returns the backend name.
func (s *FileStore) Name() string { return BackendFileName }

// locked runs fn while holding the cross-process file lock.
func (s *FileStore) locked(ctx context.Context, fn func() error) error {
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return unavailable(fmt.Errorf("lock %s: %w", s.lock.Path(), err))
	}
	if !ok {
		return unavailable(fmt.Errorf("lock %s: not acquired", s.lock.Path()))
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

// read decodes the document. converted reports that items were given new ids
// and the document should be written back.
func (s *FileStore) read(ctx context.Context) (t *table, info os.FileInfo, converted bool, err error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return newTable(), nil, false, nil
	}
	if err != nil {
		return nil, nil, false, unavailable(fmt.Errorf("read %s: %w", s.path, err))
	}
	defer func() { _ = f.Close() }()

	if info, err = f.Stat(); err != nil {
		return nil, nil, false, unavailable(fmt.Errorf("stat %s: %w", s.path, err))
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, false, unavailable(fmt.Errorf("read %s: %w", s.path, err))
	}
	t, converted, err = s.decode(ctx, data)
	if err != nil {
		return nil, nil, false, err
	}
	return t, info, converted, nil
}

func (s *FileStore) decode(ctx context.Context, data []byte) (*table, bool, error) {
	t := newTable()
	if len(data) == 0 {
		return t, false, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err == nil {
		converted := false
		for _, it := range doc.Items {
			if it.ID == "" {
				it.ID = s.cfg.newID()
				converted = true
			}
			t.put(it)
		}
		return t, converted, nil
	}

	var legacy []legacyEntry
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, false, unavailable(fmt.Errorf("decode %s: %w", s.path, err))
	}
	now := s.cfg.now()
	for _, e := range legacy {
		if e.Name == "" {
			continue
		}
		t.put(model.Item{ID: s.cfg.newID(), Name: e.Name, Rating: e.Elo, Version: 1, UpdatedAt: now})
	}
	s.cfg.logger.Info(ctx, "imported legacy ratings list",
		logger.String("path", s.path),
		logger.Int("items", len(t.order)),
	)
	return t, true, nil
}

// reloadLocked re-reads the document unconditionally. The caller holds mu
// and the file lock.
func (s *FileStore) reloadLocked(ctx context.Context) error {
	t, info, converted, err := s.read(ctx)
	if err != nil {
		return err
	}
	if converted {
		return s.persistLocked(t)
	}
	s.t, s.info, s.loaded = t, info, true
	return nil
}

// refreshLocked reloads the document if it changed since it was last read.
// The caller holds mu.
func (s *FileStore) refreshLocked(ctx context.Context) error {
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		info = nil
	case err != nil:
		return unavailable(fmt.Errorf("stat %s: %w", s.path, err))
	}
	if s.loaded && sameDocument(s.info, info) {
		return nil
	}

	t, info, converted, err := s.read(ctx)
	if err != nil {
		return err
	}
	if converted {
		// New ids must be written once, by a lock holder, or every reader
		// would mint its own.
		return s.locked(ctx, func() error { return s.reloadLocked(ctx) })
	}
	s.t, s.info, s.loaded = t, info, true
	return nil
}

// persistLocked writes t and makes it the cached view. The caller holds mu
// and the file lock.
func (s *FileStore) persistLocked(t *table) error {
	data, err := json.MarshalIndent(fileDocument{FormatVersion: fileFormatVersion, Items: t.list()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := atomicfile.Write(s.path, data, 0o600); err != nil {
		return unavailable(err)
	}
	s.t = t
	info, err := os.Stat(s.path)
	if err != nil {
		s.info, s.loaded = nil, false
		return nil
	}
	s.info, s.loaded = info, true
	return nil
}

// sameDocument reports whether two stats describe the same write of the
// document. Every write renames a new file into place.
func sameDocument(a, b os.FileInfo) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return os.SameFile(a, b) && a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

// List returns all items in insertion order.
func (s *FileStore) List(ctx context.Context) (items []model.Item, err error) {
	defer func(start time.Time) { observe(BackendFileName, "list", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, unavailable(ErrClosed)
	}
	if err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return s.t.list(), nil
}

// Get returns one item.
func (s *FileStore) Get(ctx context.Context, id string) (it model.Item, err error) {
	defer func(start time.Time) { observe(BackendFileName, "get", start, err) }(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Item{}, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Item{}, unavailable(ErrClosed)
	}
	if err := s.refreshLocked(ctx); err != nil {
		return model.Item{}, err
	}
	return s.t.get(id)
}

// Commit re-reads the document under the file lock, checks versions against
// it, and writes the result.
func (s *FileStore) Commit(ctx context.Context, updates ...model.RatingUpdate) (out []model.Item, err error) {
	defer func(start time.Time) { observe(BackendFileName, "commit", start, err) }(time.Now())
	if err := validateUpdates(updates); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, unavailable(ErrClosed)
	}
	err = s.locked(ctx, func() error {
		if err := s.reloadLocked(ctx); err != nil {
			return err
		}
		if err := s.t.check(updates); err != nil {
			return err
		}
		next := s.t.clone()
		out = next.apply(updates, s.cfg.now())
		return s.persistLocked(next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Seed inserts names that are not present yet and persists the result.
func (s *FileStore) Seed(ctx context.Context, names []string, rating float64) (added []model.Item, err error) {
	defer func(start time.Time) { observe(BackendFileName, "seed", start, err) }(time.Now())
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, unavailable(ErrClosed)
	}
	err = s.locked(ctx, func() error {
		if err := s.reloadLocked(ctx); err != nil {
			return err
		}
		next := s.t.clone()
		added = next.seed(names, rating, s.cfg.now(), s.cfg.newID)
		if len(added) == 0 {
			return nil
		}
		return s.persistLocked(next)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Close marks the store closed and releases the lock file handle. The
// document is already on disk.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lock.Close()
}
