package numbering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/rechnungstool/pkg/utils"
)

var (
	// ErrLedgerCorrupt marks a ledger file that could not be read or decoded.
	// It is logged and the ledger is treated as empty; callers never see it
	// from Update.
	ErrLedgerCorrupt = errors.New("numbering ledger unreadable")

	// ErrLockTimeout is returned when the ledger lock cannot be taken in time.
	ErrLockTimeout = utils.ErrLockTimeout
)

// Ledger maps an ISO calendar date to the last sequence issued on that day.
type Ledger map[string]int

// Clone returns an independent copy.
func (l Ledger) Clone() Ledger {
	c := make(Ledger, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}

// Store persists the ledger. Update runs fn on the current ledger while
// holding exclusive access and persists the mutated ledger if fn succeeds.
type Store interface {
	Update(ctx context.Context, fn func(Ledger) error) error
	Snapshot(ctx context.Context) (Ledger, error)
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps the ledger as an indented JSON object on disk. Every
// read-modify-write cycle holds an exclusive flock on a sidecar lock file and
// replaces the ledger atomically through a temp file and rename.
type FileStore struct {
	path        string
	lockTimeout time.Duration
	log         zerolog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLockTimeout bounds how long Update waits for the lock.
func WithLockTimeout(d time.Duration) FileStoreOption {
	return func(s *FileStore) { s.lockTimeout = d }
}

// WithLogger sets the logger used for corruption warnings.
func WithLogger(l zerolog.Logger) FileStoreOption {
	return func(s *FileStore) { s.log = l }
}

// NewFileStore returns a store for the ledger at path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		path:        path,
		lockTimeout: 5 * time.Second,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the ledger file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Update(ctx context.Context, fn func(Ledger) error) error {
	const op = "numbering.FileStore.Update"

	unlock, err := s.lock(ctx, true)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	ledger := s.load()
	if err := fn(ledger); err != nil {
		return err
	}

	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: encode ledger: %w", op, err)
	}
	if err := utils.WriteFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *FileStore) Snapshot(ctx context.Context) (Ledger, error) {
	unlock, err := s.lock(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("numbering.FileStore.Snapshot: %w", err)
	}
	defer unlock()
	return s.load(), nil
}

// load reads the ledger. A missing file is an empty ledger; an unreadable or
// undecodable file is logged and also treated as empty.
func (s *FileStore) load() Ledger {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Ledger{}
	}
	if err != nil {
		s.log.Warn().Err(fmt.Errorf("%w: %v", ErrLedgerCorrupt, err)).Str("path", s.path).
			Msg("starting from an empty ledger")
		return Ledger{}
	}

	ledger := Ledger{}
	if len(data) == 0 {
		return ledger
	}
	if err := json.Unmarshal(data, &ledger); err != nil {
		s.log.Warn().Err(fmt.Errorf("%w: %v", ErrLedgerCorrupt, err)).Str("path", s.path).
			Msg("starting from an empty ledger")
		return Ledger{}
	}
	if ledger == nil {
		ledger = Ledger{}
	}
	return ledger
}

func (s *FileStore) lock(ctx context.Context, exclusive bool) (func(), error) {
	unlock, err := utils.LockFile(ctx, s.path, s.lockTimeout, exclusive)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := unlock(); err != nil {
			s.log.Warn().Err(err).Msg("failed to release ledger lock")
		}
	}, nil
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore is an in-process store, used in tests and previews.
type MemoryStore struct {
	mu     sync.Mutex
	ledger Ledger
}

// NewMemoryStore returns a store seeded with a copy of initial.
func NewMemoryStore(initial Ledger) *MemoryStore {
	if initial == nil {
		initial = Ledger{}
	}
	return &MemoryStore{ledger: initial.Clone()}
}

func (m *MemoryStore) Update(ctx context.Context, fn func(Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.ledger.Clone()
	if err := fn(work); err != nil {
		return err
	}
	m.ledger = work
	return nil
}

func (m *MemoryStore) Snapshot(ctx context.Context) (Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Clone(), nil
}
