// internal/database/store.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Observer receives store instrumentation events.
type Observer interface {
	ObserveOp(collection, op string, elapsed time.Duration, err error)
	ObserveRecovery(path string, cause error)
}

// Store is a document store persisted as a single JSON file. Every read
// loads the whole file and every mutation rewrites it; a mutex serialises
// all operations so read-modify-write cycles cannot interleave.
type Store struct {
	mu       sync.Mutex
	path     string
	now      func() time.Time
	newID    func() string
	log      *logrus.Entry
	observer Observer
	hooks    []func(Change)

	users     *Collection[User, *User]
	hosts     *HostCollection
	services  *ServiceCollection
	cats      *Collection[Category, *Category]
	templates *Collection[ServiceTemplate, *ServiceTemplate]
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger used for persistence events.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) { s.log = log }
}

// WithObserver attaches an instrumentation observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithChangeHook registers fn to run after every committed mutation.
func WithChangeHook(fn func(Change)) Option {
	return func(s *Store) { s.hooks = append(s.hooks, fn) }
}

// Open returns a store backed by path, writing the seed dataset if the file
// does not exist yet.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:  path,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
		log:   logrus.WithField("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.save(seedSnapshot(s.timestamp())); err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
	}

	s.users = &Collection[User, *User]{
		store: s,
		name:  UsersCollection,
		rows:  func(snap *Snapshot) *[]User { return &snap.Users },
		check: checkUser,
	}
	s.hosts = &HostCollection{&Collection[Host, *Host]{
		store: s,
		name:  HostsCollection,
		rows:  func(snap *Snapshot) *[]Host { return &snap.Hosts },
		check: checkHost,
	}}
	s.services = &ServiceCollection{&Collection[Service, *Service]{
		store: s,
		name:  ServicesCollection,
		rows:  func(snap *Snapshot) *[]Service { return &snap.Services },
		check: checkService,
	}}
	s.cats = &Collection[Category, *Category]{
		store: s,
		name:  CategoriesCollection,
		rows:  func(snap *Snapshot) *[]Category { return &snap.Categories },
	}
	s.templates = &Collection[ServiceTemplate, *ServiceTemplate]{
		store: s,
		name:  ServiceTemplatesCollection,
		rows:  func(snap *Snapshot) *[]ServiceTemplate { return &snap.ServiceTemplates },
		check: checkTemplate,
	}

	s.log.WithField("path", path).Info("Store initialized")
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Users() *Collection[User, *User] { return s.users }

func (s *Store) Hosts() *HostCollection { return s.hosts }

func (s *Store) Services() *ServiceCollection { return s.services }

func (s *Store) Categories() *Collection[Category, *Category] { return s.cats }

func (s *Store) ServiceTemplates() *Collection[ServiceTemplate, *ServiceTemplate] {
	return s.templates
}

// Close is a no-op; the file is never held open between operations.
func (s *Store) Close() error { return nil }

// Snapshot returns the current file contents, healing a corrupt file first.
func (s *Store) Snapshot(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.read(ctx, "*", "snapshot", func(snap *Snapshot) error {
		var err error
		data, err = json.MarshalIndent(snap, "", "  ")
		return err
	})
	return data, err
}

// Restore replaces the whole database with data.
func (s *Store) Restore(ctx context.Context, data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return s.write(ctx, "*", "restore", func(current *Snapshot) ([]Change, error) {
		*current = snap
		return []Change{{Collection: "*", Action: ActionRestore}}, nil
	})
}

// timestamp is the current time at the millisecond precision the file uses.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// nextTimestamp returns a timestamp strictly after prev.
func (s *Store) nextTimestamp(prev time.Time) time.Time {
	ts := s.timestamp()
	if !ts.After(prev) {
		ts = prev.Add(time.Millisecond)
	}
	return ts
}

func (s *Store) read(ctx context.Context, collection, op string, fn func(*Snapshot) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.observe(collection, op, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	return fn(snap)
}

func (s *Store) write(ctx context.Context, collection, op string, fn func(*Snapshot) ([]Change, error)) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.observe(collection, op, start, err) }()

	changes, err := s.commit(fn)
	if err != nil {
		return err
	}

	at := s.timestamp()
	for _, ch := range changes {
		if ch.At.IsZero() {
			ch.At = at
		}
		for _, hook := range s.hooks {
			hook(ch)
		}
	}
	return nil
}

func (s *Store) commit(fn func(*Snapshot) ([]Change, error)) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	changes, err := fn(snap)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}
	if err := s.save(snap); err != nil {
		return nil, err
	}
	return changes, nil
}

func (s *Store) observe(collection, op string, start time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveOp(collection, op, time.Since(start), err)
	}
}
