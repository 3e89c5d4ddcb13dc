// Package memory is an in-process document store with live watches. It backs
// STORE_DRIVER=memory for local development without GCP and the use-case tests.
package memory

import (
	"context"
	"sync"
	"time"

	"portfoliochat/internal/domain/entity"
	"portfoliochat/internal/domain/repository"
)

// CommitHook runs before a staged write is applied. Returning an error
// aborts the commit with nothing changed.
type CommitHook func(op string) error

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.hook = hook }
}

type Store struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
	messages      map[string]map[string]*entity.Message
	users         map[string]*entity.User
	reports       map[string]*entity.Report

	now      func() time.Time
	lastTime time.Time
	hook     CommitHook

	watchMu  sync.Mutex
	watchers map[int]*watcher
	nextID   int
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string]map[string]*entity.Message),
		users:         make(map[string]*entity.User),
		reports:       make(map[string]*entity.Report),
		now:           time.Now,
		watchers:      make(map[int]*watcher),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp plays the role of the server timestamp: strictly increasing, so
// messages in one conversation are totally ordered by createdAt. Callers hold mu.
func (s *Store) timestamp() time.Time {
	t := s.now().UTC()
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

// commit applies a staged write under the write lock, then wakes watchers.
func (s *Store) commit(op string, apply func() error) error {
	s.mu.Lock()
	if s.hook != nil {
		if err := s.hook(op); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	err := apply()
	s.mu.Unlock()
	if err == nil {
		s.notify()
	}
	return err
}

// PutUser seeds the read-only user directory.
func (s *Store) PutUser(user *entity.User) {
	s.mu.Lock()
	cp := *user
	s.users[user.UID] = &cp
	s.mu.Unlock()
}

// watcher re-reads its view whenever the store changes. Signals coalesce, so
// a slow consumer skips intermediate states but always sees the latest one.
type watcher struct {
	signal chan struct{}
}

func (s *Store) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, w := range s.watchers {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

func watch[T any](ctx context.Context, s *Store, read func() T, onChange func(T)) repository.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	listener := repository.NewListener(onChange, cancel)
	w := &watcher{signal: make(chan struct{}, 1)}

	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	s.watchMu.Unlock()

	w.signal <- struct{}{}

	go func() {
		defer func() {
			s.watchMu.Lock()
			delete(s.watchers, id)
			s.watchMu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.signal:
				s.mu.RLock()
				snapshot := read()
				s.mu.RUnlock()
				if !listener.Deliver(snapshot) {
					return
				}
			}
		}
	}()

	return listener.Unsubscribe()
}
