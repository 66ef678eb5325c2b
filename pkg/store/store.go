package store

import (
	"sync"

	"github.com/shelfhub/shelfclient/pkg/logger"
)

type ChangeKind string

const (
	ChangeEntities    ChangeKind = "entities"
	ChangeOrder       ChangeKind = "order"
	ChangePermissions ChangeKind = "permissions"
	ChangeCleared     ChangeKind = "cleared"
)

// Change is published after every applied mutation.
type Change struct {
	Context Context
	Kind    ChangeKind
}

type Option func(*Store)

func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithChangeBuffer sizes the Changes channel. Changes are dropped when it is full.
func WithChangeBuffer(n int) Option {
	return func(s *Store) {
		s.changes = make(chan Change, n)
	}
}

// Store owns the current Snapshot. Each mutation is one atomic swap.
//
// Writers that race for the same context take a ticket with Stamp first and
// apply with Commit; a result whose ticket is older than the last committed
// one is discarded.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	issued    map[Context]uint64
	committed map[Context]uint64
	changes   chan Change
	log       logger.Logger
}

func New(opts ...Option) *Store {
	s := &Store{
		issued:    make(map[Context]uint64),
		committed: make(map[Context]uint64),
		changes:   make(chan Change, 64),
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state. It stays valid after later mutations.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) Changes() <-chan Change {
	return s.changes
}

// Stamp issues the next ticket for ctx.
func (s *Store) Stamp(ctx Context) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[ctx]++
	return s.issued[ctx]
}

// Commit applies fn when ticket is newer than the last ticket committed for
// ctx. It reports whether fn was applied; an error from fn leaves the store
// unchanged and does not consume the ticket.
func (s *Store) Commit(ctx Context, ticket uint64, kind ChangeKind, fn func(Snapshot) (Snapshot, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket <= s.committed[ctx] {
		s.log.Debug("discarding stale write", "context", ctx.String(), "ticket", ticket, "committed", s.committed[ctx])
		return false, nil
	}
	next, err := fn(s.snap)
	if err != nil {
		return false, err
	}
	s.snap = next
	s.committed[ctx] = ticket
	s.emit(Change{Context: ctx, Kind: kind})
	return true, nil
}

// Revert applies fn under a fresh ticket, but only while prior is still the
// last committed ticket for ctx.
func (s *Store) Revert(ctx Context, prior uint64, kind ChangeKind, fn func(Snapshot) (Snapshot, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed[ctx] != prior {
		return false, nil
	}
	next, err := fn(s.snap)
	if err != nil {
		return false, err
	}
	s.issued[ctx]++
	s.snap = next
	s.committed[ctx] = s.issued[ctx]
	s.emit(Change{Context: ctx, Kind: kind})
	return true, nil
}

// Update applies fn without ticket ordering, for writes that do not race on
// a context order such as entity upserts and permission records.
func (s *Store) Update(ctx Context, kind ChangeKind, fn func(Snapshot) (Snapshot, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.snap)
	if err != nil {
		return err
	}
	s.snap = next
	s.emit(Change{Context: ctx, Kind: kind})
	return nil
}

// Clear drops ctx and any entity only it referenced. Outstanding tickets for
// ctx become stale.
func (s *Store) Clear(ctx Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = ClearContext(s.snap, ctx)
	s.issued[ctx]++
	s.committed[ctx] = s.issued[ctx]
	s.emit(Change{Context: ctx, Kind: ChangeCleared})
}

func (s *Store) emit(c Change) {
	select {
	case s.changes <- c:
	default:
	}
}
