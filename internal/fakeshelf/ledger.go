// Package fakeshelf is an in-memory shelf ledger for tests. Ledger implements
// remote.Service directly; Server exposes the same ledger over the RPC
// protocol on HTTP and WebSocket.
//
// Calls can be stubbed per method to fail, to be delayed, or to block until
// released, which is how tests observe optimistic state while a remote call
// is still in flight.
package fakeshelf

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/remote"
	"github.com/shelfhub/shelfclient/pkg/store"
)

// Stub changes how calls of one method behave.
type Stub struct {
	// Reason rejects the call with this failure payload when non-empty.
	Reason string
	// Delay is waited before the call is served.
	Delay time.Duration
	// Gate blocks the call until it is closed or the caller gives up.
	Gate chan struct{}
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	shelves  map[string]models.Shelf
	profiles map[string][]string
	editors  map[string][]string
	stubs    map[connection.RPCFunction]Stub
	calls    map[connection.RPCFunction]int
	lastCall map[connection.RPCFunction][]any
	clock    int64
}

var _ remote.Service = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{
		shelves:  make(map[string]models.Shelf),
		profiles: make(map[string][]string),
		editors:  make(map[string][]string),
		stubs:    make(map[connection.RPCFunction]Stub),
		calls:    make(map[connection.RPCFunction]int),
		lastCall: make(map[connection.RPCFunction][]any),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano(),
	}
}

// Seed appends shelves to owner's profile. Missing owners and creation
// times are filled in; each seeded shelf is newer than the previous one.
func (l *Ledger) Seed(owner string, shelves ...models.Shelf) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range shelves {
		if s.Owner == "" {
			s.Owner = owner
		}
		if s.CreatedAt.IsZero() {
			l.clock += int64(time.Second)
			s.CreatedAt = models.TimestampFromBig(big.NewInt(l.clock))
		}
		if _, exists := l.shelves[s.ID]; !exists {
			l.profiles[owner] = append(l.profiles[owner], s.ID)
		}
		l.shelves[s.ID] = s.Clone()
	}
}

// SetEditors replaces the editor set of shelfID.
func (l *Ledger) SetEditors(shelfID string, editors ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editors[shelfID] = append([]string{}, editors...)
}

// SetOrder overwrites owner's profile order, simulating a change made elsewhere.
func (l *Ledger) SetOrder(owner string, order ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.profiles[owner] = append([]string{}, order...)
}

func (l *Ledger) Order(owner string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.profiles[owner]...)
}

func (l *Ledger) Stub(method connection.RPCFunction, stub Stub) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stubs[method] = stub
}

// Fail rejects every call of method with reason until Reset.
func (l *Ledger) Fail(method connection.RPCFunction, reason string) {
	l.Stub(method, Stub{Reason: reason})
}

// Hold blocks calls of method until the returned release func is called.
func (l *Ledger) Hold(method connection.RPCFunction) (release func()) {
	gate := make(chan struct{})
	l.mu.Lock()
	stub := l.stubs[method]
	stub.Gate = gate
	l.stubs[method] = stub
	l.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

func (l *Ledger) Reset(method connection.RPCFunction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.stubs, method)
}

func (l *Ledger) Calls(method connection.RPCFunction) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// LastCall returns the arguments of the most recent call of method.
func (l *Ledger) LastCall(method connection.RPCFunction) []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]any{}, l.lastCall[method]...)
}

func (l *Ledger) enter(ctx context.Context, method connection.RPCFunction, args ...any) error {
	l.mu.Lock()
	l.calls[method]++
	l.lastCall[method] = args
	stub := l.stubs[method]
	l.mu.Unlock()

	if stub.Gate != nil {
		select {
		case <-stub.Gate:
		case <-ctx.Done():
			return &remote.Error{Op: method.String(), Err: ctx.Err()}
		}
	}
	if stub.Delay > 0 {
		t := time.NewTimer(stub.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return &remote.Error{Op: method.String(), Err: ctx.Err()}
		}
	}
	if stub.Reason != "" {
		return &remote.Error{Op: method.String(), Err: remote.Rejected{Reason: stub.Reason}}
	}
	return nil
}

func reject(method connection.RPCFunction, format string, args ...any) error {
	return &remote.Error{Op: method.String(), Err: remote.Rejected{Reason: fmt.Sprintf(format, args...)}}
}

func (l *Ledger) GetUserShelves(ctx context.Context, identity string) (models.ShelfList, error) {
	if err := l.enter(ctx, connection.GetUserShelves, identity); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.profiles[strings.TrimSpace(identity)]
	out := make(models.ShelfList, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.shelves[id].Clone())
	}
	return out, nil
}

func (l *Ledger) GetRecentShelves(ctx context.Context, q remote.RecentQuery) (models.ShelfList, error) {
	if err := l.enter(ctx, connection.GetRecentShelves, q); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	all := make(models.ShelfList, 0, len(l.shelves))
	for _, s := range l.shelves {
		if q.Before.IsZero() || s.CreatedAt.Compare(q.Before) < 0 {
			all = append(all, s.Clone())
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if c := all[i].CreatedAt.Compare(all[j].CreatedAt); c != 0 {
			return c > 0
		}
		return all[i].ID < all[j].ID
	})
	if q.Limit > 0 && len(all) > q.Limit {
		all = all[:q.Limit]
	}
	return all, nil
}

// ReorderProfileShelf moves shelfID within its owner's profile.
func (l *Ledger) ReorderProfileShelf(ctx context.Context, shelfID, referenceShelfID string, before bool) error {
	if err := l.enter(ctx, connection.ReorderProfileShelf, shelfID, referenceShelfID, before); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.shelves[shelfID]
	if !ok {
		return reject(connection.ReorderProfileShelf, "shelf %s not found", shelfID)
	}
	order, err := store.PlanMove(l.profiles[s.Owner], shelfID, referenceShelfID, before)
	if err != nil {
		return reject(connection.ReorderProfileShelf, "%v", err)
	}
	l.profiles[s.Owner] = order
	return nil
}

func (l *Ledger) GetShelf(ctx context.Context, shelfID string) (models.Shelf, error) {
	if err := l.enter(ctx, connection.GetShelf, shelfID); err != nil {
		return models.Shelf{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.shelves[shelfID]
	if !ok {
		return models.Shelf{}, reject(connection.GetShelf, "shelf %s not found", shelfID)
	}
	return s.Clone(), nil
}

func (l *Ledger) ListShelfEditors(ctx context.Context, shelfID string) ([]string, error) {
	if err := l.enter(ctx, connection.ListShelfEditors, shelfID); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.shelves[shelfID]; !ok {
		return nil, reject(connection.ListShelfEditors, "shelf %s not found", shelfID)
	}
	return append([]string{}, l.editors[shelfID]...), nil
}

func (l *Ledger) AddShelfEditor(ctx context.Context, shelfID, identity string) error {
	if err := l.enter(ctx, connection.AddShelfEditor, shelfID, identity); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.shelves[shelfID]; !ok {
		return reject(connection.AddShelfEditor, "shelf %s not found", shelfID)
	}
	for _, e := range l.editors[shelfID] {
		if e == identity {
			return nil
		}
	}
	l.editors[shelfID] = append(l.editors[shelfID], identity)
	return nil
}

func (l *Ledger) RemoveShelfEditor(ctx context.Context, shelfID, identity string) error {
	if err := l.enter(ctx, connection.RemoveShelfEditor, shelfID, identity); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.shelves[shelfID]; !ok {
		return reject(connection.RemoveShelfEditor, "shelf %s not found", shelfID)
	}
	kept := l.editors[shelfID][:0:0]
	for _, e := range l.editors[shelfID] {
		if e != identity {
			kept = append(kept, e)
		}
	}
	l.editors[shelfID] = kept
	return nil
}
