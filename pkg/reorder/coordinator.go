// Package reorder applies profile shelf reorders optimistically and then
// reconciles with the remote, rolling back rejected orders.
package reorder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shelfhub/shelfclient/pkg/cache"
	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/logger"
	"github.com/shelfhub/shelfclient/pkg/remote"
	"github.com/shelfhub/shelfclient/pkg/store"
)

// Request moves ShelfID before or after ReferenceShelfID in the profile of
// Identity. When NewOrder is set it is the full target order; ShelfID may
// then be empty and the remote move is derived from the two orders.
type Request struct {
	ShelfID          string
	ReferenceShelfID string
	Before           bool
	Identity         string
	NewOrder         []string
}

// Outcome reports what the caller saw. Optimistic is the order applied before
// the remote answered, Confirmed the order after reconciliation. Drift is set
// when a confirmed order differs from the optimistic one.
type Outcome struct {
	Optimistic []string
	Confirmed  []string
	RolledBack bool
	Drift      bool
}

// Collections reloads a profile collection from cache or remote.
type Collections interface {
	LoadCollection(ctx context.Context, identity string) error
}

type Option func(*Coordinator)

func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// Coordinator runs reorders of profile collections. It is safe for concurrent use.
type Coordinator struct {
	remote remote.Service
	cache  *cache.Cache
	store  *store.Store
	loader Collections
	log    logger.Logger

	mu      sync.Mutex
	pending map[store.Context]int
}

func New(svc remote.Service, c *cache.Cache, st *store.Store, ld Collections, opts ...Option) *Coordinator {
	co := &Coordinator{
		remote:  svc,
		cache:   c,
		store:   st,
		loader:  ld,
		log:     logger.Nop(),
		pending: make(map[store.Context]int),
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// Reorder validates req, applies the new order locally, asks the remote to
// make the same move and reloads the collection whatever the answer. A
// rejected move is rolled back unless a newer reorder has been applied since.
// While another reorder of the same profile is still waiting on the remote,
// reconciliation is left to that one. Invalid requests are refused before
// anything is mutated.
func (c *Coordinator) Reorder(ctx context.Context, req Request) (Outcome, error) {
	owner := strings.TrimSpace(req.Identity)
	if owner == "" {
		return Outcome{}, constants.ErrEmptyIdentity
	}
	move := Move{
		ShelfID:          strings.TrimSpace(req.ShelfID),
		ReferenceShelfID: strings.TrimSpace(req.ReferenceShelfID),
		Before:           req.Before,
	}
	if len(req.NewOrder) == 0 && move.ShelfID == "" {
		return Outcome{}, constants.ErrEmptyShelfID
	}

	pctx := store.ProfileContext(owner)
	previous := c.store.Snapshot().Order(pctx)

	var target []string
	if len(req.NewOrder) > 0 {
		target = make([]string, 0, len(req.NewOrder))
		for _, id := range req.NewOrder {
			target = append(target, strings.TrimSpace(id))
		}
		switch {
		case !c.store.Snapshot().HasContext(pctx):
			return Outcome{}, fmt.Errorf("%w: profile %s is not loaded", constants.ErrUnknownShelf, owner)
		case len(target) != len(previous):
			return Outcome{}, fmt.Errorf("%w: got %d shelves, profile has %d", constants.ErrInvalidOrder, len(target), len(previous))
		}
		if move.ShelfID == "" {
			derived, changed := DeriveMove(previous, target)
			if !changed {
				return Outcome{Optimistic: target, Confirmed: previous}, nil
			}
			move = derived
		}
	} else {
		planned, err := store.PlanMove(previous, move.ShelfID, move.ReferenceShelfID, move.Before)
		if err != nil {
			return Outcome{}, err
		}
		target = planned
	}

	ticket := c.store.Stamp(pctx)
	if _, err := c.store.Commit(pctx, ticket, store.ChangeOrder, func(s store.Snapshot) (store.Snapshot, error) {
		return store.SetOrder(s, pctx, target)
	}); err != nil {
		return Outcome{}, err
	}
	c.track(pctx, 1)
	out := Outcome{Optimistic: slices.Clone(target)}
	c.log.Debug("applied optimistic order", "identity", owner, "shelf", move.ShelfID, "reference", move.ReferenceShelfID, "before", move.Before)

	remoteErr := c.remote.ReorderProfileShelf(ctx, move.ShelfID, move.ReferenceShelfID, move.Before)
	c.cache.InvalidateForPrincipal(owner)
	others := c.track(pctx, -1)

	if remoteErr != nil {
		remoteErr = remote.Wrap(connection.ReorderProfileShelf.String(), remoteErr)
		reverted, err := c.store.Revert(pctx, ticket, store.ChangeOrder, func(s store.Snapshot) (store.Snapshot, error) {
			return store.SetOrder(s, pctx, previous)
		})
		if err != nil {
			c.log.Error("failed to roll back order", "identity", owner, "error", err)
		}
		out.RolledBack = reverted
		c.log.Warn("reorder rejected", "identity", owner, "shelf", move.ShelfID, "rolled_back", reverted, "error", remoteErr)
	}

	var loadErr error
	if others > 0 {
		c.log.Debug("deferring reconciliation to pending reorder", "identity", owner, "pending", others)
	} else if loadErr = c.loader.LoadCollection(ctx, owner); loadErr != nil {
		c.log.Warn("reconciliation failed", "identity", owner, "error", loadErr)
	}
	out.Confirmed = c.store.Snapshot().Order(pctx)

	if remoteErr != nil {
		return out, errors.Join(remoteErr, loadErr)
	}
	if others == 0 && loadErr == nil && !slices.Equal(out.Confirmed, out.Optimistic) {
		out.Drift = true
		c.log.Warn("confirmed order differs from optimistic order", "identity", owner, "optimistic", out.Optimistic, "confirmed", out.Confirmed)
	}
	return out, loadErr
}

// track adjusts the count of reorders awaiting the remote for ctx and
// returns the new count.
func (c *Coordinator) track(ctx store.Context, delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[ctx] += delta
	n := c.pending[ctx]
	if n <= 0 {
		delete(c.pending, ctx)
	}
	return n
}
