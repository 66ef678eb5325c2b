// Package loader fetches shelf collections into the entity store, reading
// through the shared cache.
package loader

import (
	"context"
	"strings"

	"github.com/shelfhub/shelfclient/pkg/cache"
	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/identity"
	"github.com/shelfhub/shelfclient/pkg/logger"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/permission"
	"github.com/shelfhub/shelfclient/pkg/remote"
	"github.com/shelfhub/shelfclient/pkg/store"
)

// EditorSource reports editor sets already known locally.
type EditorSource interface {
	Editors(shelfID string) ([]string, bool)
}

// Page is one slice of the recent feed. NextCursor is empty when the feed is
// exhausted.
type Page struct {
	Shelves    models.ShelfList
	NextCursor models.Timestamp
}

type Option func(*Loader)

func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		ld.log = l
	}
}

func WithEditors(src EditorSource) Option {
	return func(ld *Loader) {
		ld.editors = src
	}
}

// Loader moves remote collections into the store and keeps their permission
// records current.
type Loader struct {
	remote  remote.Service
	cache   *cache.Cache
	store   *store.Store
	caller  identity.Supplier
	editors EditorSource
	log     logger.Logger
}

func New(svc remote.Service, c *cache.Cache, st *store.Store, caller identity.Supplier, opts ...Option) *Loader {
	ld := &Loader{
		remote: svc,
		cache:  c,
		store:  st,
		caller: caller,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// LoadCollection replaces the profile collection of owner. A cached payload
// is used without calling the remote. On failure the store is left as it was.
func (ld *Loader) LoadCollection(ctx context.Context, owner string) error {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return constants.ErrEmptyIdentity
	}
	pctx := store.ProfileContext(owner)
	ticket := ld.store.Stamp(pctx)

	key := cache.ShelvesKey(owner)
	shelves, hit := cache.Lookup[models.ShelfList](ld.cache, key)
	if hit {
		ld.log.Debug("shelves cache hit", "identity", owner)
	} else {
		fetched, err := ld.remote.GetUserShelves(ctx, owner)
		if err != nil {
			ld.log.Warn("failed to load shelves", "identity", owner, "error", err)
			return remote.Wrap(connection.GetUserShelves.String(), err)
		}
		shelves = fetched
	}

	// The cache is written under the same commit so a stale response never
	// replaces a newer cached payload.
	applied, err := ld.store.Commit(pctx, ticket, store.ChangeOrder, func(s store.Snapshot) (store.Snapshot, error) {
		if !hit {
			ld.cache.Set(key, shelves.Clone())
		}
		return store.ReplaceCollection(s, pctx, shelves), nil
	})
	if err != nil {
		return err
	}
	if !applied {
		ld.log.Debug("discarded stale shelves", "identity", owner, "ticket", ticket)
		return nil
	}
	return ld.derive(pctx, shelves)
}

// LoadRecentPublicCollection loads one page of the recent feed. A query with
// a Before cursor appends to the feed; without one the feed is replaced.
func (ld *Loader) LoadRecentPublicCollection(ctx context.Context, q remote.RecentQuery) (Page, error) {
	if q.Limit <= 0 {
		q.Limit = constants.DefaultRecentLimit
	}
	ticket := ld.store.Stamp(store.RecentContext)

	key := cache.RecentKey(q.Limit, q.Before.String())
	shelves, hit := cache.Lookup[models.ShelfList](ld.cache, key)
	if !hit {
		fetched, err := ld.remote.GetRecentShelves(ctx, q)
		if err != nil {
			ld.log.Warn("failed to load recent shelves", "limit", q.Limit, "before", q.Before.String(), "error", err)
			return Page{}, remote.Wrap(connection.GetRecentShelves.String(), err)
		}
		shelves = fetched
	}

	apply := store.ReplaceCollection
	if !q.Before.IsZero() {
		apply = store.AppendCollection
	}
	applied, err := ld.store.Commit(store.RecentContext, ticket, store.ChangeOrder, func(s store.Snapshot) (store.Snapshot, error) {
		if !hit {
			ld.cache.Set(key, shelves.Clone())
		}
		return apply(s, store.RecentContext, shelves), nil
	})
	if err != nil {
		return Page{}, err
	}
	page := Page{Shelves: shelves.Clone()}
	if last, ok := shelves.Last(); ok && len(shelves) >= q.Limit {
		page.NextCursor = last.CreatedAt
	}
	if !applied {
		ld.log.Debug("discarded stale recent page", "ticket", ticket)
		return page, nil
	}
	return page, ld.derive(store.RecentContext, shelves)
}

// LoadShelf reads one shelf through the cache and upserts it into the store
// without touching any collection order.
func (ld *Loader) LoadShelf(ctx context.Context, shelfID string) (models.Shelf, error) {
	shelfID = strings.TrimSpace(shelfID)
	if shelfID == "" {
		return models.Shelf{}, constants.ErrEmptyShelfID
	}
	key := cache.ShelfKey(shelfID)
	shelf, hit := cache.Lookup[models.Shelf](ld.cache, key)
	if !hit {
		fetched, err := ld.remote.GetShelf(ctx, shelfID)
		if err != nil {
			ld.log.Warn("failed to load shelf", "shelf", shelfID, "error", err)
			return models.Shelf{}, remote.Wrap(connection.GetShelf.String(), err)
		}
		ld.cache.Set(key, fetched.Clone())
		shelf = fetched
	}
	if err := ld.store.Update("", store.ChangeEntities, func(s store.Snapshot) (store.Snapshot, error) {
		return store.UpsertShelf(s, shelf), nil
	}); err != nil {
		return models.Shelf{}, err
	}
	return shelf.Clone(), ld.derive("", models.ShelfList{shelf})
}

// Rederive recomputes permission records for every stored shelf, e.g. after
// the caller signed in or out.
func (ld *Loader) Rederive() error {
	return ld.derive("", ld.store.Snapshot().All())
}

func (ld *Loader) derive(ctx store.Context, shelves models.ShelfList) error {
	var editors permission.EditorsFunc
	if ld.editors != nil {
		editors = ld.editors.Editors
	}
	perms := permission.DeriveAll(shelves, ld.caller.Current(), editors)
	return ld.store.Update(ctx, store.ChangePermissions, func(s store.Snapshot) (store.Snapshot, error) {
		return store.WithPermissions(s, perms), nil
	})
}
