// Package editors tracks who may edit each shelf besides its owner and keeps
// the store's permission records in step with those sets.
package editors

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/shelfhub/shelfclient/pkg/cache"
	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/identity"
	"github.com/shelfhub/shelfclient/pkg/logger"
	"github.com/shelfhub/shelfclient/pkg/permission"
	"github.com/shelfhub/shelfclient/pkg/remote"
	"github.com/shelfhub/shelfclient/pkg/store"
)

// editorList is the cached payload under cache.EditorsKey.
type editorList []string

func (l editorList) Clone() editorList {
	return append(editorList{}, l...)
}

type Option func(*Registry)

func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// Registry tracks editor sets per shelf and the in-flight state of their fetches.
type Registry struct {
	remote remote.Service
	cache  *cache.Cache
	store  *store.Store
	caller identity.Supplier
	log    logger.Logger

	mu      sync.RWMutex
	sets    map[string][]string
	loading map[string]int
}

func New(svc remote.Service, c *cache.Cache, st *store.Store, caller identity.Supplier, opts ...Option) *Registry {
	r := &Registry{
		remote:  svc,
		cache:   c,
		store:   st,
		caller:  caller,
		log:     logger.Nop(),
		sets:    make(map[string][]string),
		loading: make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Editors returns the last known editor set of shelfID.
func (r *Registry) Editors(shelfID string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[shelfID]
	if !ok {
		return nil, false
	}
	return append([]string{}, set...), true
}

// IsLoading reports whether a list call for shelfID is in flight.
func (r *Registry) IsLoading(shelfID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading[shelfID] > 0
}

// ListEditors returns the editor set of shelfID, from cache when possible.
func (r *Registry) ListEditors(ctx context.Context, shelfID string) ([]string, error) {
	shelfID = strings.TrimSpace(shelfID)
	if shelfID == "" {
		return nil, constants.ErrEmptyShelfID
	}
	if cached, ok := cache.Lookup[editorList](r.cache, cache.EditorsKey(shelfID)); ok {
		r.remember(shelfID, cached)
		return []string(cached), r.rederive(shelfID)
	}
	return r.fetch(ctx, shelfID)
}

// Refresh fetches the editor set of shelfID from the remote, bypassing the cache.
func (r *Registry) Refresh(ctx context.Context, shelfID string) ([]string, error) {
	shelfID = strings.TrimSpace(shelfID)
	if shelfID == "" {
		return nil, constants.ErrEmptyShelfID
	}
	return r.fetch(ctx, shelfID)
}

func (r *Registry) AddEditor(ctx context.Context, shelfID, editor string) error {
	return r.mutate(ctx, connection.AddShelfEditor, shelfID, editor, r.remote.AddShelfEditor)
}

func (r *Registry) RemoveEditor(ctx context.Context, shelfID, editor string) error {
	return r.mutate(ctx, connection.RemoveShelfEditor, shelfID, editor, r.remote.RemoveShelfEditor)
}

func (r *Registry) mutate(ctx context.Context, op connection.RPCFunction, shelfID, editor string, call func(context.Context, string, string) error) error {
	shelfID = strings.TrimSpace(shelfID)
	editor = strings.TrimSpace(editor)
	if shelfID == "" {
		return constants.ErrEmptyShelfID
	}
	if editor == "" {
		return constants.ErrEmptyIdentity
	}
	if err := call(ctx, shelfID, editor); err != nil {
		r.log.Warn("editor change rejected", "op", op.String(), "shelf", shelfID, "editor", editor, "error", err)
		return remote.Wrap(op.String(), err)
	}

	r.cache.Invalidate(cache.EditorsKey(shelfID))
	r.cache.InvalidateForShelf(shelfID)

	_, listErr := r.fetch(ctx, shelfID)
	shelfErr := r.refetchShelf(ctx, shelfID)
	return errors.Join(listErr, shelfErr)
}

func (r *Registry) fetch(ctx context.Context, shelfID string) ([]string, error) {
	r.setLoading(shelfID, 1)
	set, err := r.remote.ListShelfEditors(ctx, shelfID)
	r.setLoading(shelfID, -1)
	if err != nil {
		r.log.Warn("failed to list editors", "shelf", shelfID, "error", err)
		return nil, remote.Wrap(connection.ListShelfEditors.String(), err)
	}

	normalized := make(editorList, 0, len(set))
	for _, e := range set {
		if e = strings.TrimSpace(e); e != "" {
			normalized = append(normalized, e)
		}
	}
	r.cache.Set(cache.EditorsKey(shelfID), normalized.Clone())
	r.remember(shelfID, normalized)
	return []string(normalized.Clone()), r.rederive(shelfID)
}

func (r *Registry) refetchShelf(ctx context.Context, shelfID string) error {
	shelf, err := r.remote.GetShelf(ctx, shelfID)
	if err != nil {
		r.log.Warn("failed to refetch shelf", "shelf", shelfID, "error", err)
		return remote.Wrap(connection.GetShelf.String(), err)
	}
	r.cache.Set(cache.ShelfKey(shelfID), shelf.Clone())
	if err := r.store.Update("", store.ChangeEntities, func(s store.Snapshot) (store.Snapshot, error) {
		return store.UpsertShelf(s, shelf), nil
	}); err != nil {
		return err
	}
	return r.rederive(shelfID)
}

// rederive recomputes the caller's record for shelfID if the shelf is loaded.
func (r *Registry) rederive(shelfID string) error {
	shelf, ok := r.store.Snapshot().Shelf(shelfID)
	if !ok {
		return nil
	}
	set, _ := r.Editors(shelfID)
	rec := permission.Derive(shelf, r.caller.Current(), set)
	return r.store.Update("", store.ChangePermissions, func(s store.Snapshot) (store.Snapshot, error) {
		return store.WithPermissions(s, map[string]permission.Record{shelfID: rec}), nil
	})
}

func (r *Registry) remember(shelfID string, set editorList) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[shelfID] = append([]string{}, set...)
}

func (r *Registry) setLoading(shelfID string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading[shelfID] += delta
	if r.loading[shelfID] <= 0 {
		delete(r.loading, shelfID)
	}
}
