// Package remote is the contract between the client core and the shelf
// ledger service, plus an RPC implementation of it.
package remote

import (
	"context"

	"github.com/shelfhub/shelfclient/pkg/models"
)

// Service is everything the client core asks of the remote. Every method
// either succeeds or returns an error matching constants.ErrRemoteFailure.
type Service interface {
	GetUserShelves(ctx context.Context, identity string) (models.ShelfList, error)
	GetRecentShelves(ctx context.Context, q RecentQuery) (models.ShelfList, error)
	ReorderProfileShelf(ctx context.Context, shelfID, referenceShelfID string, before bool) error
	GetShelf(ctx context.Context, shelfID string) (models.Shelf, error)
	ListShelfEditors(ctx context.Context, shelfID string) ([]string, error)
	AddShelfEditor(ctx context.Context, shelfID, identity string) error
	RemoveShelfEditor(ctx context.Context, shelfID, identity string) error
}

// RecentQuery pages through public shelves, newest first. Before is the
// CreatedAt of the last shelf of the previous page.
type RecentQuery struct {
	Limit  int
	Before models.Timestamp
}
