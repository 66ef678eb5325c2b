package remote

import (
	"context"
	"fmt"

	"github.com/shelfhub/shelfclient/pkg/connection"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/models"
)

// RPCService implements Service over a connection.Connection.
type RPCService struct {
	conn connection.Connection
}

func NewRPCService(conn connection.Connection) *RPCService {
	return &RPCService{conn: conn}
}

var _ Service = (*RPCService)(nil)

// call sends method and unwraps the Outcome. Transport errors and Err
// payloads both come back as *Error.
func call[T any](ctx context.Context, conn connection.Connection, method connection.RPCFunction, params ...any) (T, error) {
	var zero T
	var res connection.RPCResponse[Outcome[T]]
	if err := connection.Send(conn, ctx, &res, method, params...); err != nil {
		return zero, Wrap(method.String(), err)
	}
	if res.Result == nil {
		return zero, Wrap(method.String(), constants.ErrInvalidResponse)
	}
	out := res.Result
	switch {
	case out.Err != nil:
		return zero, Wrap(method.String(), Rejected{Reason: *out.Err})
	case out.Ok == nil:
		return zero, Wrap(method.String(), fmt.Errorf("%w: outcome has neither ok nor err", constants.ErrInvalidResponse))
	}
	return *out.Ok, nil
}

func (s *RPCService) GetUserShelves(ctx context.Context, identity string) (models.ShelfList, error) {
	ws, err := call[[]WireShelf](ctx, s.conn, connection.GetUserShelves, identity)
	if err != nil {
		return nil, err
	}
	return normalizeAll(ws), nil
}

func (s *RPCService) GetRecentShelves(ctx context.Context, q RecentQuery) (models.ShelfList, error) {
	params, err := q.Params()
	if err != nil {
		return nil, err
	}
	ws, err := call[[]WireShelf](ctx, s.conn, connection.GetRecentShelves, params)
	if err != nil {
		return nil, err
	}
	return normalizeAll(ws), nil
}

func (s *RPCService) ReorderProfileShelf(ctx context.Context, shelfID, referenceShelfID string, before bool) error {
	// The reference is optional on the wire: an empty list means "none".
	ref := []string{}
	if referenceShelfID != "" {
		ref = append(ref, referenceShelfID)
	}
	_, err := call[Done](ctx, s.conn, connection.ReorderProfileShelf, shelfID, ref, before)
	return err
}

func (s *RPCService) GetShelf(ctx context.Context, shelfID string) (models.Shelf, error) {
	w, err := call[WireShelf](ctx, s.conn, connection.GetShelf, shelfID)
	if err != nil {
		return models.Shelf{}, err
	}
	return w.Normalize(), nil
}

func (s *RPCService) ListShelfEditors(ctx context.Context, shelfID string) ([]string, error) {
	ps, err := call[[]models.Principal](ctx, s.conn, connection.ListShelfEditors, shelfID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if p != "" {
			out = append(out, p.String())
		}
	}
	return out, nil
}

func (s *RPCService) AddShelfEditor(ctx context.Context, shelfID, identity string) error {
	_, err := call[Done](ctx, s.conn, connection.AddShelfEditor, shelfID, identity)
	return err
}

func (s *RPCService) RemoveShelfEditor(ctx context.Context, shelfID, identity string) error {
	_, err := call[Done](ctx, s.conn, connection.RemoveShelfEditor, shelfID, identity)
	return err
}
