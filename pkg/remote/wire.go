package remote

import (
	"math/big"

	"github.com/shelfhub/shelfclient/pkg/models"
)

// Outcome is the discriminated result every service method returns:
// exactly one of Ok and Err is set.
type Outcome[T any] struct {
	Ok  *T      `json:"ok,omitempty"`
	Err *string `json:"err,omitempty"`
}

// Done is the Ok payload of mutations that return nothing.
type Done struct{}

// WireShelf is the shelf as encoded by the service: timestamps are big
// integers and the owner may be a string or an identity object.
type WireShelf struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Owner       models.Principal `json:"owner"`
	CreatedAt   *big.Int         `json:"createdAt"`
	Items       []models.Item    `json:"items"`
}

// Normalize converts to the client model: decimal-string timestamp, plain owner string.
func (w WireShelf) Normalize() models.Shelf {
	return models.Shelf{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Owner:       w.Owner.String(),
		CreatedAt:   models.TimestampFromBig(w.CreatedAt),
		Items:       w.Items,
	}
}

// ToWire is the inverse of Normalize; an unparsable CreatedAt encodes as absent.
func ToWire(s models.Shelf) WireShelf {
	created, _ := s.CreatedAt.Big()
	return WireShelf{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Owner:       models.Principal(s.Owner),
		CreatedAt:   created,
		Items:       s.Items,
	}
}

func normalizeAll(ws []WireShelf) models.ShelfList {
	out := make(models.ShelfList, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Normalize())
	}
	return out
}

// RecentParams is the wire form of RecentQuery. Absent fields mean "server default".
type RecentParams struct {
	Limit  *uint64  `json:"limit,omitempty"`
	Before *big.Int `json:"before,omitempty"`
}

func (q RecentQuery) Params() (RecentParams, error) {
	var p RecentParams
	if q.Limit > 0 {
		limit := uint64(q.Limit)
		p.Limit = &limit
	}
	before, err := q.Before.Big()
	if err != nil {
		return RecentParams{}, err
	}
	p.Before = before
	return p, nil
}

func (p RecentParams) Query() RecentQuery {
	var q RecentQuery
	if p.Limit != nil {
		q.Limit = int(*p.Limit)
	}
	q.Before = models.TimestampFromBig(p.Before)
	return q
}
