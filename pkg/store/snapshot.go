// Package store is the normalized holder of shelf entities and the ordered
// id lists of each collection context.
//
// A Snapshot is never mutated in place. The functions in this package take a
// snapshot and return a new one; Store swaps the current snapshot atomically.
package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/permission"
)

// Context names an ordered collection view.
type Context string

// RecentContext holds the public feed of recently created shelves.
const RecentContext Context = "recent"

// ProfileContext is the collection owned by identity.
func ProfileContext(identity string) Context {
	return Context("profile:" + strings.TrimSpace(identity))
}

func (c Context) String() string {
	return string(c)
}

// Snapshot is an immutable view of shelves, collection orders and permission
// records. Transitions return a new Snapshot.
type Snapshot struct {
	shelves map[string]models.Shelf
	orders  map[Context][]string
	perms   map[string]permission.Record
}

func (s Snapshot) Shelf(id string) (models.Shelf, bool) {
	sh, ok := s.shelves[id]
	if !ok {
		return models.Shelf{}, false
	}
	return sh.Clone(), true
}

// Order returns a copy of the id list of ctx, nil when the context is unknown.
func (s Snapshot) Order(ctx Context) []string {
	o, ok := s.orders[ctx]
	if !ok {
		return nil
	}
	return append([]string{}, o...)
}

// Shelves resolves the order of ctx into entities.
func (s Snapshot) Shelves(ctx Context) models.ShelfList {
	o := s.orders[ctx]
	out := make(models.ShelfList, 0, len(o))
	for _, id := range o {
		out = append(out, s.shelves[id].Clone())
	}
	return out
}

// All returns every stored entity ordered by id.
func (s Snapshot) All() models.ShelfList {
	ids := make([]string, 0, len(s.shelves))
	for id := range s.shelves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make(models.ShelfList, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.shelves[id].Clone())
	}
	return out
}

func (s Snapshot) Permission(id string) (permission.Record, bool) {
	r, ok := s.perms[id]
	return r, ok
}

func (s Snapshot) HasContext(ctx Context) bool {
	_, ok := s.orders[ctx]
	return ok
}

func (s Snapshot) Len() int {
	return len(s.shelves)
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		shelves: make(map[string]models.Shelf, len(s.shelves)),
		orders:  make(map[Context][]string, len(s.orders)),
		perms:   make(map[string]permission.Record, len(s.perms)),
	}
	for k, v := range s.shelves {
		out.shelves[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.perms {
		out.perms[k] = v
	}
	return out
}

// UpsertShelf supersedes the stored entity with the same id.
func UpsertShelf(s Snapshot, shelf models.Shelf) Snapshot {
	out := s.clone()
	out.shelves[shelf.ID] = shelf.Clone()
	return out
}

// ReplaceCollection makes shelves the whole content of ctx. Duplicate ids keep
// their first position.
func ReplaceCollection(s Snapshot, ctx Context, shelves models.ShelfList) Snapshot {
	out := s.clone()
	order := make([]string, 0, len(shelves))
	seen := make(map[string]struct{}, len(shelves))
	for _, sh := range shelves {
		out.shelves[sh.ID] = sh.Clone()
		if _, dup := seen[sh.ID]; dup {
			continue
		}
		seen[sh.ID] = struct{}{}
		order = append(order, sh.ID)
	}
	out.orders[ctx] = order
	return out
}

// AppendCollection adds shelves to the end of ctx, skipping ids already listed.
func AppendCollection(s Snapshot, ctx Context, shelves models.ShelfList) Snapshot {
	out := s.clone()
	prev := out.orders[ctx]
	order := make([]string, len(prev), len(prev)+len(shelves))
	copy(order, prev)
	seen := make(map[string]struct{}, len(order)+len(shelves))
	for _, id := range order {
		seen[id] = struct{}{}
	}
	for _, sh := range shelves {
		out.shelves[sh.ID] = sh.Clone()
		if _, dup := seen[sh.ID]; dup {
			continue
		}
		seen[sh.ID] = struct{}{}
		order = append(order, sh.ID)
	}
	out.orders[ctx] = order
	return out
}

// SetOrder replaces the order of ctx with a permutation of its current ids.
func SetOrder(s Snapshot, ctx Context, order []string) (Snapshot, error) {
	cur := s.orders[ctx]
	for _, id := range order {
		if _, ok := s.shelves[id]; !ok {
			return s, fmt.Errorf("%w: %s", constants.ErrUnknownShelf, id)
		}
	}
	if !samePermutation(cur, order) {
		return s, fmt.Errorf("%w: %s", constants.ErrInvalidOrder, ctx)
	}
	out := s.clone()
	out.orders[ctx] = append([]string{}, order...)
	return out, nil
}

// MoveRelative moves shelfID directly before or after referenceID within ctx.
// An empty reference moves to the front when before is set, else to the end.
func MoveRelative(s Snapshot, ctx Context, shelfID, referenceID string, before bool) (Snapshot, error) {
	order, err := PlanMove(s.orders[ctx], shelfID, referenceID, before)
	if err != nil {
		return s, err
	}
	out := s.clone()
	out.orders[ctx] = order
	return out, nil
}

// PlanMove returns a new order with shelfID relocated relative to referenceID.
func PlanMove(order []string, shelfID, referenceID string, before bool) ([]string, error) {
	from := indexOf(order, shelfID)
	if from < 0 {
		return nil, fmt.Errorf("%w: %s", constants.ErrUnknownShelf, shelfID)
	}
	if referenceID == shelfID {
		return append([]string{}, order...), nil
	}

	rest := make([]string, 0, len(order))
	rest = append(rest, order[:from]...)
	rest = append(rest, order[from+1:]...)

	var at int
	switch {
	case referenceID == "" && before:
		at = 0
	case referenceID == "":
		at = len(rest)
	default:
		at = indexOf(rest, referenceID)
		if at < 0 {
			return nil, fmt.Errorf("%w: %s", constants.ErrUnknownShelf, referenceID)
		}
		if !before {
			at++
		}
	}

	out := make([]string, 0, len(order))
	out = append(out, rest[:at]...)
	out = append(out, shelfID)
	out = append(out, rest[at:]...)
	return out, nil
}

// WithPermissions supersedes the records of every id in perms.
func WithPermissions(s Snapshot, perms map[string]permission.Record) Snapshot {
	out := s.clone()
	for id, r := range perms {
		out.perms[id] = r
	}
	return out
}

// ClearContext drops ctx and evicts entities no other context still lists.
func ClearContext(s Snapshot, ctx Context) Snapshot {
	if _, ok := s.orders[ctx]; !ok {
		return s
	}
	out := s.clone()
	dropped := out.orders[ctx]
	delete(out.orders, ctx)

	referenced := make(map[string]struct{})
	for _, o := range out.orders {
		for _, id := range o {
			referenced[id] = struct{}{}
		}
	}
	for _, id := range dropped {
		if _, ok := referenced[id]; ok {
			continue
		}
		delete(out.shelves, id)
		delete(out.perms, id)
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}
