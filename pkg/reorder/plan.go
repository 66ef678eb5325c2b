package reorder

import (
	"slices"

	"github.com/shelfhub/shelfclient/pkg/store"
)

// Move is a single relative move as the remote understands it.
type Move struct {
	ShelfID          string
	ReferenceShelfID string
	Before           bool
}

// DeriveMove picks one remote move for a full target order. At the first
// index where the orders diverge, either the shelf now there was moved up,
// or the shelf that used to be there was moved down. The candidate that
// reproduces next exactly wins, moving up first; when neither does, the
// move-up candidate is used so the remote at least agrees on the head of the
// list up to that index. ok is false when no single move applies: the
// orders are identical or one is a prefix of the other. Callers check that
// both orders hold the same shelves.
func DeriveMove(prev, next []string) (m Move, ok bool) {
	i := 0
	for i < len(prev) && i < len(next) && prev[i] == next[i] {
		i++
	}
	if i == len(prev) || i == len(next) {
		return Move{}, false
	}

	up := Move{ShelfID: next[i], ReferenceShelfID: prev[i], Before: true}
	if reproduces(prev, next, up) {
		return up, true
	}
	if k := slices.Index(next, prev[i]); k > 0 {
		down := Move{ShelfID: prev[i], ReferenceShelfID: next[k-1]}
		if reproduces(prev, next, down) {
			return down, true
		}
	}
	return up, true
}

func reproduces(prev, next []string, m Move) bool {
	got, err := store.PlanMove(prev, m.ShelfID, m.ReferenceShelfID, m.Before)
	return err == nil && slices.Equal(got, next)
}
