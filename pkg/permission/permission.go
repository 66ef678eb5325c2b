// Package permission derives what the caller may do with a shelf from its
// owner and editor set. Derivation is pure; records are recomputed, never patched.
package permission

import (
	"strings"

	"github.com/shelfhub/shelfclient/pkg/models"
)

// Record is the caller-specific access view of one shelf.
type Record struct {
	IsOwner       bool
	HasEditAccess bool
}

// EditorsFunc returns the known editor set of a shelf and whether it is known.
type EditorsFunc func(shelfID string) ([]string, bool)

// Derive computes the record for caller. Identities are compared trimmed and
// an empty caller never owns or edits.
func Derive(shelf models.Shelf, caller string, editors []string) Record {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return Record{}
	}
	owner := strings.TrimSpace(shelf.Owner) == caller
	return Record{
		IsOwner:       owner,
		HasEditAccess: owner || isEditor(caller, editors),
	}
}

// DeriveAll recomputes records for every shelf. A nil editors func treats all
// editor sets as empty.
func DeriveAll(shelves []models.Shelf, caller string, editors EditorsFunc) map[string]Record {
	out := make(map[string]Record, len(shelves))
	for _, s := range shelves {
		var set []string
		if editors != nil {
			set, _ = editors(s.ID)
		}
		out[s.ID] = Derive(s, caller, set)
	}
	return out
}

func isEditor(caller string, editors []string) bool {
	for _, e := range editors {
		if strings.TrimSpace(e) == caller {
			return true
		}
	}
	return false
}
