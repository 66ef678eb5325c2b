package cache

import (
	"strconv"
	"strings"
)

// Kind partitions the key space.
type Kind string

const (
	KindShelves Kind = "shelves" // a principal's profile collection
	KindRecent  Kind = "recent"  // a page of recent public shelves
	KindEditors Kind = "editors" // a shelf's editor identities
	KindShelf   Kind = "shelf"   // a single shelf
)

// collection reports whether values of this kind hold several shelves.
func (k Kind) collection() bool {
	return k == KindShelves || k == KindRecent
}

// Key addresses one entry. Scope is the identity or shelf id the entry belongs to.
type Key struct {
	Kind  Kind
	Scope string
	Extra string
}

func ShelvesKey(identity string) Key {
	return Key{Kind: KindShelves, Scope: strings.TrimSpace(identity)}
}

func EditorsKey(shelfID string) Key {
	return Key{Kind: KindEditors, Scope: strings.TrimSpace(shelfID)}
}

func ShelfKey(shelfID string) Key {
	return Key{Kind: KindShelf, Scope: strings.TrimSpace(shelfID)}
}

// RecentKey identifies one page. An empty cursor is the first page.
func RecentKey(limit int, cursor string) Key {
	return Key{Kind: KindRecent, Extra: strings.Join([]string{strconv.Itoa(limit), cursor}, ":")}
}

// String renders kind:scope[:extra], e.g. "shelves:u1" or "recent::20:".
func (k Key) String() string {
	s := string(k.Kind) + ":" + k.Scope
	if k.Extra != "" {
		s += ":" + k.Extra
	}
	return s
}
