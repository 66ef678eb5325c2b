package models

import "strings"

// Shelf is an owned, orderable collection of items. ID, Owner and CreatedAt
// never change after creation.
type Shelf struct {
	ID          string
	Title       string
	Description *string
	Owner       string
	CreatedAt   Timestamp
	Items       []Item
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Shelf) Clone() Shelf {
	out := s
	if s.Description != nil {
		d := *s.Description
		out.Description = &d
	}
	if s.Items != nil {
		out.Items = append([]Item(nil), s.Items...)
	}
	return out
}

// ContainsShelf reports whether s is, or directly nests, the shelf id.
func (s Shelf) ContainsShelf(id string) bool {
	if s.ID == id {
		return true
	}
	for _, it := range s.Items {
		if ref, ok := it.Content.(ShelfRef); ok && ref.ShelfID == id {
			return true
		}
	}
	return false
}

// ShelfList is an ordered collection payload as fetched from the remote.
type ShelfList []Shelf

func (l ShelfList) Clone() ShelfList {
	if l == nil {
		return nil
	}
	out := make(ShelfList, len(l))
	for i, s := range l {
		out[i] = s.Clone()
	}
	return out
}

func (l ShelfList) IDs() []string {
	ids := make([]string, 0, len(l))
	for _, s := range l {
		ids = append(ids, s.ID)
	}
	return ids
}

func (l ShelfList) ContainsShelf(id string) bool {
	id = strings.TrimSpace(id)
	for _, s := range l {
		if s.ContainsShelf(id) {
			return true
		}
	}
	return false
}

// Last returns the final shelf, used as the pagination cursor source.
func (l ShelfList) Last() (Shelf, bool) {
	if len(l) == 0 {
		return Shelf{}, false
	}
	return l[len(l)-1], true
}
