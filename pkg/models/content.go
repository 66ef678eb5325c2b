package models

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ContentKind names a SlotContent variant. It is also the variant's wire key.
type ContentKind string

const (
	KindNft      ContentKind = "nft"
	KindMarkdown ContentKind = "markdown"
	KindShelf    ContentKind = "shelf"
)

// SlotContent is what an Item points at. The set of variants is closed:
// NftRef, MarkdownRef and ShelfRef are the only implementations.
type SlotContent interface {
	Kind() ContentKind
	slotContent()
}

// NftRef references a token held in an external collection.
type NftRef struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"tokenId"`
}

// MarkdownRef carries inline markdown.
type MarkdownRef struct {
	Markdown string
}

// ShelfRef nests another shelf by id.
type ShelfRef struct {
	ShelfID string
}

func (NftRef) Kind() ContentKind      { return KindNft }
func (MarkdownRef) Kind() ContentKind { return KindMarkdown }
func (ShelfRef) Kind() ContentKind    { return KindShelf }

func (NftRef) slotContent()      {}
func (MarkdownRef) slotContent() {}
func (ShelfRef) slotContent()    {}

var ErrUnknownContent = errors.New("unknown slot content variant")

// Match dispatches on the variant. Every handler must be supplied, so adding a
// variant breaks every caller at compile time.
func Match[T any](c SlotContent, nft func(NftRef) T, md func(MarkdownRef) T, shelf func(ShelfRef) T) T {
	switch v := c.(type) {
	case NftRef:
		return nft(v)
	case MarkdownRef:
		return md(v)
	case ShelfRef:
		return shelf(v)
	}
	panic(fmt.Sprintf("models: unhandled slot content %T", c))
}

// Item is a slot inside a shelf. Its position is its index in Shelf.Items.
type Item struct {
	ID      uint64
	Content SlotContent
}

type wireItem struct {
	ID      uint64                     `json:"id"`
	Content map[string]cbor.RawMessage `json:"content"`
}

func (it Item) MarshalCBOR() ([]byte, error) {
	if it.Content == nil {
		return nil, fmt.Errorf("item %d: %w", it.ID, ErrUnknownContent)
	}
	var payload []byte
	var err error
	switch v := it.Content.(type) {
	case NftRef:
		payload, err = getCborEncoder().Marshal(v)
	case MarkdownRef:
		payload, err = getCborEncoder().Marshal(v.Markdown)
	case ShelfRef:
		payload, err = getCborEncoder().Marshal(v.ShelfID)
	default:
		return nil, fmt.Errorf("item %d: %w", it.ID, ErrUnknownContent)
	}
	if err != nil {
		return nil, err
	}
	return getCborEncoder().Marshal(wireItem{
		ID:      it.ID,
		Content: map[string]cbor.RawMessage{string(it.Content.Kind()): payload},
	})
}

func (it *Item) UnmarshalCBOR(data []byte) error {
	var w wireItem
	if err := getCborDecoder().Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.Content) != 1 {
		return fmt.Errorf("item %d: expected one content variant, got %d", w.ID, len(w.Content))
	}
	for key, raw := range w.Content {
		content, err := decodeContent(ContentKind(key), raw)
		if err != nil {
			return fmt.Errorf("item %d: %w", w.ID, err)
		}
		it.ID = w.ID
		it.Content = content
	}
	return nil
}

func decodeContent(kind ContentKind, raw cbor.RawMessage) (SlotContent, error) {
	dec := getCborDecoder()
	switch kind {
	case KindNft:
		var v NftRef
		if err := dec.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case KindMarkdown:
		var s string
		if err := dec.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return MarkdownRef{Markdown: s}, nil
	case KindShelf:
		var s string
		if err := dec.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return ShelfRef{ShelfID: s}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownContent, kind)
}
