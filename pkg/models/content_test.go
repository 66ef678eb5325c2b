package models

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemDecodesEveryVariant(t *testing.T) {
	cases := []struct {
		name    string
		content map[string]any
		want    SlotContent
	}{
		{
			name:    "nft",
			content: map[string]any{"nft": map[string]any{"collection": "punks", "tokenId": uint64(7)}},
			want:    NftRef{Collection: "punks", TokenID: 7},
		},
		{
			name:    "markdown",
			content: map[string]any{"markdown": "# hello"},
			want:    MarkdownRef{Markdown: "# hello"},
		},
		{
			name:    "shelf",
			content: map[string]any{"shelf": "s9"},
			want:    ShelfRef{ShelfID: "s9"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := cbor.Marshal(map[string]any{"id": uint64(3), "content": tc.content})
			require.NoError(t, err)

			var it Item
			require.NoError(t, CborUnmarshaler{}.Unmarshal(data, &it))
			assert.Equal(t, uint64(3), it.ID)
			assert.Equal(t, tc.want, it.Content)
			assert.Equal(t, ContentKind(tc.name), it.Content.Kind())
		})
	}
}

func TestItemRejectsUnknownVariant(t *testing.T) {
	data, err := cbor.Marshal(map[string]any{"id": uint64(1), "content": map[string]any{"video": "x"}})
	require.NoError(t, err)

	var it Item
	err = CborUnmarshaler{}.Unmarshal(data, &it)
	require.ErrorIs(t, err, ErrUnknownContent)
}

func TestItemRejectsAmbiguousVariant(t *testing.T) {
	data, err := cbor.Marshal(map[string]any{"id": uint64(1), "content": map[string]any{"markdown": "a", "shelf": "b"}})
	require.NoError(t, err)

	var it Item
	require.Error(t, CborUnmarshaler{}.Unmarshal(data, &it))
}

func TestItemEncodeDecode(t *testing.T) {
	in := []Item{
		{ID: 1, Content: MarkdownRef{Markdown: "notes"}},
		{ID: 2, Content: ShelfRef{ShelfID: "s2"}},
		{ID: 3, Content: NftRef{Collection: "c", TokenID: 42}},
	}
	data, err := CborMarshaler{}.Marshal(in)
	require.NoError(t, err)

	var out []Item
	require.NoError(t, CborUnmarshaler{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestItemWireShape(t *testing.T) {
	data, err := CborMarshaler{}.Marshal(Item{ID: 7, Content: ShelfRef{ShelfID: "s9"}})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, CborUnmarshaler{}.Unmarshal(data, &raw))
	assert.Equal(t, map[string]any{"shelf": "s9"}, raw["content"])

	_, err = CborMarshaler{}.Marshal(Item{ID: 8})
	assert.ErrorIs(t, err, ErrUnknownContent)
}

func TestMatchIsExhaustive(t *testing.T) {
	label := func(c SlotContent) string {
		return Match(c,
			func(v NftRef) string { return "nft:" + v.Collection },
			func(v MarkdownRef) string { return "md" },
			func(v ShelfRef) string { return "shelf:" + v.ShelfID },
		)
	}
	assert.Equal(t, "nft:c", label(NftRef{Collection: "c"}))
	assert.Equal(t, "md", label(MarkdownRef{}))
	assert.Equal(t, "shelf:s1", label(ShelfRef{ShelfID: "s1"}))
}

func TestShelfListContainsNestedShelf(t *testing.T) {
	l := ShelfList{
		{ID: "a", Items: []Item{{ID: 1, Content: ShelfRef{ShelfID: "nested"}}}},
		{ID: "b"},
	}
	assert.True(t, l.ContainsShelf("a"))
	assert.True(t, l.ContainsShelf("nested"))
	assert.False(t, l.ContainsShelf("c"))
	assert.Equal(t, []string{"a", "b"}, l.IDs())
}

func TestShelfCloneDoesNotShare(t *testing.T) {
	desc := "d"
	s := Shelf{ID: "a", Description: &desc, Items: []Item{{ID: 1, Content: MarkdownRef{}}}}
	c := s.Clone()
	*c.Description = "changed"
	c.Items[0].ID = 99

	assert.Equal(t, "d", *s.Description)
	assert.Equal(t, uint64(1), s.Items[0].ID)
}
