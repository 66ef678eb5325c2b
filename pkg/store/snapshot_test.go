package store

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shelfhub/shelfclient/pkg/constants"
	"github.com/shelfhub/shelfclient/pkg/models"
	"github.com/shelfhub/shelfclient/pkg/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func list(ids ...string) models.ShelfList {
	out := make(models.ShelfList, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Shelf{ID: id, Title: "title " + id, Owner: "u1"})
	}
	return out
}

func TestProfileContext(t *testing.T) {
	assert.Equal(t, Context("profile:u1"), ProfileContext(" u1 "))
	assert.Equal(t, "recent", RecentContext.String())
}

func TestReplaceCollection(t *testing.T) {
	ctx := ProfileContext("u1")
	base := ReplaceCollection(Snapshot{}, ctx, list("s1", "s2"))
	next := ReplaceCollection(base, ctx, list("s3", "s1", "s3"))

	assert.Equal(t, []string{"s1", "s2"}, base.Order(ctx))
	assert.Equal(t, []string{"s3", "s1"}, next.Order(ctx))
	if diff := cmp.Diff(list("s3", "s1"), next.Shelves(ctx)); diff != "" {
		t.Errorf("Shelves() mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendCollectionDeduplicates(t *testing.T) {
	s := ReplaceCollection(Snapshot{}, RecentContext, list("a", "b"))
	s = AppendCollection(s, RecentContext, list("b", "c"))
	assert.Equal(t, []string{"a", "b", "c"}, s.Order(RecentContext))
}

func TestAppendToUnknownContext(t *testing.T) {
	s := AppendCollection(Snapshot{}, RecentContext, list("a"))
	assert.Equal(t, []string{"a"}, s.Order(RecentContext))
}

func TestSetOrder(t *testing.T) {
	ctx := ProfileContext("u1")
	s := ReplaceCollection(Snapshot{}, ctx, list("s1", "s2", "s3"))

	next, err := SetOrder(s, ctx, []string{"s3", "s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s1", "s2"}, next.Order(ctx))
	assert.Equal(t, []string{"s1", "s2", "s3"}, s.Order(ctx))

	_, err = SetOrder(s, ctx, []string{"s3", "s1", "nope"})
	require.ErrorIs(t, err, constants.ErrUnknownShelf)

	_, err = SetOrder(s, ctx, []string{"s3", "s1"})
	require.ErrorIs(t, err, constants.ErrInvalidOrder)

	_, err = SetOrder(s, ctx, []string{"s1", "s1", "s2"})
	require.ErrorIs(t, err, constants.ErrInvalidOrder)
}

func TestPlanMove(t *testing.T) {
	order := []string{"a", "b", "c", "d"}
	tests := []struct {
		name   string
		shelf  string
		ref    string
		before bool
		want   []string
	}{
		{name: "before reference", shelf: "d", ref: "b", before: true, want: []string{"a", "d", "b", "c"}},
		{name: "after reference", shelf: "a", ref: "c", want: []string{"b", "c", "a", "d"}},
		{name: "to front", shelf: "c", before: true, want: []string{"c", "a", "b", "d"}},
		{name: "to end", shelf: "b", want: []string{"a", "c", "d", "b"}},
		{name: "onto itself", shelf: "b", ref: "b", want: order},
		{name: "already in place", shelf: "a", ref: "b", before: true, want: order},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanMove(order, tt.shelf, tt.ref, tt.before)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)

	_, err := PlanMove(order, "x", "a", true)
	require.ErrorIs(t, err, constants.ErrUnknownShelf)
	_, err = PlanMove(order, "a", "x", true)
	require.ErrorIs(t, err, constants.ErrUnknownShelf)
}

func TestMoveRelativeLeavesInputUntouched(t *testing.T) {
	ctx := ProfileContext("u1")
	s := ReplaceCollection(Snapshot{}, ctx, list("s1", "s2", "s3"))
	next, err := MoveRelative(s, ctx, "s3", "s1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "s1", "s2"}, next.Order(ctx))
	assert.Equal(t, []string{"s1", "s2", "s3"}, s.Order(ctx))
}

func TestUpsertAndPermissions(t *testing.T) {
	ctx := ProfileContext("u1")
	s := ReplaceCollection(Snapshot{}, ctx, list("s1"))
	s = UpsertShelf(s, models.Shelf{ID: "s1", Title: "renamed", Owner: "u1"})
	s = WithPermissions(s, map[string]permission.Record{"s1": {IsOwner: true, HasEditAccess: true}})

	sh, ok := s.Shelf("s1")
	require.True(t, ok)
	assert.Equal(t, "renamed", sh.Title)
	rec, ok := s.Permission("s1")
	require.True(t, ok)
	assert.True(t, rec.HasEditAccess)
}

func TestClearContextKeepsSharedEntities(t *testing.T) {
	profile := ProfileContext("u1")
	s := ReplaceCollection(Snapshot{}, profile, list("s1", "s2"))
	s = ReplaceCollection(s, RecentContext, list("s2", "s9"))
	s = WithPermissions(s, map[string]permission.Record{"s1": {IsOwner: true}})

	s = ClearContext(s, profile)

	assert.False(t, s.HasContext(profile))
	_, ok := s.Shelf("s1")
	assert.False(t, ok)
	_, ok = s.Permission("s1")
	assert.False(t, ok)
	_, ok = s.Shelf("s2")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestOrderOnlyListsKnownEntities(t *testing.T) {
	ctx := ProfileContext("u1")
	s := ReplaceCollection(Snapshot{}, ctx, list("s1", "s2"))
	s = AppendCollection(s, RecentContext, list("s3"))
	s = ClearContext(s, RecentContext)
	for _, c := range []Context{ctx, RecentContext} {
		for _, id := range s.Order(c) {
			_, ok := s.Shelf(id)
			assert.True(t, ok, id)
		}
	}
}
