package favorite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gonsw/gonsw/internal/favorite"
)

func fav(from, to, route string) favorite.Favorite {
	return favorite.Favorite{From: from, To: to, RouteNo: route}
}

func TestSet_AddKeepsInsertionOrder(t *testing.T) {
	var s favorite.Set

	assert.True(t, s.Add(fav("Central", "Wynyard", "T1")))
	assert.True(t, s.Add(fav("Central", "Wynyard", "T2")))
	assert.True(t, s.Add(fav("Redfern", "Central", "T8")))
	assert.False(t, s.Add(fav("Central", "Wynyard", "T1")), "duplicate key")

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []favorite.Favorite{
		fav("Central", "Wynyard", "T1"),
		fav("Central", "Wynyard", "T2"),
		fav("Redfern", "Central", "T8"),
	}, s.Items())
}

func TestSet_Remove(t *testing.T) {
	s := favorite.NewSet(
		fav("Central", "Wynyard", "T1"),
		fav("Central", "Wynyard", "T2"),
		fav("Redfern", "Central", "T8"),
	)

	assert.True(t, s.Remove(favorite.Key{From: "Central", To: "Wynyard", RouteNo: "T1"}))
	assert.False(t, s.Remove(favorite.Key{From: "Central", To: "Wynyard", RouteNo: "T1"}))
	assert.False(t, s.Contains(favorite.Key{From: "Central", To: "Wynyard", RouteNo: "T1"}))
	assert.True(t, s.Contains(favorite.Key{From: "Redfern", To: "Central", RouteNo: "T8"}))

	// Re-adding places the route at the end.
	s.Add(fav("Central", "Wynyard", "T1"))
	items := s.Items()
	assert.Equal(t, "T1", items[len(items)-1].RouteNo)
}

func TestSet_RemovePair(t *testing.T) {
	s := favorite.NewSet(
		fav("Central", "Wynyard", "T1"),
		fav("Redfern", "Central", "T8"),
		fav("Central", "Wynyard", "T2"),
		fav("Wynyard", "Central", "T1"),
	)

	assert.Equal(t, 2, s.RemovePair("Central", "Wynyard"))
	assert.Equal(t, 0, s.RemovePair("Central", "Wynyard"))
	assert.Equal(t, []favorite.Favorite{
		fav("Redfern", "Central", "T8"),
		fav("Wynyard", "Central", "T1"),
	}, s.Items())
	assert.True(t, s.Contains(favorite.Key{From: "Wynyard", To: "Central", RouteNo: "T1"}))
}

func TestSet_ItemsAndCloneAreIndependent(t *testing.T) {
	s := favorite.NewSet(fav("Central", "Wynyard", "T1"))

	items := s.Items()
	items[0].RouteNo = "changed"

	clone := s.Clone()
	clone.Add(fav("Redfern", "Central", "T8"))

	assert.Equal(t, "T1", s.Items()[0].RouteNo)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestSet_Diff(t *testing.T) {
	t1 := fav("Central", "Wynyard", "T1")
	t2 := fav("Central", "Wynyard", "T2")
	t8 := fav("Redfern", "Central", "T8")
	m1 := fav("Chatswood", "Tallawong", "M1")

	tests := []struct {
		name    string
		before  []favorite.Favorite
		after   []favorite.Favorite
		removed []favorite.Favorite
		added   []favorite.Favorite
	}{
		{name: "unchanged", before: []favorite.Favorite{t1, t8}, after: []favorite.Favorite{t1, t8}},
		{name: "both empty"},
		{name: "first save", after: []favorite.Favorite{t1}, added: []favorite.Favorite{t1}},
		{name: "clear", before: []favorite.Favorite{t1, t8}, removed: []favorite.Favorite{t1, t8}},
		{name: "toggle off", before: []favorite.Favorite{t1, t2, t8}, after: []favorite.Favorite{t1, t8}, removed: []favorite.Favorite{t2}},
		{name: "remove pair", before: []favorite.Favorite{t1, t8, t2}, after: []favorite.Favorite{t8}, removed: []favorite.Favorite{t1, t2}},
		{
			name:    "swap",
			before:  []favorite.Favorite{t1, t8},
			after:   []favorite.Favorite{t8, m1},
			removed: []favorite.Favorite{t1},
			added:   []favorite.Favorite{m1},
		},
		{name: "reorder only", before: []favorite.Favorite{t1, t8}, after: []favorite.Favorite{t8, t1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			removed, added := favorite.NewSet(tt.before...).Diff(favorite.NewSet(tt.after...))
			assert.Equal(t, tt.removed, removed)
			assert.Equal(t, tt.added, added)
		})
	}
}

func TestSet_DiffAfterMutation(t *testing.T) {
	before := favorite.NewSet(fav("Central", "Wynyard", "T1"), fav("Central", "Wynyard", "T2"))
	after := before.Clone()
	after.RemovePair("Central", "Wynyard")
	after.Add(fav("Central", "Wynyard", "T1"))

	removed, added := before.Diff(after)
	assert.Equal(t, []favorite.Favorite{fav("Central", "Wynyard", "T2")}, removed)
	assert.Nil(t, added, "re-adding an existing key writes nothing")
	assert.Equal(t, 2, before.Len(), "diffing leaves the original untouched")
}
