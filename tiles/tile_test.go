package tiles

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/transitopia/cyclemap/feature"
)

func TestProperties(t *testing.T) {
	props := properties(map[string]any{
		"routes":  []int64{300, 7},
		"comfort": 4,
		"class":   "track",
	})

	if props["routes"] != "300,7" {
		t.Fatalf("expected comma separated routes; got %v", props["routes"])
	}
	if props["comfort"] != 4 || props["class"] != "track" {
		t.Fatalf("expected other values untouched; got %v", props)
	}
}

func TestIndexQuery(t *testing.T) {
	items := []*feature.Rendered{
		{ID: 1, Geometry: orb.LineString{{0, 0}, {1, 1}}},
		{ID: 2, Geometry: orb.Point{5, 5}},
		{ID: 3, Geometry: orb.LineString{{0.5, 0.5}, {6, 6}}},
	}
	ix := newIndex(items)

	got := ix.query(orb.Bound{Min: orb.Point{0.9, 0.9}, Max: orb.Point{2, 2}})
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("expected features 1 and 3; got %v", got)
	}

	if got := ix.query(orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{-9, -9}}); len(got) != 0 {
		t.Fatalf("expected no features; got %v", got)
	}
}

func TestBoundCover(t *testing.T) {
	b := orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}}
	set := boundCover(b, 1)
	if len(set) != 4 {
		t.Fatalf("expected all four zoom 1 tiles; got %v", set)
	}
	for _, tile := range []maptile.Tile{maptile.New(0, 0, 1), maptile.New(1, 1, 1)} {
		if !set[tile] {
			t.Fatalf("expected %v in the cover", tile)
		}
	}
}

func TestClipBound(t *testing.T) {
	b := clipBound(4, 4096)
	if b.Min != (orb.Point{-64, -64}) || b.Max != (orb.Point{4160, 4160}) {
		t.Fatalf("unexpected clip bound %v", b)
	}
}

func TestEncodeEmptyTile(t *testing.T) {
	layers := []layerTile{{
		name: "cycling",
		idx:  newIndex([]*feature.Rendered{{ID: 1, Geometry: orb.Point{100, 10}, Attrs: map[string]any{}}}),
	}}

	data, err := encodeTile(maptile.At(orb.Point{-100, -10}, 4), layers)
	if err != nil {
		t.Fatal(err)
	}
	if data != nil {
		t.Fatalf("expected no data for an empty tile")
	}
}
