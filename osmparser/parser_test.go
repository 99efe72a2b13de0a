package osmparser_test

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/thejerf/slogassert"
	"github.com/transitopia/cyclemap/cycling"
	"github.com/transitopia/cyclemap/feature"
	"github.com/transitopia/cyclemap/linemerge"
	"github.com/transitopia/cyclemap/osmparser"
)

func parse(t *testing.T, path string) []*feature.Feature {
	t.Helper()

	handler := slogassert.New(t, slog.LevelWarn, nil)
	p, err := osmparser.New(cycling.NewLayer(cycling.DefaultConfig(), linemerge.Merger{}), osmparser.Config{
		Threads: 2,
		Logger:  slog.New(handler),
	})
	if err != nil {
		t.Fatal(err)
	}

	features, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	handler.AssertMessage("way references missing nodes")
	handler.AssertMessage("dropping feature without geometry")

	return features
}

type key struct {
	typ  osm.Type
	id   int64
	kind feature.GeometryKind
}

func TestParse(t *testing.T) {
	features := parse(t, "testdata/greenway.osm")

	got := make([]key, 0, len(features))
	for _, f := range features {
		got = append(got, key{f.SourceType, f.SourceID, f.Kind})
	}
	want := []key{
		{osm.TypeNode, 8, feature.KindPoint},
		{osm.TypeWay, 20, feature.KindLine},
		{osm.TypeWay, 21, feature.KindLine},
		{osm.TypeWay, 23, feature.KindCentroid},
		{osm.TypeRelation, 500, feature.KindCentroid},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("expected features %v; got %v", want, got)
	}

	if p := features[0].Geometry.(orb.Point); p != (orb.Point{-123.12, 49.30}) {
		t.Fatalf("unexpected parking location %v", p)
	}

	ls, ok := features[1].Geometry.(orb.LineString)
	if !ok || !ls.Equal(orb.LineString{{-123.1, 49.28}, {-123.098, 49.28}}) {
		t.Fatalf("unexpected line geometry %v", features[1].Geometry)
	}

	assertNear(t, features[3].Geometry, orb.Point{-123.1095, 49.2905})
	assertNear(t, features[4].Geometry, orb.Point{-123.199, 49.251})

	if v, _ := features[4].Attr("osmRelationId"); v != int64(500) {
		t.Fatalf("expected osmRelationId 500; got %v", v)
	}
}

func TestParseRoutes(t *testing.T) {
	features := parse(t, "testdata/greenway.osm")

	routes := func(f *feature.Feature) []int64 {
		r, ok := f.At(13)
		if !ok {
			t.Fatalf("expected feature %d at zoom 13", f.SourceID)
		}
		ids, _ := r.Attrs["routes"].([]int64)
		return ids
	}

	if got := routes(features[1]); !slices.Equal(got, []int64{300, 301}) {
		t.Fatalf("expected routes [300 301] on way 20; got %v", got)
	}
	if got := routes(features[2]); !slices.Equal(got, []int64{300}) {
		t.Fatalf("expected routes [300] on way 21; got %v", got)
	}

	r, _ := features[1].At(12)
	if _, ok := r.Attrs["routes"]; ok {
		t.Fatalf("expected no routes at zoom 12")
	}
}

func TestParseMissingFile(t *testing.T) {
	p, err := osmparser.New(cycling.NewLayer(cycling.DefaultConfig(), linemerge.Merger{}), osmparser.Config{Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse(context.Background(), "testdata/missing.osm.pbf"); err == nil {
		t.Fatal("expected an error")
	}
}

func assertNear(t *testing.T, g orb.Geometry, want orb.Point) {
	t.Helper()
	p, ok := g.(orb.Point)
	if !ok {
		t.Fatalf("expected a point; got %T", g)
	}
	if math.Abs(p[0]-want[0]) > 1e-9 || math.Abs(p[1]-want[1]) > 1e-9 {
		t.Fatalf("expected %v; got %v", want, p)
	}
}
