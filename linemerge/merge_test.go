package linemerge

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/transitopia/cyclemap/feature"
)

// ~146m per 0.002 degrees of longitude around Vancouver
const lat = 49.28

func line(id int64, attrs map[string]any, lons ...float64) *feature.Rendered {
	ls := make(orb.LineString, 0, len(lons))
	for _, lon := range lons {
		ls = append(ls, orb.Point{lon, lat})
	}
	return &feature.Rendered{ID: id, Layer: "cycling", Geometry: ls, Attrs: attrs}
}

func noPartition(*feature.Rendered) int { return 0 }

func TestMergeAdjacent(t *testing.T) {
	attrs := map[string]any{"class": "track", "oneway": 0}
	items := []*feature.Rendered{
		line(1, attrs, -123.100, -123.098),
		line(2, map[string]any{"class": "track", "oneway": 0}, -123.098, -123.096),
	}

	out, err := MergeLines(items, noPartition, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 merged feature; got %d", len(out))
	}

	ls, ok := out[0].Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("expected a line string; got %T", out[0].Geometry)
	}
	if len(ls) != 3 {
		t.Fatalf("expected 3 points; got %v", ls)
	}
	if !ls[0].Equal(orb.Point{-123.100, lat}) || !ls[2].Equal(orb.Point{-123.096, lat}) {
		t.Fatalf("unexpected endpoints %v", ls)
	}
	if out[0].ID != 1 || out[0].Attrs["class"] != "track" {
		t.Fatalf("expected the first feature's id and attributes; got %+v", out[0])
	}
}

func TestMergeReversed(t *testing.T) {
	attrs := map[string]any{"class": "lane"}
	items := []*feature.Rendered{
		line(1, attrs, -123.100, -123.098),
		line(2, attrs, -123.096, -123.098),
	}

	out, err := MergeLines(items, noPartition, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 merged feature; got %d", len(out))
	}
	if ls := out[0].Geometry.(orb.LineString); len(ls) != 3 {
		t.Fatalf("expected 3 points; got %v", ls)
	}

	// the source geometry must stay untouched
	if src := items[1].Geometry.(orb.LineString); !src[0].Equal(orb.Point{-123.096, lat}) {
		t.Fatalf("source line was modified: %v", src)
	}
}

func TestPartitionedLinesAreNotReversed(t *testing.T) {
	attrs := map[string]any{"class": "lane"}
	items := []*feature.Rendered{
		line(1, attrs, -123.100, -123.098),
		line(2, attrs, -123.096, -123.098),
	}

	out, err := MergeLines(items, func(*feature.Rendered) int { return 1 }, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected a single feature; got %d", len(out))
	}
	mls, ok := out[0].Geometry.(orb.MultiLineString)
	if !ok || len(mls) != 2 {
		t.Fatalf("expected two unjoined lines; got %v", out[0].Geometry)
	}
}

func TestDifferentPartitionsNeverMerge(t *testing.T) {
	attrs := map[string]any{"class": "track", "oneway": 1}
	items := []*feature.Rendered{
		line(1, attrs, -123.100, -123.098),
		line(2, attrs, -123.098, -123.096),
	}
	partitions := map[*feature.Rendered]int{items[0]: 1, items[1]: 2}

	out, err := MergeLines(items, func(f *feature.Rendered) int { return partitions[f] }, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 features; got %d", len(out))
	}
	for _, f := range out {
		if len(f.Geometry.(orb.LineString)) != 2 {
			t.Fatalf("expected unmerged geometry; got %v", f.Geometry)
		}
	}
}

func TestDifferentAttributesNeverMerge(t *testing.T) {
	items := []*feature.Rendered{
		line(1, map[string]any{"class": "track", "comfort": 4}, -123.100, -123.098),
		line(2, map[string]any{"class": "track", "comfort": 3}, -123.098, -123.096),
	}

	out, err := MergeLines(items, noPartition, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 features; got %d", len(out))
	}
}

func TestMinLength(t *testing.T) {
	attrs := map[string]any{"class": "track"}
	// ~36m each
	items := []*feature.Rendered{
		line(1, attrs, -123.1000, -123.0995),
		line(2, attrs, -123.0995, -123.0990),
		line(3, map[string]any{"class": "lane"}, -123.2000, -123.1995),
	}

	out, err := MergeLines(items, noPartition, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected everything to be dropped; got %d features", len(out))
	}

	out, err = MergeLines(items, noPartition, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected only the merged line to survive; got %d features", len(out))
	}
	if l := geo.Length(out[0].Geometry.(orb.LineString)); l < 50 {
		t.Fatalf("expected at least 50m; got %f", l)
	}
}

func TestSimplify(t *testing.T) {
	attrs := map[string]any{"class": "track"}
	items := []*feature.Rendered{
		line(1, attrs, -123.100, -123.099, -123.098),
		line(2, attrs, -123.098, -123.097, -123.096),
	}

	out, err := MergeLines(items, noPartition, 0, 0.0001)
	if err != nil {
		t.Fatal(err)
	}
	ls := out[0].Geometry.(orb.LineString)
	if len(ls) != 2 {
		t.Fatalf("expected collinear points to be removed; got %v", ls)
	}
}

func TestNonLinesPassThrough(t *testing.T) {
	point := &feature.Rendered{ID: 9, Layer: "cycling", Geometry: orb.Point{-123.1, lat}, Attrs: map[string]any{"amenity": "bicycle_parking"}}

	out, err := MergeLines([]*feature.Rendered{point}, noPartition, 1000, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != point {
		t.Fatalf("expected the point to pass through; got %v", out)
	}
}

func TestMissingGeometry(t *testing.T) {
	_, err := MergeLines([]*feature.Rendered{{ID: 1, Layer: "cycling"}}, noPartition, 0, 0)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestJoinClosedLoop(t *testing.T) {
	a, b, c := orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{1, 1}
	segments := []segment{
		{Line: orb.LineString{a, b}},
		{Line: orb.LineString{b, c}},
		{Line: orb.LineString{c, a}},
		{Line: orb.LineString{a}},
	}

	joined := join(segments, true)
	if len(joined) != 1 {
		t.Fatalf("expected one loop; got %d", len(joined))
	}
	ls := joined[0].LineString()
	if len(ls) != 4 || !ls[0].Equal(ls[3]) {
		t.Fatalf("expected a closed line; got %v", ls)
	}
}

func TestJoinRing(t *testing.T) {
	lines := []orb.LineString{
		{{0, 0}, {1, 0}},
		{{1, 1}, {1, 0}},
		{{1, 1}, {0, 0}},
		{{5, 5}, {6, 6}},
	}

	joined := Join(lines, true)
	if len(joined) != 2 {
		t.Fatalf("expected a ring and a dangling line; got %v", joined)
	}
	ring := orb.Ring(joined[0])
	if len(ring) != 4 || !ring.Closed() {
		t.Fatalf("expected a closed ring; got %v", ring)
	}
	if len(joined[1]) != 2 {
		t.Fatalf("expected the dangling line untouched; got %v", joined[1])
	}
}

func TestJoinLongChainOutOfOrder(t *testing.T) {
	const n = 5000
	segments := make([]segment, 0, n)
	for i := n - 1; i >= 0; i-- {
		segments = append(segments, segment{Line: orb.LineString{{float64(i), 0}, {float64(i + 1), 0}}})
	}

	joined := join(segments, false)
	if len(joined) != 1 {
		t.Fatalf("expected one line; got %d", len(joined))
	}
	ls := joined[0].LineString()
	if len(ls) != n+1 {
		t.Fatalf("expected %d points; got %d", n+1, len(ls))
	}
	for i, p := range ls {
		if p != (orb.Point{float64(i), 0}) {
			t.Fatalf("point %d: expected %v; got %v", i, orb.Point{float64(i), 0}, p)
		}
	}
}

func TestJoinLongChainWithReversedSegments(t *testing.T) {
	const n = 2000
	lines := make([]orb.LineString, 0, n)
	for i := range n {
		ls := orb.LineString{{float64(i), 0}, {float64(i + 1), 0}}
		if i%2 == 1 {
			ls.Reverse()
		}
		lines = append(lines, ls)
	}

	joined := Join(lines, true)
	if len(joined) != 1 || len(joined[0]) != n+1 {
		t.Fatalf("expected one line of %d points; got %d lines", n+1, len(joined))
	}
	ls := joined[0]
	step := ls[1][0] - ls[0][0]
	for i := 1; i < len(ls); i++ {
		if ls[i][0]-ls[i-1][0] != step {
			t.Fatalf("line is not continuous at %d: %v %v", i, ls[i-1], ls[i])
		}
	}
}

func TestJoinBranchTakesLowestIndex(t *testing.T) {
	a, b, c, d := orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{1, 1}
	lines := []orb.LineString{
		{a, b},
		{b, c},
		{b, d},
	}

	joined := Join(lines, false)
	if len(joined) != 2 {
		t.Fatalf("expected two lines; got %v", joined)
	}
	if !joined[0].Equal(orb.LineString{a, b, c}) {
		t.Fatalf("expected the first branch to be joined; got %v", joined[0])
	}
	if !joined[1].Equal(orb.LineString{b, d}) {
		t.Fatalf("expected the second branch untouched; got %v", joined[1])
	}
}
