package linemerge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/simplify"
	"github.com/transitopia/cyclemap/feature"
)

// Merger joins connected lines whose attributes are equal and whose partition keys match.
type Merger struct{}

// MergeLines merges line features per (layer, partition, attributes) group. Non-line features
// pass through unchanged. Lines shorter than minLength meters after merging are dropped and the
// rest is simplified with tolerance (in degrees). The merged feature keeps the id and attributes
// of the first feature of its group.
func (Merger) MergeLines(items []*feature.Rendered, partition func(*feature.Rendered) int, minLength, tolerance float64) ([]*feature.Rendered, error) {
	return MergeLines(items, partition, minLength, tolerance)
}

type group struct {
	first     *feature.Rendered
	partition int
	segments  []segment
}

func MergeLines(items []*feature.Rendered, partition func(*feature.Rendered) int, minLength, tolerance float64) ([]*feature.Rendered, error) {
	var (
		result []*feature.Rendered
		groups []*group
		index  = make(map[string]*group)
	)

	for _, item := range items {
		var lines []orb.LineString
		switch g := item.Geometry.(type) {
		case orb.LineString:
			lines = []orb.LineString{g}
		case orb.MultiLineString:
			lines = g
		case nil:
			return nil, fmt.Errorf("feature %d in layer %s has no geometry", item.ID, item.Layer)
		default:
			result = append(result, item)
			continue
		}

		p := partition(item)
		key := fmt.Sprintf("%s\x00%d\x00%s", item.Layer, p, attrsKey(item.Attrs))
		grp, ok := index[key]
		if !ok {
			grp = &group{first: item, partition: p}
			index[key] = grp
			groups = append(groups, grp)
		}
		for _, ls := range lines {
			grp.segments = append(grp.segments, segment{Line: ls})
		}
	}

	var simplifier *simplify.DouglasPeuckerSimplifier
	if tolerance > 0 {
		simplifier = simplify.DouglasPeucker(tolerance)
	}

	for _, grp := range groups {
		// a non-zero partition marks direction-bearing lines, reversing them would flip their meaning
		joined := join(grp.segments, grp.partition == 0)

		var out orb.MultiLineString
		for _, ms := range joined {
			ls := ms.LineString()
			if minLength > 0 && geo.Length(ls) < minLength {
				continue
			}
			if simplifier != nil {
				ls = simplifier.LineString(ls)
			}
			if len(ls) < 2 {
				continue
			}
			out = append(out, ls)
		}

		if len(out) == 0 {
			continue
		}

		merged := &feature.Rendered{
			ID:           grp.first.ID,
			Layer:        grp.first.Layer,
			Attrs:        grp.first.Attrs,
			BufferPixels: grp.first.BufferPixels,
		}
		if len(out) == 1 {
			merged.Geometry = out[0]
		} else {
			merged.Geometry = out
		}
		result = append(result, merged)
	}

	return result, nil
}

func attrsKey(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%v;", k, attrs[k])
	}
	return sb.String()
}
