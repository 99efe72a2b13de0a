package cycling

import (
	"github.com/transitopia/cyclemap/feature"
)

// LineMerger joins connected line features that share attributes and a partition key.
type LineMerger interface {
	MergeLines(items []*feature.Rendered, partition func(*feature.Rendered) int, minLength, tolerance float64) ([]*feature.Rendered, error)
}

// PostProcess merges the layer's line features of one zoom level. Oneway segments are never
// merged, not even with each other.
func (l *Layer) PostProcess(zoom int, items []*feature.Rendered) ([]*feature.Rendered, error) {
	// TODO: merge while preserving "oneway" instead of ignoring
	partitions := make(map[*feature.Rendered]int, len(items))
	next := 1
	for _, item := range items {
		if isOneway(item.Attrs["oneway"]) {
			partitions[item] = next
			next++
		}
	}

	return l.merger.MergeLines(items, func(f *feature.Rendered) int {
		return partitions[f]
	}, l.cfg.MinLengthAt(zoom), l.cfg.Tolerance(zoom))
}

func isOneway(v any) bool {
	switch v := v.(type) {
	case int:
		return v == 1
	case int64:
		return v == 1
	case bool:
		return v
	}
	return false
}
