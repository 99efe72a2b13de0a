package tiles

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/tidwall/qtree"
	"github.com/transitopia/cyclemap/feature"
)

// index is a read-only spatial index over the rendered features of one layer at one zoom.
type index struct {
	items []*feature.Rendered
	qt    qtree.QTree
}

func newIndex(items []*feature.Rendered) *index {
	ix := &index{items: items}
	for i, item := range items {
		b := item.Geometry.Bound()
		ix.qt.Insert(b.Min, b.Max, i)
	}
	return ix
}

// query returns the features whose bounds intersect b, in insertion order.
func (ix *index) query(b orb.Bound) []*feature.Rendered {
	var ids []int
	ix.qt.Search(b.Min, b.Max, func(_, _ [2]float64, data interface{}) bool {
		ids = append(ids, data.(int))
		return true
	})
	slices.Sort(ids)

	out := make([]*feature.Rendered, 0, len(ids))
	for _, id := range ids {
		out = append(out, ix.items[id])
	}
	return out
}
