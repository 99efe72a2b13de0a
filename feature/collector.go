package feature

import (
	"github.com/paulmach/osm"
)

// Collector receives the output features a layer creates for one source element.
type Collector struct {
	sourceType osm.Type
	sourceID   int64
	features   []*Feature
}

func NewCollector(src Source) *Collector {
	return &Collector{
		sourceType: src.Type(),
		sourceID:   src.ID(),
	}
}

func (c *Collector) Line(layer string) *Feature {
	return c.add(layer, KindLine)
}

func (c *Collector) Point(layer string) *Feature {
	return c.add(layer, KindPoint)
}

// Centroid creates a point feature placed at the centroid of the source polygon.
func (c *Collector) Centroid(layer string) *Feature {
	return c.add(layer, KindCentroid)
}

func (c *Collector) Features() []*Feature {
	return c.features
}

func (c *Collector) add(layer string, kind GeometryKind) *Feature {
	f := &Feature{
		Layer:      layer,
		Kind:       kind,
		SourceType: c.sourceType,
		SourceID:   c.sourceID,
	}
	c.features = append(c.features, f)
	return f
}
