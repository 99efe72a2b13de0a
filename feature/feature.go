package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

type GeometryKind uint8

const (
	KindLine GeometryKind = iota + 1
	KindPoint
	KindCentroid
)

func (k GeometryKind) String() string {
	return [...]string{"line", "point", "centroid"}[k-1]
}

type attr struct {
	key     string
	value   any
	minZoom int
}

// Feature is an output feature created for one source element. Its geometry is attached after
// classification, once coordinates for the source element are known.
type Feature struct {
	Layer      string
	Kind       GeometryKind
	SourceType osm.Type
	SourceID   int64
	Geometry   orb.Geometry

	minZoom      int
	bufferPixels float64
	attrs        []attr
}

// SetAttr sets an attribute visible at every zoom. Nil and empty string values are ignored.
func (f *Feature) SetAttr(key string, value any) *Feature {
	return f.SetAttrWithMinZoom(key, value, 0)
}

// SetAttrWithMinZoom sets an attribute that is only emitted at zoom levels >= minZoom.
func (f *Feature) SetAttrWithMinZoom(key string, value any, minZoom int) *Feature {
	if value == nil {
		return f
	}
	if s, ok := value.(string); ok && s == "" {
		return f
	}

	for i := range f.attrs {
		if f.attrs[i].key == key {
			f.attrs[i] = attr{key: key, value: value, minZoom: minZoom}
			return f
		}
	}
	f.attrs = append(f.attrs, attr{key: key, value: value, minZoom: minZoom})
	return f
}

func (f *Feature) SetMinZoom(zoom int) *Feature {
	f.minZoom = zoom
	return f
}

func (f *Feature) SetBufferPixels(px float64) *Feature {
	f.bufferPixels = px
	return f
}

func (f *Feature) MinZoom() int {
	return f.minZoom
}

func (f *Feature) BufferPixels() float64 {
	return f.bufferPixels
}

// Attr returns the attribute value regardless of its zoom gate.
func (f *Feature) Attr(key string) (any, bool) {
	for _, a := range f.attrs {
		if a.key == key {
			return a.value, true
		}
	}
	return nil, false
}

// At resolves the feature for a zoom level. It reports false when the feature is not visible
// at that zoom or has no geometry.
func (f *Feature) At(zoom int) (*Rendered, bool) {
	if zoom < f.minZoom || f.Geometry == nil {
		return nil, false
	}

	attrs := make(map[string]any, len(f.attrs))
	for _, a := range f.attrs {
		if zoom >= a.minZoom {
			attrs[a.key] = a.value
		}
	}

	return &Rendered{
		ID:           f.SourceID,
		Layer:        f.Layer,
		Geometry:     f.Geometry,
		Attrs:        attrs,
		BufferPixels: f.bufferPixels,
	}, true
}

// Rendered is a feature resolved for a single zoom level.
type Rendered struct {
	ID           int64
	Layer        string
	Geometry     orb.Geometry
	Attrs        map[string]any
	BufferPixels float64
}
