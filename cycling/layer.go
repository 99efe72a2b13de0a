package cycling

import (
	"github.com/paulmach/osm"
	"github.com/transitopia/cyclemap/feature"
	"github.com/transitopia/cyclemap/tagset"
)

// Layer produces the cycling layer: tracks, lanes and bike parking.
type Layer struct {
	cfg    Config
	merger LineMerger
}

func NewLayer(cfg Config, merger LineMerger) *Layer {
	return &Layer{
		cfg:    cfg,
		merger: merger,
	}
}

func (l *Layer) Name() string {
	return l.cfg.LayerName
}

func (l *Layer) PreprocessRelation(rel *osm.Relation) []feature.RelationInfo {
	if route, ok := ClassifyRelation(tagset.FromOSM(rel.Tags), int64(rel.ID)); ok {
		return []feature.RelationInfo{route}
	}
	return nil
}

func (l *Layer) ProcessFeature(src feature.Source, fc *feature.Collector) {
	if src.CanBeLine() {
		if c, ok := ClassifyLine(src); ok {
			line := fc.Line(l.cfg.LayerName)
			writeClassification(line, c)

			name, _ := src.Get("name")
			surface, _ := src.Get("surface")
			line.
				SetAttrWithMinZoom("name", name, l.cfg.MinZoomAttr).
				SetAttrWithMinZoom("surface", surface, l.cfg.MinZoomAttr).
				SetBufferPixels(l.cfg.BufferPixels).
				SetMinZoom(l.cfg.MinZoomLine)

			if routes := feature.InfoOf[RouteRecord](src.RelationInfo()); len(routes) > 0 {
				ids := make([]int64, 0, len(routes))
				for _, r := range routes {
					ids = append(ids, r.ID)
				}
				line.SetAttrWithMinZoom("routes", ids, l.cfg.MinZoomAttr)
			}
		}
	} else if src.IsPoint() {
		if src.Has("amenity", "bicycle_parking") {
			l.parking(src, fc.Point(l.cfg.LayerName), "osmNodeId")
		}
	}

	// e.g. https://www.openstreetmap.org/way/697625710
	if src.CanBePolygon() && src.Has("amenity", "bicycle_parking") {
		idKey := "osmWayId"
		if src.Type() == osm.TypeRelation {
			idKey = "osmRelationId"
		}
		l.parking(src, fc.Centroid(l.cfg.LayerName), idKey)
	}
}

func (l *Layer) parking(src feature.Source, f *feature.Feature, idKey string) {
	name, _ := src.Get("name")
	f.SetAttr("amenity", "bicycle_parking").
		SetAttr("name", name).
		SetAttr(idKey, src.ID()).
		SetMinZoom(l.cfg.MinZoomDetails)
}

func writeClassification(f *feature.Feature, c Classification) {
	f.SetAttr("class", string(c.Category)).
		SetAttr("subclass", c.Subclass).
		SetAttr("comfort", int(c.Comfort)).
		SetAttr("oneway", boolInt(c.Oneway)).
		SetAttr("shared_with_pedestrians", c.SharedWithPedestrians).
		SetAttr("shared_with_vehicles", c.SharedWithVehicles).
		SetAttr("side", string(c.Side)).
		SetAttr("website", c.Website).
		SetAttr("opening_date", c.OpeningDate)
	if c.Construction {
		f.SetAttr("construction", true)
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
