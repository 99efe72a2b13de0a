// Package featuretest provides an in-memory feature.Source for tests.
package featuretest

import (
	"github.com/paulmach/osm"
	"github.com/transitopia/cyclemap/feature"
	"github.com/transitopia/cyclemap/tagset"
)

type Source struct {
	tagset.Map

	OSMType   osm.Type
	OSMID     int64
	Line      bool
	Point     bool
	Polygon   bool
	Relations []feature.RelationInfo
}

var _ feature.Source = (*Source)(nil)

// Way returns an open way: it can only be a line.
func Way(id int64, tags tagset.Map) *Source {
	return &Source{Map: tags, OSMType: osm.TypeWay, OSMID: id, Line: true}
}

// ClosedWay returns a way that can be both a line and a polygon.
func ClosedWay(id int64, tags tagset.Map) *Source {
	return &Source{Map: tags, OSMType: osm.TypeWay, OSMID: id, Line: true, Polygon: true}
}

func Node(id int64, tags tagset.Map) *Source {
	return &Source{Map: tags, OSMType: osm.TypeNode, OSMID: id, Point: true}
}

func (s *Source) ID() int64                            { return s.OSMID }
func (s *Source) Type() osm.Type                       { return s.OSMType }
func (s *Source) CanBeLine() bool                      { return s.Line }
func (s *Source) IsPoint() bool                        { return s.Point }
func (s *Source) CanBePolygon() bool                   { return s.Polygon }
func (s *Source) RelationInfo() []feature.RelationInfo { return s.Relations }
