package osmparser

import (
	"github.com/paulmach/osm"
	"github.com/transitopia/cyclemap/feature"
	"github.com/transitopia/cyclemap/tagset"
)

type nodeSource struct {
	tagset.Map
	node *osm.Node
}

var _ feature.Source = (*nodeSource)(nil)

func (s *nodeSource) ID() int64                            { return int64(s.node.ID) }
func (s *nodeSource) Type() osm.Type                       { return osm.TypeNode }
func (s *nodeSource) CanBeLine() bool                      { return false }
func (s *nodeSource) IsPoint() bool                        { return true }
func (s *nodeSource) CanBePolygon() bool                   { return false }
func (s *nodeSource) RelationInfo() []feature.RelationInfo { return nil }

type waySource struct {
	tagset.Map
	way       *osm.Way
	relations []feature.RelationInfo
}

var _ feature.Source = (*waySource)(nil)

func (s *waySource) ID() int64      { return int64(s.way.ID) }
func (s *waySource) Type() osm.Type { return osm.TypeWay }
func (s *waySource) IsPoint() bool  { return false }

func (s *waySource) closed() bool {
	nodes := s.way.Nodes
	return len(nodes) > 1 && nodes[0].ID == nodes[len(nodes)-1].ID
}

// CanBeLine excludes closed ways explicitly tagged as areas.
func (s *waySource) CanBeLine() bool {
	return len(s.way.Nodes) >= 2 && !(s.closed() && s.Has("area", "yes"))
}

func (s *waySource) CanBePolygon() bool {
	return s.closed() && len(s.way.Nodes) >= 4 && !s.Has("area", "no")
}

func (s *waySource) RelationInfo() []feature.RelationInfo {
	return s.relations
}

// relationSource is a multipolygon relation. It can only become a polygon.
type relationSource struct {
	tagset.Map
	rel *osm.Relation
}

var _ feature.Source = (*relationSource)(nil)

func (s *relationSource) ID() int64                            { return int64(s.rel.ID) }
func (s *relationSource) Type() osm.Type                       { return osm.TypeRelation }
func (s *relationSource) CanBeLine() bool                      { return false }
func (s *relationSource) IsPoint() bool                        { return false }
func (s *relationSource) CanBePolygon() bool                   { return true }
func (s *relationSource) RelationInfo() []feature.RelationInfo { return nil }
