package feature

import (
	"github.com/paulmach/osm"
	"github.com/transitopia/cyclemap/tagset"
)

// Source is an input element as seen by a layer during classification.
type Source interface {
	tagset.TagSet

	ID() int64
	Type() osm.Type

	CanBeLine() bool
	IsPoint() bool
	CanBePolygon() bool

	// RelationInfo returns records produced for the relations this element is a member of,
	// in the order the relations were discovered.
	RelationInfo() []RelationInfo
}

// RelationInfo is a record a layer keeps for a relation it cares about.
type RelationInfo interface {
	RelationID() int64
}

// InfoOf returns the relation infos of type T, preserving order.
func InfoOf[T RelationInfo](infos []RelationInfo) []T {
	var out []T
	for _, info := range infos {
		if v, ok := info.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
