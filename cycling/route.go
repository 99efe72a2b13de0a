package cycling

import (
	"github.com/transitopia/cyclemap/tagset"
)

// RouteRecord marks a way as a member of a bicycle route relation.
type RouteRecord struct {
	ID int64
}

func (r RouteRecord) RelationID() int64 {
	return r.ID
}

// ClassifyRelation reports whether a relation is a bicycle route.
func ClassifyRelation(tags tagset.TagSet, id int64) (RouteRecord, bool) {
	if tags.Has("type", "route") && tags.Has("route", "bicycle") {
		return RouteRecord{ID: id}, true
	}
	return RouteRecord{}, false
}
