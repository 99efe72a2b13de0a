package cycling

import (
	"github.com/transitopia/cyclemap/tagset"
)

// lineRule is one entry of the line classification table.
type lineRule struct {
	name     string
	match    func(t tagset.TagSet) bool
	classify func(t tagset.TagSet) Classification
}

// lineRules is evaluated in order and the first matching rule wins.
var lineRules = []lineRule{
	// "OSM distinguishes between cycle lanes and cycle tracks:
	// A cycle *track* is separate from the road (off-road).
	// Tracks are typically separated from the road by e.g. curbs, parking lots, grass verges, trees, etc."
	{
		name: "cycleway",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway", "cycleway")
		},
		classify: func(t tagset.TagSet) Classification {
			shared := t.Has("foot", "designated") && t.Has("segregated", "no")
			return track(t, "cycleway", shared)
		},
	},
	{
		name: "path",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway", "path", "pedestrian") && t.Has("bicycle", "designated")
		},
		classify: func(t tagset.TagSet) Classification {
			shared := (t.Has("foot", "designated") || t.Has("highway", "pedestrian")) &&
				!t.Has("segregated", "yes")
			return track(t, "path", shared)
		},
	},
	{
		name: "combined-track",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway") && t.Has("cycleway", "track")
		},
		classify: func(t tagset.TagSet) Classification {
			highway, _ := t.Get("highway")
			return track(t, "combined-"+highway, sharedTrack(t))
		},
	},
	{
		name: "construction",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway", "construction") && t.Has("construction", "cycleway")
		},
		classify: func(t tagset.TagSet) Classification {
			c := track(t, "cycleway", sharedTrack(t))
			c.Construction = true
			c.Website, _ = t.Get("website")
			c.OpeningDate, _ = t.Get("opening_date")
			return c
		},
	},

	// TODO: support "T2 (alternative)" on https://wiki.openstreetmap.org/wiki/Bicycle (cycleway:right=track + cycleway:right:oneway=no)

	// A cycle *lane* lies within the roadway itself (on-road).
	{
		name: "lane-both-sides",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway") && !t.Has("oneway", "yes") &&
				(t.Has("cycleway", "lane") ||
					t.Has("cycleway:both", "lane") ||
					(t.Has("cycleway:left", "lane") && t.Has("cycleway:right", "lane")))
		},
		classify: func(t tagset.TagSet) Classification {
			return lane(SideBoth, false)
		},
	},
	{
		name: "lane-two-way-one-side",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway") && !t.Has("oneway", "yes") &&
				(twoWayLane(t, "right") != twoWayLane(t, "left"))
		},
		classify: func(t tagset.TagSet) Classification {
			if twoWayLane(t, "right") {
				return lane(SideRight, false)
			}
			return lane(SideLeft, false)
		},
	},
	{
		name: "lane-oneway-road",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway") && t.Has("oneway", "yes") &&
				(t.Has("cycleway", "lane") ||
					t.Has("cycleway:right", "lane") ||
					t.Has("cycleway:left", "lane"))
		},
		classify: func(t tagset.TagSet) Classification {
			left := t.Has("cycleway:left", "lane")
			right := t.Has("cycleway:right", "lane")

			side := SideRight
			if left {
				side = SideLeft
			}
			// A lane on both sides of a one way street runs both ways, otherwise it follows the road.
			return lane(side, !(left && right))
		},
	},
	{
		name: "shared-lane",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway") &&
				(t.Has("cycleway", "shared_lane", "shared") || t.Has("cycleway:both", "shared_lane", "shared"))
		},
		classify: func(t tagset.TagSet) Classification {
			comfort := ComfortLeast
			if t.Has("motor_vehicle", "private") || slowStreet(t) {
				comfort = ComfortHigh
			}
			return Classification{
				Category:           CategoryLane,
				Comfort:            comfort,
				Oneway:             bicycleOneway(t),
				SharedWithVehicles: true,
			}
		},
	},
	{
		name: "slow-street",
		match: func(t tagset.TagSet) bool {
			return t.Has("highway", "residential") && t.Has("bicycle", "yes", "designated") && slowStreet(t)
		},
		classify: func(t tagset.TagSet) Classification {
			return Classification{
				Category:              CategoryLane,
				Comfort:               ComfortHigh,
				Oneway:                bicycleOneway(t),
				SharedWithPedestrians: t.Has("foot", "yes"),
				SharedWithVehicles:    true,
			}
		},
	},

	// TODO: support "L2" on https://wiki.openstreetmap.org/wiki/Bicycle (highway=* + cycleway:right=lane)
}

// ClassifyLine runs the line rules against the tags and returns the result of the first match.
func ClassifyLine(t tagset.TagSet) (Classification, bool) {
	for _, rule := range lineRules {
		if rule.match(t) {
			c := rule.classify(t)
			c.Rule = rule.name
			return c, true
		}
	}
	return Classification{}, false
}

func track(t tagset.TagSet, subclass string, sharedWithPedestrians bool) Classification {
	comfort := ComfortMost
	if sharedWithPedestrians {
		comfort = ComfortHigh
	}
	return Classification{
		Category:              CategoryTrack,
		Subclass:              subclass,
		Comfort:               comfort,
		Oneway:                t.Has("oneway", "yes"), // 'reverse' one-way (-1) is not supported
		SharedWithPedestrians: sharedWithPedestrians,
	}
}

func sharedTrack(t tagset.TagSet) bool {
	return t.Has("foot", "designated") && !t.Has("segregated", "yes")
}

func lane(side Side, oneway bool) Classification {
	return Classification{
		Category: CategoryLane,
		Comfort:  ComfortLow,
		Oneway:   oneway,
		Side:     side,
	}
}

func twoWayLane(t tagset.TagSet, side string) bool {
	return t.Has("cycleway:"+side, "lane") && t.Has("cycleway:"+side+":oneway", "no")
}

func slowStreet(t tagset.TagSet) bool {
	speed, ok := t.Numeric("maxspeed")
	return ok && speed <= 30
}

func bicycleOneway(t tagset.TagSet) bool {
	if t.Has("oneway:bicycle", "no") {
		return false
	}
	return t.Has("oneway", "yes")
}
