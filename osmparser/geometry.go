package osmparser

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
	"github.com/transitopia/cyclemap/feature"
	"github.com/transitopia/cyclemap/linemerge"
)

func (p *Parser) lineString(nodes []osm.NodeID) (ls orb.LineString, missing int) {
	ls = make(orb.LineString, 0, len(nodes))
	for _, id := range nodes {
		point, ok := p.coords.Get(id)
		if !ok {
			missing++
			continue
		}
		ls = append(ls, point)
	}
	return ls, missing
}

func (p *Parser) resolveWay(ctx context.Context, w pendingWay) {
	ls, missing := p.lineString(w.nodes)
	if missing > 0 {
		p.log.WarnContext(ctx, "way references missing nodes",
			"osm_id", w.features[0].SourceID,
			"missing", missing,
		)
	}

	for _, f := range w.features {
		switch f.Kind {
		case feature.KindLine:
			if len(ls) >= 2 {
				f.Geometry = ls
			}
		case feature.KindCentroid:
			ring := orb.Ring(ls)
			if len(ring) >= 4 && ring.Closed() {
				f.Geometry, _ = planar.CentroidArea(orb.Polygon{ring})
			}
		}
	}
}

func (p *Parser) resolveRelation(ctx context.Context, r pendingRelation) {
	mp, err := p.buildPolygon(r.members)
	if err != nil {
		p.log.WarnContext(ctx, "error building polygon",
			"osm_id", r.features[0].SourceID,
			"error", err.Error(),
		)
		return
	}

	for _, f := range r.features {
		if f.Kind == feature.KindCentroid {
			f.Geometry, _ = planar.CentroidArea(mp)
		}
	}
}

func (p *Parser) buildPolygon(members osm.Members) (orb.MultiPolygon, error) {
	var outer, inner []orb.LineString

	for _, m := range members {
		if m.Type != osm.TypeWay {
			continue
		}
		if m.Role != "inner" && m.Role != "outer" {
			continue
		}

		nodes, ok := p.wayNodes.Get(osm.WayID(m.Ref))
		if !ok {
			// the way is outside of the extract
			continue
		}
		ls, _ := p.lineString(nodes)
		if len(ls) < 2 {
			continue
		}

		if m.Role == "outer" {
			outer = append(outer, ls)
		} else {
			inner = append(inner, ls)
		}
	}

	var mp orb.MultiPolygon
	for _, ls := range linemerge.Join(outer, true) {
		ring := orb.Ring(ls)
		if len(ring) < 4 || !ring.Closed() {
			// needs at least 4 points and matching endpoints
			continue
		}
		if ring.Orientation() != orb.CCW {
			ring.Reverse()
		}
		mp = append(mp, orb.Polygon{ring})
	}

	if len(mp) == 0 {
		return nil, errors.New("no valid outer ways")
	}

	for _, ls := range linemerge.Join(inner, true) {
		ring := orb.Ring(ls)
		if len(ring) < 4 || !ring.Closed() {
			continue
		}
		if ring.Orientation() != orb.CW {
			ring.Reverse()
		}
		mp = addToMultiPolygon(mp, ring)
	}

	return mp, nil
}

// addToMultiPolygon adds an inner ring to the polygon whose outer ring contains it.
// Inner rings outside every outer ring are dropped.
func addToMultiPolygon(mp orb.MultiPolygon, ring orb.Ring) orb.MultiPolygon {
	for i := range mp {
		if planar.RingContains(mp[i][0], ring[0]) {
			mp[i] = append(mp[i], ring)
			return mp
		}
	}
	return mp
}
