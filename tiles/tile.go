package tiles

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/maptile/tilecover"
)

const tileSizePixels = 256

// layerTile is one layer's features at one zoom, ready to be cut into tiles.
type layerTile struct {
	name string
	idx  *index
	// largest buffer of the layer's features, in pixels
	buffer float64
}

func cover(g orb.Geometry, z maptile.Zoom) maptile.Set {
	switch g := g.(type) {
	case orb.Point:
		return maptile.Set{maptile.At(g, z): true}
	case orb.LineString:
		return tilecover.LineString(g, z)
	case orb.MultiLineString:
		return tilecover.MultiLineString(g, z)
	}
	return boundCover(g.Bound(), z)
}

func boundCover(b orb.Bound, z maptile.Zoom) maptile.Set {
	// tile y grows southwards
	minTile := maptile.At(orb.Point{b.Min.X(), b.Max.Y()}, z)
	maxTile := maptile.At(orb.Point{b.Max.X(), b.Min.Y()}, z)

	set := make(maptile.Set)
	for x := minTile.X; x <= maxTile.X; x++ {
		for y := minTile.Y; y <= maxTile.Y; y++ {
			set[maptile.New(x, y, z)] = true
		}
	}
	return set
}

// properties converts rendered attributes into MVT compatible values.
// Route id lists are written comma separated.
func properties(attrs map[string]any) geojson.Properties {
	props := make(geojson.Properties, len(attrs))
	for k, v := range attrs {
		switch v := v.(type) {
		case []int64:
			ids := make([]string, 0, len(v))
			for _, id := range v {
				ids = append(ids, strconv.FormatInt(id, 10))
			}
			props[k] = strings.Join(ids, ",")
		default:
			props[k] = v
		}
	}
	return props
}

// encodeTile returns the gzipped MVT of a tile, or nil when the tile ends up empty.
func encodeTile(t maptile.Tile, layers []layerTile) ([]byte, error) {
	var mvtLayers mvt.Layers
	for _, l := range layers {
		items := l.idx.query(t.Bound(l.buffer / tileSizePixels))
		if len(items) == 0 {
			continue
		}

		fc := geojson.NewFeatureCollection()
		for _, r := range items {
			// projection works in place, the rendered geometry is shared between tiles
			f := geojson.NewFeature(orb.Clone(r.Geometry))
			f.ID = r.ID
			f.Properties = properties(r.Attrs)
			fc.Append(f)
		}

		ml := mvt.NewLayer(l.name, fc)
		ml.ProjectToTile(t)
		ml.Clip(clipBound(l.buffer, ml.Extent))
		ml.RemoveEmpty(1.0, 1.0)
		if len(ml.Features) > 0 {
			mvtLayers = append(mvtLayers, ml)
		}
	}

	if len(mvtLayers) == 0 {
		return nil, nil
	}

	data, err := mvt.Marshal(mvtLayers)
	if err != nil {
		return nil, fmt.Errorf("error encoding tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clipBound(bufferPixels float64, extent uint32) orb.Bound {
	pad := bufferPixels * float64(extent) / tileSizePixels
	return orb.Bound{
		Min: orb.Point{-pad, -pad},
		Max: orb.Point{float64(extent) + pad, float64(extent) + pad},
	}
}

// TilePath returns the location of a tile below dir.
func TilePath(dir string, t maptile.Tile) string {
	return filepath.Join(dir,
		strconv.FormatUint(uint64(t.Z), 10),
		strconv.FormatUint(uint64(t.X), 10),
		strconv.FormatUint(uint64(t.Y), 10)+".pbf",
	)
}

func writeTile(dir string, t maptile.Tile, data []byte) error {
	path := TilePath(dir, t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
