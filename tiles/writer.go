// Package tiles renders classified features into a directory of gzipped Mapbox vector tiles.
package tiles

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/google/btree"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/sourcegraph/conc/pool"
	"github.com/transitopia/cyclemap/feature"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	meter  = otel.Meter("github.com/transitopia/cyclemap/tiles")
	tracer = otel.Tracer("github.com/transitopia/cyclemap/tiles")
)

// Layer post-processes the rendered features of one layer at one zoom, e.g. merging lines.
// Each call owns items exclusively.
type Layer interface {
	Name() string
	PostProcess(zoom int, items []*feature.Rendered) ([]*feature.Rendered, error)
}

type ZoomSummary struct {
	Zoom     int
	Features int
	Tiles    int64
	Bytes    int64
}

type Summary struct {
	Zooms []ZoomSummary
	// Bound covers every feature that was written.
	Bound orb.Bound
}

func (s Summary) Tiles() int64 {
	var n int64
	for _, z := range s.Zooms {
		n += z.Tiles
	}
	return n
}

type Writer struct {
	dir    string
	cfg    Config
	layers map[string]Layer
	log    *slog.Logger

	metricTiles       metric.Int64Counter
	metricBytes       metric.Int64Counter
	metricMergeInput  metric.Int64Counter
	metricMergeOutput metric.Int64Counter
}

func NewWriter(dir string, cfg Config, layers ...Layer) (*Writer, error) {
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.ZoomThreads <= 0 {
		cfg.ZoomThreads = 1
	}
	if cfg.MinZoom > cfg.MaxZoom {
		return nil, fmt.Errorf("min zoom %d is above max zoom %d", cfg.MinZoom, cfg.MaxZoom)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	w := &Writer{
		dir:    dir,
		cfg:    cfg,
		layers: make(map[string]Layer, len(layers)),
		log:    log.With("component", "tiles"),
	}
	for _, l := range layers {
		w.layers[l.Name()] = l
	}

	var err error
	if w.metricTiles, err = meter.Int64Counter("tiles_written_total"); err != nil {
		return nil, err
	}
	if w.metricBytes, err = meter.Int64Counter("tiles_written_bytes_total"); err != nil {
		return nil, err
	}
	if w.metricMergeInput, err = meter.Int64Counter("merge_input_features_total"); err != nil {
		return nil, err
	}
	if w.metricMergeOutput, err = meter.Int64Counter("merge_output_features_total"); err != nil {
		return nil, err
	}

	return w, nil
}

// Write renders every zoom level of the configured range and writes its tiles.
func (w *Writer) Write(ctx context.Context, features []*feature.Feature) (Summary, error) {
	summary := Summary{
		Zooms: make([]ZoomSummary, w.cfg.MaxZoom-w.cfg.MinZoom+1),
	}
	first := true
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		if first {
			summary.Bound = f.Geometry.Bound()
			first = false
		} else {
			summary.Bound = summary.Bound.Union(f.Geometry.Bound())
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.ZoomThreads)
	for z := w.cfg.MinZoom; z <= w.cfg.MaxZoom; z++ {
		g.Go(func() error {
			s, err := w.writeZoom(ctx, z, features)
			if err != nil {
				return fmt.Errorf("error writing zoom %d: %w", z, err)
			}
			summary.Zooms[z-w.cfg.MinZoom] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	return summary, nil
}

func (w *Writer) writeZoom(ctx context.Context, zoom int, features []*feature.Feature) (ZoomSummary, error) {
	ctx, span := tracer.Start(ctx, "tiles.writeZoom", trace.WithAttributes(attribute.Int("zoom", zoom)))
	defer span.End()

	summary := ZoomSummary{Zoom: zoom}
	log := w.log.With("zoom", zoom)

	layers, err := w.render(ctx, zoom, features)
	if err != nil {
		return summary, err
	}

	z := maptile.Zoom(zoom)
	tileset := btree.NewG(32, func(a, b maptile.Tile) bool {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y)) < 0
	})
	for _, l := range layers {
		summary.Features += len(l.idx.items)
		for _, item := range l.idx.items {
			for t := range cover(item.Geometry, z) {
				tileset.ReplaceOrInsert(t)
			}
		}
	}

	var tiles, size atomic.Int64
	attrs := metric.WithAttributes(attribute.Int("zoom", zoom))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(w.cfg.Threads)
	tileset.Ascend(func(t maptile.Tile) bool {
		p.Go(func(ctx context.Context) error {
			data, err := encodeTile(t, layers)
			if err != nil || data == nil {
				return err
			}
			if err := writeTile(w.dir, t, data); err != nil {
				return err
			}

			tiles.Add(1)
			size.Add(int64(len(data)))
			w.metricTiles.Add(ctx, 1, attrs)
			w.metricBytes.Add(ctx, int64(len(data)), attrs)
			return nil
		})
		return true
	})
	if err := p.Wait(); err != nil {
		return summary, err
	}

	summary.Tiles = tiles.Load()
	summary.Bytes = size.Load()
	log.InfoContext(ctx, "zoom written",
		"features", humanize.Comma(int64(summary.Features)),
		"tiles", humanize.Comma(summary.Tiles),
		"size", humanize.Bytes(uint64(summary.Bytes)),
	)

	return summary, nil
}

// render resolves every feature at zoom and runs each layer's post-processing on its share.
func (w *Writer) render(ctx context.Context, zoom int, features []*feature.Feature) ([]layerTile, error) {
	byLayer := make(map[string][]*feature.Rendered)
	for _, f := range features {
		if r, ok := f.At(zoom); ok {
			byLayer[r.Layer] = append(byLayer[r.Layer], r)
		}
	}

	names := make([]string, 0, len(byLayer))
	for name := range byLayer {
		names = append(names, name)
	}
	slices.Sort(names)

	attrs := metric.WithAttributes(attribute.Int("zoom", zoom))
	out := make([]layerTile, 0, len(names))
	for _, name := range names {
		items := byLayer[name]
		if l, ok := w.layers[name]; ok {
			w.metricMergeInput.Add(ctx, int64(len(items)), attrs)

			var err error
			items, err = l.PostProcess(zoom, items)
			if err != nil {
				return nil, fmt.Errorf("error post-processing layer %s: %w", name, err)
			}

			w.metricMergeOutput.Add(ctx, int64(len(items)), attrs)
		}
		if len(items) == 0 {
			continue
		}

		lt := layerTile{name: name, idx: newIndex(items)}
		for _, item := range items {
			lt.buffer = max(lt.buffer, item.BufferPixels)
		}
		out = append(out, lt)
	}

	return out, nil
}
