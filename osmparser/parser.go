package osmparser

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/sourcegraph/conc/pool"
	"github.com/transitopia/cyclemap/feature"
	"github.com/transitopia/cyclemap/kv"
	"github.com/transitopia/cyclemap/tagset"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/transitopia/cyclemap/osmparser")

// Layer turns OSM elements into output features.
type Layer interface {
	Name() string
	// PreprocessRelation is called once per relation before any way is read. The returned
	// records are attached to the relation's member ways.
	PreprocessRelation(rel *osm.Relation) []feature.RelationInfo
	// ProcessFeature may be called concurrently for different sources.
	ProcessFeature(src feature.Source, fc *feature.Collector)
}

type Config struct {
	Threads  int
	Progress bool
	Logger   *slog.Logger
}

func ConfigDefault() Config {
	return Config{
		Threads:  runtime.GOMAXPROCS(-1),
		Progress: true,
	}
}

type pendingWay struct {
	features []*feature.Feature
	nodes    []osm.NodeID
}

type pendingRelation struct {
	features []*feature.Feature
	members  osm.Members
}

// Parser reads an OSM extract in three passes (relations, ways, nodes) and produces the
// features of one layer with their geometry attached.
type Parser struct {
	cfg   Config
	layer Layer
	log   *slog.Logger

	routes      *kv.MutexMap[osm.WayID, []feature.RelationInfo]
	wayNodes    kv.KVS[osm.WayID, []osm.NodeID]
	coords      kv.KVS[osm.NodeID, orb.Point]
	memberWays  *set[osm.WayID]
	neededNodes *set[osm.NodeID]

	mu        sync.Mutex
	ways      []pendingWay
	relations []pendingRelation
	points    []*feature.Feature

	metricObjects  metric.Int64Counter
	metricFeatures metric.Int64Counter
	metricDropped  metric.Int64Counter
}

func New(layer Layer, cfg Config) (*Parser, error) {
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.GOMAXPROCS(-1)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	p := &Parser{
		cfg:   cfg,
		layer: layer,
		log:   log.With("component", "osmparser", "layer", layer.Name()),
	}

	var err error
	p.metricObjects, err = meter.Int64Counter("osm_objects_read_total")
	if err != nil {
		return nil, err
	}
	p.metricFeatures, err = meter.Int64Counter("features_created_total")
	if err != nil {
		return nil, err
	}
	p.metricDropped, err = meter.Int64Counter("features_dropped_total")
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Parser) reset() {
	p.routes = kv.NewMutexMap[osm.WayID, []feature.RelationInfo]()
	p.wayNodes = kv.NewIntXMap[osm.WayID, []osm.NodeID]()
	p.coords = kv.NewIntXMap[osm.NodeID, orb.Point]()
	p.memberWays = newSet[osm.WayID]()
	p.neededNodes = newSet[osm.NodeID]()
	p.ways = nil
	p.relations = nil
	p.points = nil
}

// Parse reads the file at path and returns the layer's features in a deterministic order:
// nodes, then ways, then relations, each by id. Features whose geometry can't be built are
// logged and dropped.
func (p *Parser) Parse(ctx context.Context, path string) ([]*feature.Feature, error) {
	p.reset()
	log := p.log.With("input", path)

	if err := p.readRelations(ctx, path); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "relations read",
		"route_ways", humanize.Comma(int64(p.routes.Len())),
		"polygons", len(p.relations),
	)

	if err := p.readWays(ctx, path); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "ways read",
		"features", humanize.Comma(int64(len(p.ways))),
		"needed_nodes", humanize.Comma(int64(p.neededNodes.Len())),
	)

	if err := p.readNodes(ctx, path); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "nodes read",
		"points", humanize.Comma(int64(len(p.points))),
		"coords", humanize.Comma(int64(p.coords.Len())),
	)

	features := p.resolve(ctx)
	log.InfoContext(ctx, "features built", "count", humanize.Comma(int64(len(features))))

	return features, nil
}

func (p *Parser) readRelations(ctx context.Context, path string) error {
	// sequential, so route records of a way keep the file order of their relations
	return p.scan(ctx, path, pass{name: "1/3 reading relations", skipNodes: true, skipWays: true}, func(o osm.Object) {
		rel, ok := o.(*osm.Relation)
		if !ok {
			return
		}
		p.metricObjects.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(osm.TypeRelation))))

		if infos := p.layer.PreprocessRelation(rel); len(infos) > 0 {
			for _, m := range rel.Members {
				if m.Type != osm.TypeWay {
					continue
				}
				p.routes.Update(osm.WayID(m.Ref), func(old []feature.RelationInfo, _ bool) []feature.RelationInfo {
					return append(old, infos...)
				})
			}
		}

		if rel.Tags.Find("type") != "multipolygon" {
			return
		}
		src := &relationSource{Map: tagset.FromOSM(rel.Tags), rel: rel}
		fc := feature.NewCollector(src)
		p.layer.ProcessFeature(src, fc)
		if len(fc.Features()) == 0 {
			return
		}

		p.relations = append(p.relations, pendingRelation{features: fc.Features(), members: rel.Members})
		for _, m := range rel.Members {
			if m.Type == osm.TypeWay {
				p.memberWays.Add(osm.WayID(m.Ref))
			}
		}
	})
}

func (p *Parser) readWays(ctx context.Context, path string) error {
	pool := pool.New().WithMaxGoroutines(p.cfg.Threads)
	err := p.scan(ctx, path, pass{name: "2/3 reading ways", skipNodes: true, skipRelations: true}, func(o osm.Object) {
		way, ok := o.(*osm.Way)
		if !ok {
			return
		}
		pool.Go(func() {
			p.processWay(ctx, way)
		})
	})
	pool.Wait()
	return err
}

func (p *Parser) processWay(ctx context.Context, way *osm.Way) {
	p.metricObjects.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(osm.TypeWay))))

	routes, _ := p.routes.Get(way.ID)
	src := &waySource{Map: tagset.FromOSM(way.Tags), way: way, relations: routes}
	fc := feature.NewCollector(src)
	p.layer.ProcessFeature(src, fc)

	member := p.memberWays.Contains(way.ID)
	if len(fc.Features()) == 0 && !member {
		return
	}

	nodes := way.Nodes.NodeIDs()
	p.neededNodes.Add(nodes...)
	if member {
		p.wayNodes.Set(way.ID, nodes)
	}
	if len(fc.Features()) > 0 {
		p.mu.Lock()
		p.ways = append(p.ways, pendingWay{features: fc.Features(), nodes: nodes})
		p.mu.Unlock()
	}
}

func (p *Parser) readNodes(ctx context.Context, path string) error {
	return p.scan(ctx, path, pass{name: "3/3 reading nodes", skipWays: true, skipRelations: true}, func(o osm.Object) {
		node, ok := o.(*osm.Node)
		if !ok {
			return
		}
		p.metricObjects.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(osm.TypeNode))))

		if p.neededNodes.Contains(node.ID) {
			p.coords.Set(node.ID, orb.Point{node.Lon, node.Lat})
		}
		if len(node.Tags) == 0 {
			return
		}

		src := &nodeSource{Map: tagset.FromOSM(node.Tags), node: node}
		fc := feature.NewCollector(src)
		p.layer.ProcessFeature(src, fc)
		for _, f := range fc.Features() {
			f.Geometry = orb.Point{node.Lon, node.Lat}
			p.points = append(p.points, f)
		}
	})
}

func (p *Parser) resolve(ctx context.Context) []*feature.Feature {
	features := make([]*feature.Feature, 0, len(p.points)+len(p.ways)+len(p.relations))
	features = append(features, p.points...)

	for _, w := range p.ways {
		p.resolveWay(ctx, w)
		features = append(features, w.features...)
	}
	for _, r := range p.relations {
		p.resolveRelation(ctx, r)
		features = append(features, r.features...)
	}

	features = slices.DeleteFunc(features, func(f *feature.Feature) bool {
		if f.Geometry != nil {
			return false
		}
		p.metricDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", f.Kind.String())))
		p.log.WarnContext(ctx, "dropping feature without geometry",
			"osm_type", f.SourceType,
			"osm_id", f.SourceID,
			"kind", f.Kind.String(),
		)
		return true
	})

	slices.SortStableFunc(features, func(a, b *feature.Feature) int {
		return cmp.Or(
			cmp.Compare(typeRank(a.SourceType), typeRank(b.SourceType)),
			cmp.Compare(a.SourceID, b.SourceID),
		)
	})

	for _, f := range features {
		attrs := []attribute.KeyValue{attribute.String("kind", f.Kind.String())}
		if class, ok := f.Attr("class"); ok {
			attrs = append(attrs, attribute.String("class", fmt.Sprint(class)))
		}
		p.metricFeatures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	return features
}

func typeRank(t osm.Type) int {
	switch t {
	case osm.TypeNode:
		return 0
	case osm.TypeWay:
		return 1
	}
	return 2
}
