// Package server serves a generated tile directory over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/paulmach/orb/maptile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/transitopia/cyclemap/tiles"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const maxZoom = 22

var meter = otel.Meter("github.com/transitopia/cyclemap/server")

func Run(ctx context.Context, address, dir string) error {
	if err := setupTelemetry(ctx); err != nil {
		return fmt.Errorf("failed to initialize otel metrics: %w", err)
	}

	s, err := newServer(dir)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", address, err)
	}
	s.log.Info("Server listening", "address", ln.Addr().String())

	return s.serve(ctx, ln)
}

// serve blocks until ctx is done or the listener fails. ln is closed on return.
func (s *server) serve(ctx context.Context, ln net.Listener) error {
	srv := &fasthttp.Server{
		ReadTimeout: time.Second,
		Handler:     s.router().Handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		ln.Close()
		if err != nil {
			return fmt.Errorf("error serving tiles: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := srv.ShutdownWithContext(shutdownCtx)
	// Serve may not have registered the listener with the server yet
	ln.Close()
	<-errCh
	return err
}

type server struct {
	dir      string
	metadata []byte
	log      *slog.Logger

	metricTileRequests metric.Int64Counter
	metricTileMisses   metric.Int64Counter
	metricTileBytes    metric.Int64Counter
}

func newServer(dir string) (*server, error) {
	metadata, err := os.ReadFile(filepath.Join(dir, tiles.MetadataFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading metadata: %w", err)
	}

	s := &server{
		dir:      dir,
		metadata: metadata,
		log:      slog.Default().With("component", "server", "tile_dir", dir),
	}
	if s.metricTileRequests, err = meter.Int64Counter("http_tile_request_total"); err != nil {
		return nil, err
	}
	if s.metricTileMisses, err = meter.Int64Counter("http_tile_miss_total"); err != nil {
		return nil, err
	}
	if s.metricTileBytes, err = meter.Int64Counter("http_tile_bytes_total"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *server) router() *router.Router {
	r := router.New()
	r.GET("/tiles/{z}/{x}/{y}", s.TileHandler)
	r.GET("/"+tiles.MetadataFile, s.MetadataHandler)
	r.Handle(http.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))
	return r
}

func parseTile(ctx *fasthttp.RequestCtx) (maptile.Tile, bool) {
	zS, _ := ctx.UserValue("z").(string)
	xS, _ := ctx.UserValue("x").(string)
	yS, _ := ctx.UserValue("y").(string)
	yS = strings.TrimSuffix(yS, ".pbf")

	z, err := strconv.ParseUint(zS, 10, 32)
	if err != nil || z > maxZoom {
		return maptile.Tile{}, false
	}
	x, err := strconv.ParseUint(xS, 10, 32)
	if err != nil || x >= 1<<z {
		return maptile.Tile{}, false
	}
	y, err := strconv.ParseUint(yS, 10, 32)
	if err != nil || y >= 1<<z {
		return maptile.Tile{}, false
	}

	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), true
}

func (s *server) TileHandler(ctx *fasthttp.RequestCtx) {
	s.metricTileRequests.Add(ctx, 1)

	t, ok := parseTile(ctx)
	if !ok {
		ctx.Response.SetStatusCode(http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(tiles.TilePath(s.dir, t))
	if errors.Is(err, os.ErrNotExist) {
		s.metricTileMisses.Add(ctx, 1)
		ctx.Response.SetStatusCode(http.StatusNoContent)
		return
	}
	if err != nil {
		s.log.ErrorContext(ctx, "error reading tile", "path", tiles.TilePath(s.dir, t), "error", err)
		ctx.Response.SetStatusCode(http.StatusInternalServerError)
		ctx.Response.SetBodyString("failed to read tile")
		return
	}

	s.metricTileBytes.Add(ctx, int64(len(data)))

	ctx.Response.Header.SetContentType("application/vnd.mapbox-vector-tile")
	ctx.Response.Header.Set(fasthttp.HeaderContentEncoding, "gzip")
	ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowOrigin, "*")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(data)
}

func (s *server) MetadataHandler(ctx *fasthttp.RequestCtx) {
	if s.metadata == nil {
		ctx.Response.SetStatusCode(http.StatusNotFound)
		return
	}

	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.Header.Set(fasthttp.HeaderAccessControlAllowOrigin, "*")
	ctx.Response.SetStatusCode(http.StatusOK)
	ctx.Response.SetBody(s.metadata)
}
