package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb/maptile"
	"github.com/transitopia/cyclemap/tiles"
	"github.com/valyala/fasthttp"
)

func testServer(tb testing.TB) *server {
	tb.Helper()

	dir := tb.TempDir()
	path := tiles.TilePath(dir, maptile.New(10, 22, 6))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("tile"), 0o644); err != nil {
		tb.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, tiles.MetadataFile), []byte(`{"name":"test"}`), 0o644); err != nil {
		tb.Fatal(err)
	}

	s, err := newServer(dir)
	if err != nil {
		tb.Fatal(err)
	}
	return s
}

func getTileCtx(z, x, y string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.SetUserValue("z", z)
	ctx.SetUserValue("x", x)
	ctx.SetUserValue("y", y)
	return ctx
}

func TestTileHandler(t *testing.T) {
	s := testServer(t)

	cases := []struct {
		name    string
		z, x, y string
		status  int
	}{
		{"found", "6", "10", "22", http.StatusOK},
		{"found with extension", "6", "10", "22.pbf", http.StatusOK},
		{"missing", "6", "11", "22", http.StatusNoContent},
		{"not a number", "6", "ten", "22", http.StatusBadRequest},
		{"outside of zoom", "6", "64", "22", http.StatusBadRequest},
		{"zoom too deep", "40", "0", "0", http.StatusBadRequest},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := getTileCtx(c.z, c.x, c.y)
			s.TileHandler(ctx)

			if got := ctx.Response.StatusCode(); got != c.status {
				t.Fatalf("expected status %d; got %d", c.status, got)
			}
			if c.status != http.StatusOK {
				return
			}
			if string(ctx.Response.Body()) != "tile" {
				t.Fatalf("unexpected body %q", ctx.Response.Body())
			}
			if string(ctx.Response.Header.Peek(fasthttp.HeaderContentEncoding)) != "gzip" {
				t.Fatalf("expected gzip content encoding")
			}
		})
	}
}

func TestMetadataHandler(t *testing.T) {
	s := testServer(t)

	ctx := &fasthttp.RequestCtx{}
	s.MetadataHandler(ctx)
	if ctx.Response.StatusCode() != http.StatusOK || string(ctx.Response.Body()) != `{"name":"test"}` {
		t.Fatalf("unexpected response %d %q", ctx.Response.StatusCode(), ctx.Response.Body())
	}

	empty, err := newServer(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx = &fasthttp.RequestCtx{}
	empty.MetadataHandler(ctx)
	if ctx.Response.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404 without metadata; got %d", ctx.Response.StatusCode())
	}
}

func BenchmarkHandlers(b *testing.B) {
	s := testServer(b)

	b.ResetTimer()

	b.Run("TileHandler-hit", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			s.TileHandler(getTileCtx("6", "10", "22.pbf"))
		}
	})

	b.Run("TileHandler-miss", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			s.TileHandler(getTileCtx("6", "11", "22.pbf"))
		}
	})
}

func TestServeStopsOnCancel(t *testing.T) {
	s := testServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.serve(ctx, ln)
	}()

	status, _, err := fasthttp.GetTimeout(nil, "http://"+ln.Addr().String()+"/metadata.json", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusOK {
		t.Fatalf("expected status %d; got %d", http.StatusOK, status)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown; got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeCanceledBeforeStart(t *testing.T) {
	s := testServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.serve(ctx, ln)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeClosedListener(t *testing.T) {
	s := testServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ln.Close()

	// a listener closed before serving looks like a shutdown
	if err := s.serve(context.Background(), ln); err != nil {
		t.Fatalf("expected nil for a closed listener; got %v", err)
	}
}

func TestRunInvalidAddress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, "no-port", t.TempDir()); err == nil {
		t.Fatal("expected an error for an address without a port")
	}
}
