package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/transitopia/cyclemap/cycling"
	"github.com/transitopia/cyclemap/internal/stats"
	"github.com/transitopia/cyclemap/internal/telemetry"
	"github.com/transitopia/cyclemap/linemerge"
	"github.com/transitopia/cyclemap/osmparser"
	"github.com/transitopia/cyclemap/server"
	"github.com/transitopia/cyclemap/tiles"

	_ "net/http/pprof"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"
)

func main() {
	app := &cli.App{
		Name:        "cyclemap",
		Description: "Cycling infrastructure vector tiles from OpenStreetMap",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve generated tiles",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "dir",
						Aliases:   []string{"d"},
						Value:     "data/tiles",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
					},
				},
				Action: serve,
			},
			{
				Name:    "generate",
				Aliases: []string{"g"},
				Usage:   "generates cycling tiles from an osm extract",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "input",
						Aliases:   []string{"i"},
						TakesFile: true,
						Usage:     "osm pbf or xml file, overrides --area",
					},
					&cli.StringFlag{
						Name:  "area",
						Value: "british-columbia",
					},
					&cli.StringFlag{
						Name:      "download-dir",
						Value:     "data/sources",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "output",
						Aliases:   []string{"o"},
						Value:     "data/tiles",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "config",
						Aliases:   []string{"c"},
						TakesFile: true,
						Usage:     "yaml file overriding the layer defaults",
					},
					&cli.IntFlag{
						Name:        "threads",
						Aliases:     []string{"t"},
						DefaultText: "max",
					},
					&cli.IntFlag{
						Name:  "minzoom",
						Value: 0,
					},
					&cli.IntFlag{
						Name:  "maxzoom",
						Value: 14,
					},
					&cli.StringFlag{
						Name:  "otel.endpoint",
						Usage: "otlp http endpoint, telemetry is disabled when empty",
					},
					&cli.BoolFlag{
						Name: "debug",
					},
					&cli.StringFlag{
						Name:      "stats",
						TakesFile: true,
						Usage:     "write a runtime stats report to this file",
					},
					&cli.StringFlag{
						Name:        "pprof.listen",
						DefaultText: "",
					},
					&cli.BoolFlag{
						Name:        "pprof.profile",
						DefaultText: "",
					},
					&cli.BoolFlag{
						Name:        "pprof.heap",
						DefaultText: "",
					},
				},
				Action: generate,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// inputPath resolves the extract to read. Areas follow the download naming used by
// Geofabrik, e.g. british-columbia is stored as british_columbia.osm.pbf.
func inputPath(input, area, downloadDir string) string {
	if input != "" {
		return input
	}
	return filepath.Join(downloadDir, strings.ReplaceAll(area, "-", "_")+".osm.pbf")
}

func layerConfig(path string, maxZoom int) (cycling.Config, error) {
	cfg := cycling.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = cycling.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	}
	if maxZoom < cfg.MaxZoom {
		cfg.MaxZoom = maxZoom
	}
	return cfg, nil
}

func metadata(cfg cycling.Config, summary tiles.Summary, minZoom, maxZoom int) tiles.Metadata {
	return tiles.Metadata{
		Name:        cycling.ProfileName,
		Description: cycling.ProfileDescription,
		Attribution: cycling.ProfileAttribution,
		Version:     cycling.ProfileVersion,
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
		Bounds:      summary.Bound,
		Layers: []tiles.LayerMetadata{
			{
				ID:      cfg.LayerName,
				MinZoom: max(cfg.MinZoomLine, minZoom),
				MaxZoom: maxZoom,
			},
		},
	}
}

func generate(ctx *cli.Context) error {
	client, err := telemetry.Setup(ctx.Context, "cyclemap", ctx.String("otel.endpoint"), ctx.Bool("debug"))
	if err != nil {
		return fmt.Errorf("error setting up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Flush(shutdownCtx); err != nil {
			slog.Error("error flushing telemetry", "error", err)
		}
		client.Shutdown(shutdownCtx)
	}()

	log := slog.Default()

	threads := ctx.Int("threads")
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	log = log.With("threads", threads)

	if pprofListen := ctx.String("pprof.listen"); pprofListen != "" {
		go func() {
			log.Info("Starting pprof server")
			err := http.ListenAndServe(pprofListen, nil)
			if err != nil {
				log.Error("Error starting pprof server", "error", err)
			}
		}()
	}

	if ctx.Bool("pprof.profile") {
		f, err := os.OpenFile("profile.cpu.pprof", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("error creating pprof file: %w", err)
		}
		err = pprof.StartCPUProfile(f)
		if err != nil {
			return fmt.Errorf("error starting pprof: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	minZoom, maxZoom := ctx.Int("minzoom"), ctx.Int("maxzoom")

	cfg, err := layerConfig(ctx.String("config"), maxZoom)
	if err != nil {
		return err
	}
	layer := cycling.NewLayer(cfg, linemerge.Merger{})

	var collector *stats.Collector
	statsFile := ctx.String("stats")
	if statsFile != "" {
		collector, err = stats.NewCollector(time.Second)
		if err != nil {
			return err
		}
		collector.Start()
	}

	input := inputPath(ctx.String("input"), ctx.String("area"), ctx.String("download-dir"))
	log.Info("reading osm data", "input", input)

	parser, err := osmparser.New(layer, osmparser.Config{
		Threads:  threads,
		Progress: true,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("error creating parser: %w", err)
	}
	features, err := parser.Parse(ctx.Context, input)
	if err != nil {
		return fmt.Errorf("error parsing osm data: %w", err)
	}
	if collector != nil {
		collector.Mark("parse")
	}

	if ctx.Bool("pprof.heap") {
		err := writeHeapProfile("profile")
		if err != nil {
			return fmt.Errorf("error writing heap profile: %w", err)
		}
	}

	output := ctx.String("output")
	writer, err := tiles.NewWriter(output, tiles.Config{
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
		Threads:     threads,
		ZoomThreads: 2,
		Logger:      log,
	}, layer)
	if err != nil {
		return fmt.Errorf("error creating tile writer: %w", err)
	}
	summary, err := writer.Write(ctx.Context, features)
	if err != nil {
		return fmt.Errorf("error writing tiles: %w", err)
	}
	if collector != nil {
		collector.Mark("tiles")
	}

	err = tiles.WriteMetadata(output, metadata(cfg, summary, minZoom, maxZoom))
	if err != nil {
		return fmt.Errorf("error writing metadata: %w", err)
	}

	log.Info("generation complete", "output", output, "tiles", summary.Tiles())

	if collector != nil {
		report := collector.Stop()
		fmt.Print(report.String())
		if err := report.SaveToFile(statsFile); err != nil {
			return fmt.Errorf("error saving stats: %w", err)
		}
	}

	return nil
}

func writeHeapProfile(name string) error {
	f, err := os.Create(name + ".heap.prof")
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.WriteHeapProfile(f)
}

func serve(ctx *cli.Context) error {
	slog.Info("serving tiles", "dir", ctx.String("dir"))
	return server.Run(ctx.Context, ctx.String("listen"), ctx.String("dir"))
}
