package tiles

import (
	"log/slog"
	"runtime"
)

type Config struct {
	MinZoom int
	MaxZoom int
	// Threads bounds the number of tiles encoded concurrently within a zoom.
	Threads int
	// ZoomThreads bounds the number of zoom levels rendered concurrently.
	ZoomThreads int
	Logger      *slog.Logger
}

func ConfigDefault() Config {
	return Config{
		MinZoom:     0,
		MaxZoom:     14,
		Threads:     runtime.GOMAXPROCS(-1),
		ZoomThreads: 2,
	}
}
