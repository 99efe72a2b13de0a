package cycling

import (
	"fmt"
	"maps"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v2"
)

type Config struct {
	LayerName string `yaml:"layer_name"`

	BufferPixels float64 `yaml:"buffer_pixels"`
	// Lines are rendered from this zoom on.
	MinZoomLine int `yaml:"min_zoom_line"`
	// Bike parking points and areas are hidden below this zoom.
	MinZoomDetails int `yaml:"min_zoom_details"`
	// Details of cycling paths (name, surface, routes) are not encoded below this zoom,
	// they make tiles too big.
	MinZoomAttr int `yaml:"min_zoom_attr"`

	// Minimum length in meters for merged lines, keyed by zoom. A zoom without an entry uses
	// the entry of the next higher zoom that has one, or 0 when there is none.
	MinLength map[int]float64 `yaml:"min_length"`

	MaxZoom                  int     `yaml:"max_zoom"`
	TolerancePixels          float64 `yaml:"tolerance_pixels"`
	TolerancePixelsAtMaxZoom float64 `yaml:"tolerance_pixels_at_max_zoom"`
}

func DefaultConfig() Config {
	return Config{
		LayerName:      "transitopia_cycling",
		BufferPixels:   4,
		MinZoomLine:    6,
		MinZoomDetails: 12,
		MinZoomAttr:    13,
		MinLength: map[int]float64{
			4: 1_000,
			5: 500,
			6: 100,
			7: 50,
		},
		MaxZoom:                  14,
		TolerancePixels:          0.1,
		TolerancePixelsAtMaxZoom: 0.0625,
	}
}

// LoadConfig reads YAML overrides on top of DefaultConfig. Entries of min_length replace the
// default threshold of their zoom, the other default zooms are kept.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	defaults := cfg.MinLength

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config: %w", err)
	}

	// strict mode rejects keys that are already present in a map
	cfg.MinLength = nil
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("error parsing config %s: %w", path, err)
	}

	overrides := cfg.MinLength
	cfg.MinLength = maps.Clone(defaults)
	maps.Copy(cfg.MinLength, overrides)

	return cfg, nil
}

// MinLengthAt returns the minimum merged line length in meters for a zoom level.
func (c Config) MinLengthAt(zoom int) float64 {
	zooms := make([]int, 0, len(c.MinLength))
	for z := range c.MinLength {
		zooms = append(zooms, z)
	}
	slices.Sort(zooms)

	for _, z := range zooms {
		if z >= zoom {
			return c.MinLength[z]
		}
	}
	return 0
}

const tileSizePixels = 256

// Tolerance returns the simplification tolerance for a zoom level in degrees.
func (c Config) Tolerance(zoom int) float64 {
	px := c.TolerancePixels
	if zoom >= c.MaxZoom {
		px = c.TolerancePixelsAtMaxZoom
	}
	return px * 360 / (tileSizePixels * math.Exp2(float64(zoom)))
}
