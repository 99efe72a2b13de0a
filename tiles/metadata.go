package tiles

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mailru/easyjson/jwriter"
	"github.com/paulmach/orb"
)

// Metadata is the TileJSON document written next to the tiles.
type Metadata struct {
	Name        string
	Description string
	Attribution string
	Version     string

	MinZoom int
	MaxZoom int
	Bounds  orb.Bound

	Layers []LayerMetadata
}

type LayerMetadata struct {
	ID      string
	MinZoom int
	MaxZoom int
}

const MetadataFile = "metadata.json"

// MarshalEasyJSON supports easyjson.Marshaler interface
func (m Metadata) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"tilejson":"3.0.0","scheme":"xyz","format":"pbf"`)
	w.RawString(`,"name":`)
	w.String(m.Name)
	w.RawString(`,"description":`)
	w.String(m.Description)
	w.RawString(`,"attribution":`)
	w.String(m.Attribution)
	w.RawString(`,"version":`)
	w.String(m.Version)
	w.RawString(`,"minzoom":`)
	w.Int(m.MinZoom)
	w.RawString(`,"maxzoom":`)
	w.Int(m.MaxZoom)

	w.RawString(`,"bounds":[`)
	w.Float64(m.Bounds.Min.X())
	w.RawByte(',')
	w.Float64(m.Bounds.Min.Y())
	w.RawByte(',')
	w.Float64(m.Bounds.Max.X())
	w.RawByte(',')
	w.Float64(m.Bounds.Max.Y())
	w.RawByte(']')

	center := m.Bounds.Center()
	w.RawString(`,"center":[`)
	w.Float64(center.X())
	w.RawByte(',')
	w.Float64(center.Y())
	w.RawByte(',')
	w.Int(m.MinZoom)
	w.RawByte(']')

	w.RawString(`,"vector_layers":[`)
	for i, l := range m.Layers {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawString(`{"id":`)
		w.String(l.ID)
		w.RawString(`,"minzoom":`)
		w.Int(l.MinZoom)
		w.RawString(`,"maxzoom":`)
		w.Int(l.MaxZoom)
		w.RawString(`,"fields":{}}`)
	}
	w.RawString(`]}`)
}

// MarshalJSON supports json.Marshaler interface
func (m Metadata) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	m.MarshalEasyJSON(&w)
	return w.BuildBytes()
}

func WriteMetadata(dir string, m Metadata) error {
	data, err := m.MarshalJSON()
	if err != nil {
		return fmt.Errorf("error encoding metadata: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o644)
}
