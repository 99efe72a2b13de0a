package tagset

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
)

// TagSet is the read-only tag lookup surface the classifiers work against.
type TagSet interface {
	// Has reports whether key is present. With values, the tag must also equal one of them.
	Has(key string, values ...string) bool
	Get(key string) (string, bool)
	// Numeric returns the tag parsed as a number. Unparseable values are reported as absent.
	Numeric(key string) (float64, bool)
}

type Map map[string]string

var _ TagSet = Map(nil)

func FromOSM(tags osm.Tags) Map {
	return Map(tags.Map())
}

func (m Map) Has(key string, values ...string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	if len(values) == 0 {
		return true
	}
	return slices.Contains(values, v)
}

func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Map) Numeric(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return ParseNumeric(v)
}

const kmPerMile = 1.609344

// ParseNumeric parses plain numbers and speeds suffixed with "mph" or "km/h".
// Speeds in mph are converted to km/h. Negative and non-finite values are rejected.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	factor := 1.0
	switch {
	case strings.HasSuffix(s, "mph"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "mph"))
		factor = kmPerMile
	case strings.HasSuffix(s, "km/h"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "km/h"))
	case strings.HasSuffix(s, "kmh"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "kmh"))
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0, false
	}
	return n * factor, true
}
