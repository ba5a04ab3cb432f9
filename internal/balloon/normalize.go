package balloon

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultResource is the nested array field read when a slice is a JSON object.
const DefaultResource = "balloons"

var (
	latAliases = []string{"lat", "latitude"}
	lonAliases = []string{"lon", "longitude", "long", "lng"}
	altAliases = []string{"altitude", "alt", "height"}
)

// position is the canonical triple shared by every accepted wire shape.
type position struct {
	lat, lon, alt float64
}

// itemDecoder inspects one raw item structurally and reports whether it matched.
type itemDecoder func(raw json.RawMessage) (position, bool)

var (
	// top-level array items: positional first, aliased object second
	arrayItemDecoders = []itemDecoder{decodePositional, decodeAliased}
	// items nested under the resource field are objects only
	nestedItemDecoders = []itemDecoder{decodeAliased}
)

// Normalizer turns raw slice payloads into Observations.
type Normalizer struct {
	resource string
}

func NewNormalizer(resource string) *Normalizer {
	if resource == "" {
		resource = DefaultResource
	}
	return &Normalizer{resource: resource}
}

// Normalize decodes one raw slice. Malformed items and unrecognized top-level
// shapes are dropped silently; the result is never an error.
func (n *Normalizer) Normalize(raw []byte, hoursAgo int, now time.Time) []Observation {
	items, decoders := n.items(raw)
	if len(items) == 0 {
		return []Observation{}
	}

	capturedAt := now.Add(-time.Duration(hoursAgo) * time.Hour)
	observations := make([]Observation, 0, len(items))

	for index, item := range items {
		pos, ok := decodeItem(item, decoders)
		if !ok || !finite(pos.lat) || !finite(pos.lon) || !finite(pos.alt) {
			continue
		}
		observations = append(observations, Observation{
			ID:         observationID(hoursAgo, index),
			Lat:        pos.lat,
			Lon:        pos.lon,
			AltitudeKm: pos.alt,
			HoursAgo:   hoursAgo,
			CapturedAt: capturedAt,
		})
	}

	return observations
}

func (n *Normalizer) items(raw []byte) ([]json.RawMessage, []itemDecoder) {
	switch leadingByte(raw) {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, nil
		}
		return items, arrayItemDecoders
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, nil
		}
		nested, ok := envelope[n.resource]
		if !ok || leadingByte(nested) != '[' {
			return nil, nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(nested, &items); err != nil {
			return nil, nil
		}
		return items, nestedItemDecoders
	default:
		return nil, nil
	}
}

func decodeItem(raw json.RawMessage, decoders []itemDecoder) (position, bool) {
	for _, decode := range decoders {
		if pos, ok := decode(raw); ok {
			return pos, true
		}
	}
	return position{}, false
}

func decodePositional(raw json.RawMessage) (position, bool) {
	if leadingByte(raw) != '[' {
		return position{}, false
	}
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) < 3 {
		return position{}, false
	}
	return position{
		lat: parseNumber(fields[0]),
		lon: parseNumber(fields[1]),
		alt: parseNumber(fields[2]),
	}, true
}

func decodeAliased(raw json.RawMessage) (position, bool) {
	if leadingByte(raw) != '{' {
		return position{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return position{}, false
	}

	lat, okLat := lookup(fields, latAliases)
	lon, okLon := lookup(fields, lonAliases)
	alt, okAlt := lookup(fields, altAliases)
	if !okLat || !okLon || !okAlt {
		return position{}, false
	}

	return position{
		lat: parseNumber(lat),
		lon: parseNumber(lon),
		alt: parseNumber(alt),
	}, true
}

// lookup returns the first alias present and not null.
func lookup(fields map[string]json.RawMessage, aliases []string) (json.RawMessage, bool) {
	for _, alias := range aliases {
		if v, ok := fields[alias]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

// parseNumber accepts JSON numbers and numeric strings; anything else is NaN.
func parseNumber(raw json.RawMessage) float64 {
	if isNull(raw) {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func leadingByte(raw []byte) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
