package balloon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var normalizeNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func canonical(obs []Observation) [][3]float64 {
	out := make([][3]float64, 0, len(obs))
	for _, o := range obs {
		out = append(out, [3]float64{o.Lat, o.Lon, o.AltitudeKm})
	}
	return out
}

func TestNormalize_ShapesProduceIdenticalCanonicalFields(t *testing.T) {
	n := NewNormalizer("")

	shapes := map[string]string{
		"positional":      `[[10.5, -20.25, 14.2], [-33, 151, 9.75, "extra"]]`,
		"short aliases":   `[{"lat": 10.5, "lon": -20.25, "alt": 14.2}, {"lat": -33, "lng": 151, "height": 9.75}]`,
		"long aliases":    `[{"latitude": 10.5, "longitude": -20.25, "altitude": 14.2}, {"latitude": -33, "long": 151, "altitude": 9.75}]`,
		"nested resource": `{"balloons": [{"lat": 10.5, "lon": -20.25, "altitude": 14.2}, {"latitude": -33, "longitude": 151, "alt": 9.75}]}`,
		"numeric strings": `[["10.5", "-20.25", "14.2"], [" -33 ", "151", "9.75"]]`,
	}

	want := [][3]float64{{10.5, -20.25, 14.2}, {-33, 151, 9.75}}
	for name, raw := range shapes {
		t.Run(name, func(t *testing.T) {
			got := n.Normalize([]byte(raw), 0, normalizeNow)
			assert.Equal(t, want, canonical(got))
		})
	}
}

func TestNormalize_AssignsIdentityAndCaptureTime(t *testing.T) {
	n := NewNormalizer("")

	got := n.Normalize([]byte(`[[1,2,3],"garbage",[4,5,6]]`), 3, normalizeNow)
	require.Len(t, got, 2)

	assert.Equal(t, "balloon-03-0", got[0].ID)
	assert.Equal(t, "balloon-03-2", got[1].ID, "index is the position within the raw slice")
	assert.Equal(t, 3, got[1].HoursAgo)
	assert.Equal(t, normalizeNow.Add(-3*time.Hour), got[0].CapturedAt)
}

func TestNormalize_DropsNonFinite(t *testing.T) {
	n := NewNormalizer("")

	raw := `[
		["NaN", 20, 5],
		[10, "Infinity", 5],
		[10, 20, "-Inf"],
		[10, 20, null],
		[10, 20, true],
		["abc", 20, 5],
		[10, 20, 5]
	]`
	got := n.Normalize([]byte(raw), 0, normalizeNow)

	require.Len(t, got, 1)
	assert.Equal(t, [3]float64{10, 20, 5}, canonical(got)[0])
}

func TestNormalize_RetainsOutOfRangeCoordinates(t *testing.T) {
	n := NewNormalizer("")

	got := n.Normalize([]byte(`[[200, -500, 99999]]`), 0, normalizeNow)

	require.Len(t, got, 1)
	assert.Equal(t, 200.0, got[0].Lat)
	assert.Equal(t, -500.0, got[0].Lon)
}

func TestNormalize_DropsIncompleteItems(t *testing.T) {
	n := NewNormalizer("")

	raw := `[
		[1, 2],
		{"lat": 1, "lon": 2},
		{"latitude": 1, "altitude": 2},
		{"lat": null, "latitude": 4, "lon": 5, "alt": 6},
		{"lat": 0, "lon": 0, "alt": 0}
	]`
	got := n.Normalize([]byte(raw), 0, normalizeNow)

	assert.Equal(t, [][3]float64{{4, 5, 6}, {0, 0, 0}}, canonical(got))
}

func TestNormalize_UnrecognizedTopLevelYieldsNothing(t *testing.T) {
	n := NewNormalizer("")

	for _, raw := range []string{
		``,
		`null`,
		`"balloons"`,
		`42`,
		`{"data": [[1, 2, 3]]}`,
		`{"balloons": {"lat": 1}}`,
		`{"balloons": [[1, 2, 3]]}`,
		`[[1, 2, 3]`,
	} {
		got := n.Normalize([]byte(raw), 0, normalizeNow)
		assert.NotNil(t, got, "input %q", raw)
		assert.Empty(t, got, "input %q", raw)
	}
}

func TestNormalize_CustomResource(t *testing.T) {
	n := NewNormalizer("points")

	got := n.Normalize([]byte(`{"points": [{"lat": 1, "lon": 2, "alt": 3}]}`), 0, normalizeNow)
	assert.Len(t, got, 1)

	got = n.Normalize([]byte(`{"balloons": [{"lat": 1, "lon": 2, "alt": 3}]}`), 0, normalizeNow)
	assert.Empty(t, got)
}
