package weather

import "github.com/vzahanych/balloon-atlas/internal/service"

// continent is a lat/lon box, half-open on both axes, with a rule that picks
// the sub-region inside it.
type continent struct {
	minLat, maxLat float64
	minLon, maxLon float64
	name           func(lat, lon float64) string
}

func (c continent) contains(lat, lon float64) bool {
	return lat >= c.minLat && lat < c.maxLat && lon >= c.minLon && lon < c.maxLon
}

// continents are checked in order; the first box containing the point wins.
var continents = []continent{
	{15, 72, -168, -52, func(lat, lon float64) string {
		switch {
		case lat > 55:
			return "Northern Canada/Alaska"
		case lon < -100:
			return "Western North America"
		default:
			return "Eastern North America"
		}
	}},
	{-56, 15, -82, -34, func(lat, lon float64) string {
		switch {
		case lat < -20:
			return "Southern South America"
		case lon > -60:
			return "Eastern South America"
		default:
			return "Western South America"
		}
	}},
	{36, 72, -10, 40, func(lat, lon float64) string {
		switch {
		case lat > 60:
			return "Northern Europe"
		case lon < 15:
			return "Western Europe"
		default:
			return "Eastern Europe"
		}
	}},
	{-35, 38, -18, 52, func(lat, lon float64) string {
		switch {
		case lat > 15:
			return "Northern Africa"
		case lat < -10:
			return "Southern Africa"
		default:
			return "Central Africa"
		}
	}},
	{-10, 72, 26, 180, func(lat, lon float64) string {
		switch {
		case lat > 50:
			return "Northern Asia"
		case lon < 75:
			return "Middle East/Central Asia"
		case lon > 135:
			return "East Asia"
		default:
			return "South Asia"
		}
	}},
	{-45, -10, 110, 180, func(lat, lon float64) string {
		if lon > 160 {
			return "South Pacific Islands"
		}
		return "Australia/Oceania"
	}},
}

// RegionFor names the broad geographic region of a coordinate. Polar caps and
// open oceans are tested before land masses.
func RegionFor(lat, lon float64) string {
	switch {
	case lat > 66:
		return "Arctic Ocean"
	case lat < -66:
		return "Antarctic Ocean"
	case lon >= -180 && lon < -70:
		if lat > 0 {
			return "North Pacific Ocean"
		}
		return "South Pacific Ocean"
	case lon >= -70 && lon < -20:
		if lat > 0 {
			return "North Atlantic Ocean"
		}
		return "South Atlantic Ocean"
	case lon >= 20 && lon < 120 && lat < 0:
		return "Indian Ocean"
	}

	for _, c := range continents {
		if c.contains(lat, lon) {
			return c.name(lat, lon)
		}
	}

	if lat > 0 {
		return "Northern Hemisphere Waters"
	}
	return "Southern Hemisphere Waters"
}

// LocationName prefers the provider's place name and falls back to the
// coordinate's region. A known country is appended in both cases.
func LocationName(c *service.Conditions, lat, lon float64) string {
	var name, country string
	if c != nil {
		name = c.PlaceName
		if c.Country != unknown {
			country = c.Country
		}
	}

	if name == "" || name == unknown {
		name = RegionFor(lat, lon)
	}
	if country != "" {
		return name + ", " + country
	}
	return name
}
