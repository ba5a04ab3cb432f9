package balloon

// Hemispheres counts observations strictly on either side of the equator and
// the prime meridian; zero coordinates count in neither.
type Hemispheres struct {
	Northern int `json:"northern"`
	Southern int `json:"southern"`
	Eastern  int `json:"eastern"`
	Western  int `json:"western"`
}

type AggregateStats struct {
	AvgAltitude float64     `json:"avgAltitude"`
	MinAltitude float64     `json:"minAltitude"`
	MaxAltitude float64     `json:"maxAltitude"`
	AvgLat      float64     `json:"avgLat"`
	AvgLon      float64     `json:"avgLon"`
	TotalActive int         `json:"totalActive"`
	Hemispheres Hemispheres `json:"hemispheres"`
}

// CalculateStats reduces the full historical set. An empty set yields the zero
// value rather than an absent result.
func CalculateStats(observations []Observation) AggregateStats {
	var stats AggregateStats
	if len(observations) == 0 {
		return stats
	}

	var sumAlt, sumLat, sumLon float64
	stats.MinAltitude = observations[0].AltitudeKm
	stats.MaxAltitude = observations[0].AltitudeKm

	for _, o := range observations {
		sumAlt += o.AltitudeKm
		sumLat += o.Lat
		sumLon += o.Lon

		if o.AltitudeKm < stats.MinAltitude {
			stats.MinAltitude = o.AltitudeKm
		}
		if o.AltitudeKm > stats.MaxAltitude {
			stats.MaxAltitude = o.AltitudeKm
		}

		if o.HoursAgo == 0 {
			stats.TotalActive++
		}

		switch {
		case o.Lat > 0:
			stats.Hemispheres.Northern++
		case o.Lat < 0:
			stats.Hemispheres.Southern++
		}
		switch {
		case o.Lon > 0:
			stats.Hemispheres.Eastern++
		case o.Lon < 0:
			stats.Hemispheres.Western++
		}
	}

	n := float64(len(observations))
	stats.AvgAltitude = sumAlt / n
	stats.AvgLat = sumLat / n
	stats.AvgLon = sumLon / n

	return stats
}
