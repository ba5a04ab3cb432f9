package balloon

import (
	"math"
	"sort"
)

// DefaultSampleLimit is the number of observations sent for weather enrichment.
const DefaultSampleLimit = 10

// Recent returns the observations of slices younger than hours, in slice order.
// Recent(slices, 1) is the current-hour set.
func Recent(slices []TimeSlice, hours int) []Observation {
	recent := make([]Observation, 0)
	for _, s := range slices {
		if s.HoursAgo < hours {
			recent = append(recent, s.Observations...)
		}
	}
	return recent
}

// BucketKey places an observation on a 30° latitude by 60° longitude grid.
func BucketKey(o Observation) int {
	return int(math.Floor(o.Lat/30))*100 + int(math.Floor(o.Lon/60))
}

// SelectRepresentative picks at most limit observations spread across grid
// buckets: stable sort by bucket, then every floor(N/limit)-th element. The
// result is deterministic for a given input order and the input is not modified.
func SelectRepresentative(observations []Observation, limit int) []Observation {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	if len(observations) <= limit {
		return observations
	}

	sorted := make([]Observation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return BucketKey(sorted[i]) < BucketKey(sorted[j])
	})

	stride := len(sorted) / limit
	selected := make([]Observation, 0, limit)
	for i := 0; i < limit && i*stride < len(sorted); i++ {
		selected = append(selected, sorted[i*stride])
	}
	return selected
}
