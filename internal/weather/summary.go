package weather

import (
	"math"

	"github.com/vzahanych/balloon-atlas/internal/balloon"
	"github.com/vzahanych/balloon-atlas/internal/service"
)

const unknown = "Unknown"

// Reading is the weather half of a Sample as served to clients.
type Reading struct {
	Location    string  `json:"location"`
	Country     string  `json:"country"`
	TempC       float64 `json:"temp"`
	FeelsLikeC  float64 `json:"feelsLike"`
	HumidityPct float64 `json:"humidity"`
	PressureHPa float64 `json:"pressure"`
	WindSpeedMs float64 `json:"windSpeed"`
	WindDeg     float64 `json:"windDeg"`
	CloudsPct   float64 `json:"clouds"`
	Condition   string  `json:"weather"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Sample pairs a sampled observation with the conditions at its position.
type Sample struct {
	Balloon balloon.Observation `json:"balloon"`
	Weather Reading             `json:"weather"`
}

type Summary struct {
	AvgTemp            float64        `json:"avgTemp"`
	AvgHumidity        float64        `json:"avgHumidity"`
	AvgPressure        float64        `json:"avgPressure"`
	AvgWindSpeed       float64        `json:"avgWindSpeed"`
	ConditionHistogram map[string]int `json:"conditions"`
	SampleCount        int            `json:"dataPoints"`
}

func newReading(c *service.Conditions, lat, lon float64) Reading {
	country := c.Country
	if country == "" {
		country = unknown
	}
	return Reading{
		Location:    LocationName(c, lat, lon),
		Country:     country,
		TempC:       c.TempC,
		FeelsLikeC:  c.FeelsLikeC,
		HumidityPct: c.HumidityPct,
		PressureHPa: c.PressureHPa,
		WindSpeedMs: c.WindSpeedMs,
		WindDeg:     c.WindDeg,
		CloudsPct:   c.CloudsPct,
		Condition:   c.Condition,
		Description: c.Description,
		Icon:        c.Icon,
		Lat:         lat,
		Lon:         lon,
	}
}

// Summarize averages over the given samples, rounded to one decimal place.
// No samples yields zero averages and an empty histogram.
func Summarize(samples []Sample) Summary {
	summary := Summary{ConditionHistogram: map[string]int{}}
	if len(samples) == 0 {
		return summary
	}

	var temp, humidity, pressure, wind float64
	for _, s := range samples {
		condition := s.Weather.Condition
		if condition == "" {
			condition = unknown
		}
		summary.ConditionHistogram[condition]++

		temp += s.Weather.TempC
		humidity += s.Weather.HumidityPct
		pressure += s.Weather.PressureHPa
		wind += s.Weather.WindSpeedMs
	}

	n := float64(len(samples))
	summary.AvgTemp = round1(temp / n)
	summary.AvgHumidity = round1(humidity / n)
	summary.AvgPressure = round1(pressure / n)
	summary.AvgWindSpeed = round1(wind / n)
	summary.SampleCount = len(samples)

	return summary
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
