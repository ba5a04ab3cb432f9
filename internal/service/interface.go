package service

import (
	"context"
	"errors"
)

var (
	ErrAPIKeyMissing    = errors.New("weather provider API key not configured")
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// WeatherService looks up current conditions at one location.
type WeatherService interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error)
	Name() string
}

// Conditions is a provider-neutral current weather reading. PlaceName and
// Country are empty when the provider cannot name the location.
type Conditions struct {
	PlaceName   string
	Country     string
	Condition   string
	Description string
	Icon        string
	TempC       float64
	FeelsLikeC  float64
	HumidityPct float64
	PressureHPa float64
	WindSpeedMs float64
	WindDeg     float64
	CloudsPct   float64
}
