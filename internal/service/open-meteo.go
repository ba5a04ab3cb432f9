package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vzahanych/balloon-atlas/internal/config"
	"github.com/vzahanych/balloon-atlas/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const openMeteoCurrentFields = "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,wind_speed_10m,wind_direction_10m,cloud_cover,weather_code"

// OpenMeteoService needs no API key but cannot name locations.
type OpenMeteoService struct {
	baseURL string
	client  *http.Client
	params  map[string]string
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

type openMeteoResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		Apparent      float64 `json:"apparent_temperature"`
		Humidity      float64 `json:"relative_humidity_2m"`
		Pressure      float64 `json:"surface_pressure"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
		CloudCover    float64 `json:"cloud_cover"`
		WeatherCode   *int    `json:"weather_code"`
	} `json:"current"`
}

func NewOpenMeteoServiceWithConfig(cfg config.WeatherServiceConfig, timeout time.Duration, logger *zap.Logger, tele *telemetry.Telemetry) *OpenMeteoService {
	return &OpenMeteoService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		params: cfg.Params,
		logger: logger,
		tele:   tele,
	}
}

func (s *OpenMeteoService) Name() string {
	return config.ProviderOpenMeteo
}

func (s *OpenMeteoService) CurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error) {
	ctx, span := s.tele.GetTracer().Start(ctx, "open-meteo.CurrentConditions")
	defer span.End()

	span.SetAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lon", lon),
	)

	u, err := url.Parse(fmt.Sprintf("%s/forecast", s.baseURL))
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("latitude", fmt.Sprintf("%.6f", lat))
	q.Set("longitude", fmt.Sprintf("%.6f", lon))
	q.Set("current", openMeteoCurrentFields)
	for key, value := range s.params {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c := payload.Current
	conditions := &Conditions{
		TempC:       c.Temperature,
		FeelsLikeC:  c.Apparent,
		HumidityPct: c.Humidity,
		PressureHPa: c.Pressure,
		WindSpeedMs: c.WindSpeed,
		WindDeg:     c.WindDirection,
		CloudsPct:   c.CloudCover,
	}
	if c.WeatherCode != nil {
		conditions.Condition, conditions.Description = describeWMOCode(*c.WeatherCode)
	}

	return conditions, nil
}

// describeWMOCode maps WMO weather interpretation codes onto the
// OpenWeatherMap-style primary condition groups.
func describeWMOCode(code int) (string, string) {
	switch {
	case code == 0:
		return "Clear", "clear sky"
	case code >= 1 && code <= 3:
		return "Clouds", "partly cloudy"
	case code == 45 || code == 48:
		return "Fog", "fog"
	case code >= 51 && code <= 57:
		return "Drizzle", "drizzle"
	case code >= 61 && code <= 67, code >= 80 && code <= 82:
		return "Rain", "rain"
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return "Snow", "snow"
	case code >= 95:
		return "Thunderstorm", "thunderstorm"
	default:
		return "", ""
	}
}
