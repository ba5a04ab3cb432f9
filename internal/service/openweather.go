package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vzahanych/balloon-atlas/internal/config"
	"github.com/vzahanych/balloon-atlas/pkg/telemetry"
	"go.uber.org/zap"
)

type OpenWeatherService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	params  map[string]string
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

func NewOpenWeatherServiceWithConfig(cfg config.WeatherServiceConfig, timeout time.Duration, logger *zap.Logger, tele *telemetry.Telemetry) *OpenWeatherService {
	return &OpenWeatherService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
		},
		params: cfg.Params,
		logger: logger,
		tele:   tele,
	}
}

func (s *OpenWeatherService) Name() string {
	return config.ProviderOpenWeather
}

func (s *OpenWeatherService) CurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error) {
	tracer := s.tele.GetTracer()
	ctx, span := tracer.Start(ctx, "openweather.CurrentConditions")
	defer span.End()

	span.SetAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lon", lon),
		attribute.String("service", s.Name()),
	)

	if s.apiKey == "" {
		span.SetAttributes(
			attribute.Bool("success", false),
			attribute.String("error", "API key not configured"),
		)
		return nil, ErrAPIKeyMissing
	}

	s.logger.Debug("Fetching current conditions from OpenWeatherMap",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon))

	u, err := url.Parse(fmt.Sprintf("%s/weather", s.baseURL))
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lon", fmt.Sprintf("%.6f", lon))
	q.Set("appid", s.apiKey)
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
		span.SetAttributes(attribute.Bool("success", false))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	span.SetAttributes(attribute.Bool("success", true))

	conditions := &Conditions{
		PlaceName:   payload.Name,
		Country:     payload.Sys.Country,
		TempC:       payload.Main.Temp,
		FeelsLikeC:  payload.Main.FeelsLike,
		HumidityPct: payload.Main.Humidity,
		PressureHPa: payload.Main.Pressure,
		WindSpeedMs: payload.Wind.Speed,
		WindDeg:     payload.Wind.Deg,
		CloudsPct:   payload.Clouds.All,
	}
	if len(payload.Weather) > 0 {
		conditions.Condition = payload.Weather[0].Main
		conditions.Description = payload.Weather[0].Description
		conditions.Icon = payload.Weather[0].Icon
	}

	return conditions, nil
}
