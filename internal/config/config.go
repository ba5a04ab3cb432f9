package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

var configValue atomic.Value

func GetConfig() *Config {
	return configValue.Load().(*Config)
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Version     string          `mapstructure:"version"`
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Feed        FeedConfig      `mapstructure:"feed"`
	Weather     WeatherConfig   `mapstructure:"weather"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Insight     InsightConfig   `mapstructure:"insight"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`

	// CORSOrigins lists origins allowed to call the API; empty allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// FeedConfig describes the hour-indexed balloon position feed.
type FeedConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Slices      int    `mapstructure:"slices"`
	Timeout     int    `mapstructure:"timeout"`
	Concurrency int    `mapstructure:"concurrency"`
	Resource    string `mapstructure:"resource"`
}

type WeatherConfig struct {
	Provider    string               `mapstructure:"provider"`
	OpenWeather WeatherServiceConfig `mapstructure:"openweather"`
	OpenMeteo   WeatherServiceConfig `mapstructure:"open_meteo"`
	Timeout     int                  `mapstructure:"timeout"`
	SampleLimit int                  `mapstructure:"sample_limit"`
	Breaker     BreakerConfig        `mapstructure:"breaker"`
}

type WeatherServiceConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	BaseURL string            `mapstructure:"base_url"`
	APIKey  string            `mapstructure:"api_key"`
	Params  map[string]string `mapstructure:"params"`
}

// BreakerConfig tunes the circuit breaker wrapped around the weather provider.
// Interval and Timeout are seconds.
type BreakerConfig struct {
	MaxRequests         uint32 `mapstructure:"max_requests"`
	Interval            int    `mapstructure:"interval"`
	Timeout             int    `mapstructure:"timeout"`
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

type CacheConfig struct {
	Backend         string      `mapstructure:"backend"`
	TTL             int         `mapstructure:"ttl"`
	RefreshInterval int         `mapstructure:"refresh_interval"`
	RefreshTimeout  int         `mapstructure:"refresh_timeout"`
	Redis           RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// InsightConfig configures the Gemini client. An empty BaseURL or APIVersion
// keeps the SDK default.
type InsightConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIVersion string `mapstructure:"api_version"`
	Timeout    int    `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

const (
	ProviderOpenWeather = "openweather"
	ProviderOpenMeteo   = "open-meteo"

	// MaxFeedSlices is the feed's retention: hours 00 through 23.
	MaxFeedSlices = 24

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

func NewDefaultConfig() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "development",
		Server: ServerConfig{
			Port:         5000,
			Host:         "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 180,
			IdleTimeout:  60,
		},
		Feed: FeedConfig{
			BaseURL:     "https://a.windbornesystems.com/treasure",
			Slices:      24,
			Timeout:     5,
			Concurrency: 1,
			Resource:    "balloons",
		},
		Weather: WeatherConfig{
			Provider: ProviderOpenWeather,
			OpenWeather: WeatherServiceConfig{
				Enabled: true,
				BaseURL: "https://api.openweathermap.org/data/2.5",
				APIKey:  "",
				Params: map[string]string{
					"units": "metric",
				},
			},
			OpenMeteo: WeatherServiceConfig{
				Enabled: true,
				BaseURL: "https://api.open-meteo.com/v1",
				Params: map[string]string{
					"wind_speed_unit": "ms",
				},
			},
			Timeout:     5,
			SampleLimit: 10,
			Breaker: BreakerConfig{
				MaxRequests:         1,
				Interval:            60,
				Timeout:             30,
				ConsecutiveFailures: 5,
			},
		},
		Cache: CacheConfig{
			Backend:         CacheBackendMemory,
			TTL:             300,
			RefreshInterval: 0,
			RefreshTimeout:  120,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				DB:     0,
				Prefix: "balloon-atlas:",
			},
		},
		Insight: InsightConfig{
			Model:      "gemini-2.5-flash",
			BaseURL:    "https://generativelanguage.googleapis.com/",
			APIVersion: "v1beta",
			Timeout:    30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "tempo:4317",
		},
	}
}

// Validate reports the first setting that would make the pipeline unusable.
func (c *Config) Validate() error {
	for _, o := range c.Server.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("server.cors_origins entry %q must be \"*\" or an http(s) origin", o)
		}
	}
	if c.Feed.BaseURL == "" {
		return errors.New("feed.base_url is required")
	}
	if c.Feed.Slices <= 0 || c.Feed.Slices > MaxFeedSlices {
		return fmt.Errorf("feed.slices must be between 1 and %d, got %d", MaxFeedSlices, c.Feed.Slices)
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive, got %d", c.Feed.Timeout)
	}
	if c.Feed.Concurrency <= 0 {
		return fmt.Errorf("feed.concurrency must be positive, got %d", c.Feed.Concurrency)
	}
	if c.Weather.Timeout <= 0 {
		return fmt.Errorf("weather.timeout must be positive, got %d", c.Weather.Timeout)
	}
	switch c.Weather.Provider {
	case ProviderOpenWeather, ProviderOpenMeteo:
	default:
		return fmt.Errorf("unknown weather.provider %q", c.Weather.Provider)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %d", c.Cache.TTL)
	}
	if c.Cache.RefreshInterval < 0 {
		return fmt.Errorf("cache.refresh_interval must not be negative, got %d", c.Cache.RefreshInterval)
	}
	if c.Cache.RefreshTimeout <= 0 {
		return fmt.Errorf("cache.refresh_timeout must be positive, got %d", c.Cache.RefreshTimeout)
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	return nil
}
