package cmd

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/vzahanych/balloon-atlas/internal/aggregator"
	"github.com/vzahanych/balloon-atlas/internal/balloon"
	"github.com/vzahanych/balloon-atlas/internal/cache"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"github.com/vzahanych/balloon-atlas/internal/insight"
	"github.com/vzahanych/balloon-atlas/internal/observability"
	"github.com/vzahanych/balloon-atlas/internal/server"
	"github.com/vzahanych/balloon-atlas/internal/service"
	"github.com/vzahanych/balloon-atlas/internal/weather"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API",
	Long:  `Start the HTTP server that serves balloon positions, weather samples and insights with caching and observability.`,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	zl := log.Logger

	zl.Info("Starting balloon atlas server",
		zap.String("config_path", configPath),
		zap.String("environment", cfg.Environment),
		zap.Bool("telemetry_enabled", tele.IsEnabled()),
		zap.Int("server_port", cfg.Server.Port))

	metrics := observability.NewMetrics()

	feed := balloon.NewHTTPFeed(cfg.Feed.BaseURL, time.Duration(cfg.Feed.Timeout)*time.Second, zl)
	ingester := balloon.NewIngester(&cfg.Feed, feed, zl, tele)
	ingester.SetMetricsRecorder(metrics)

	enricher := weather.NewEnricher(&cfg.Weather, newWeatherProvider(cfg, zl), zl, tele)
	enricher.SetMetricsRecorder(metrics)

	gemini, err := insight.NewGemini(cmd.Context(), &cfg.Insight, zl, tele)
	if err != nil {
		return err
	}
	if !gemini.Configured() {
		zl.Warn("Insight API key not configured, insights will be degraded")
	}

	store, err := cache.New(&cfg.Cache, zl)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	agg := aggregator.NewAggregator(ingester, enricher, gemini, store, zl, tele)
	agg.SetMetricsRecorder(metrics)

	warmer := aggregator.NewWarmer(agg,
		time.Duration(cfg.Cache.RefreshInterval)*time.Second,
		time.Duration(cfg.Cache.RefreshTimeout)*time.Second,
		zl)
	if err := warmer.Start(); err != nil {
		return err
	}
	defer warmer.Stop()

	srv := server.NewServer(cfg.Server, agg, metrics, zl, tele)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			zl.Error("Server error", zap.Error(err))
		}
		return err
	case <-cmd.Context().Done():
		zl.Info("Shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			zl.Error("Error during server shutdown", zap.Error(err))
			return err
		}
		if err := tele.Shutdown(ctx); err != nil {
			zl.Warn("Error during telemetry shutdown", zap.Error(err))
		}
		_ = log.Sync()

		zl.Info("Server shutdown complete")
		return nil
	}
}

// newWeatherProvider picks the configured provider behind a circuit breaker.
// OpenWeatherMap that is disabled or has no API key falls back to Open-Meteo.
func newWeatherProvider(cfg *config.Config, logger *zap.Logger) service.WeatherService {
	timeout := time.Duration(cfg.Weather.Timeout) * time.Second

	var provider service.WeatherService
	switch {
	case cfg.Weather.Provider == config.ProviderOpenWeather && cfg.Weather.OpenWeather.Enabled && cfg.Weather.OpenWeather.APIKey != "":
		provider = service.NewOpenWeatherServiceWithConfig(cfg.Weather.OpenWeather, timeout, logger, tele)
	case cfg.Weather.Provider == config.ProviderOpenWeather:
		logger.Warn("OpenWeatherMap disabled or missing API key, falling back to Open-Meteo")
		provider = service.NewOpenMeteoServiceWithConfig(cfg.Weather.OpenMeteo, timeout, logger, tele)
	default:
		provider = service.NewOpenMeteoServiceWithConfig(cfg.Weather.OpenMeteo, timeout, logger, tele)
	}

	logger.Info("Registered weather service", zap.String("service", provider.Name()))
	return service.NewBreakerService(provider, cfg.Weather.Breaker, logger)
}
