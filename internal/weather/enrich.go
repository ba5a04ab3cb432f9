// Package weather attaches current conditions to sampled balloon positions and
// summarizes them.
package weather

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vzahanych/balloon-atlas/internal/balloon"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"github.com/vzahanych/balloon-atlas/internal/observability"
	"github.com/vzahanych/balloon-atlas/internal/service"
	"github.com/vzahanych/balloon-atlas/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultLookupTimeout = 5 * time.Second

type Enricher struct {
	provider    service.WeatherService
	timeout     time.Duration
	sampleLimit int
	clock       clockwork.Clock
	logger      *zap.Logger
	tele        *telemetry.Telemetry
	metrics     *observability.Metrics
}

func NewEnricher(cfg *config.WeatherConfig, provider service.WeatherService, logger *zap.Logger, tele *telemetry.Telemetry) *Enricher {
	limit := cfg.SampleLimit
	if limit <= 0 {
		limit = balloon.DefaultSampleLimit
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	return &Enricher{
		provider:    provider,
		timeout:     timeout,
		sampleLimit: limit,
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		tele:        tele,
	}
}

func (e *Enricher) SetMetricsRecorder(metrics *observability.Metrics) {
	e.metrics = metrics
}

// SampleLimit is the number of observations Select hands to Enrich.
func (e *Enricher) SampleLimit() int {
	return e.sampleLimit
}

// Select picks the geographically spread subset of observations to enrich.
func (e *Enricher) Select(observations []balloon.Observation) []balloon.Observation {
	return balloon.SelectRepresentative(observations, e.sampleLimit)
}

// Enrich looks up every observation concurrently. Failed lookups are dropped,
// so a total failure returns no samples and a zero Summary rather than an error.
// Samples keep the order of the input observations.
func (e *Enricher) Enrich(ctx context.Context, observations []balloon.Observation) ([]Sample, Summary) {
	ctx, span := e.tele.GetTracer().Start(ctx, "weather.Enrich")
	defer span.End()

	start := e.clock.Now()
	span.SetAttributes(
		attribute.Int("observations", len(observations)),
		attribute.String("provider", e.provider.Name()),
	)

	results := make([]*Sample, len(observations))

	var wg sync.WaitGroup
	for idx, obs := range observations {
		wg.Add(1)
		go func(idx int, obs balloon.Observation) {
			defer wg.Done()
			results[idx] = e.lookup(ctx, obs)
		}(idx, obs)
	}
	wg.Wait()

	samples := make([]Sample, 0, len(results))
	for _, s := range results {
		if s != nil {
			samples = append(samples, *s)
		}
	}

	summary := Summarize(samples)
	e.metrics.ObserveStage("enrich", e.clock.Since(start))

	span.SetAttributes(attribute.Int("samples", len(samples)))
	e.logger.Info("Weather enrichment complete",
		zap.String("provider", e.provider.Name()),
		zap.Int("requested", len(observations)),
		zap.Int("succeeded", len(samples)))

	return samples, summary
}

func (e *Enricher) lookup(ctx context.Context, obs balloon.Observation) *Sample {
	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	conditions, err := e.provider.CurrentConditions(lookupCtx, obs.Lat, obs.Lon)
	e.metrics.RecordWeatherLookup(e.provider.Name(), err)
	if err != nil {
		e.logger.Warn("Weather lookup failed",
			zap.String("balloon_id", obs.ID),
			zap.Float64("lat", obs.Lat),
			zap.Float64("lon", obs.Lon),
			zap.Error(err))
		e.tele.RecordError(ctx, err, map[string]interface{}{
			"balloon_id": obs.ID,
			"provider":   e.provider.Name(),
		})
		return nil
	}

	return &Sample{
		Balloon: obs,
		Weather: newReading(conditions, obs.Lat, obs.Lon),
	}
}
