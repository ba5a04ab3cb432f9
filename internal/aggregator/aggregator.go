// Package aggregator composes ingestion, enrichment and insight generation into
// the cached payloads served over HTTP.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vzahanych/balloon-atlas/internal/balloon"
	"github.com/vzahanych/balloon-atlas/internal/cache"
	"github.com/vzahanych/balloon-atlas/internal/insight"
	"github.com/vzahanych/balloon-atlas/internal/observability"
	"github.com/vzahanych/balloon-atlas/internal/weather"
	"github.com/vzahanych/balloon-atlas/pkg/logger"
	"github.com/vzahanych/balloon-atlas/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	FullDataKey    = "fullData"
	BalloonDataKey = "balloonData"
)

var ErrEmptyQuestion = errors.New("question is required")

type Ingester interface {
	Collect(ctx context.Context) *balloon.Report
}

type Enricher interface {
	Select(observations []balloon.Observation) []balloon.Observation
	Enrich(ctx context.Context, observations []balloon.Observation) ([]weather.Sample, weather.Summary)
}

type InsightGenerator interface {
	GenerateInsights(ctx context.Context, data insight.Context) insight.Insights
	AnswerQuestion(ctx context.Context, question string, data insight.Context) string
}

type WeatherData struct {
	Data    []weather.Sample `json:"data"`
	Summary weather.Summary  `json:"summary"`
}

type DataResponse struct {
	Balloon *balloon.Report  `json:"balloon"`
	Weather WeatherData      `json:"weather"`
	AI      insight.Insights `json:"ai"`
	Cached  bool             `json:"cached"`
}

type BalloonResponse struct {
	balloon.Report
	Cached bool `json:"cached"`
}

type AnswerResponse struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Aggregator has no single-flight on a miss: concurrent callers may each run
// the pipeline and overwrite the same key.
type Aggregator struct {
	ingester Ingester
	enricher Enricher
	insights InsightGenerator
	cache    cache.Store
	clock    clockwork.Clock
	logger   *zap.Logger
	tele     *telemetry.Telemetry
	metrics  *observability.Metrics
}

func NewAggregator(ingester Ingester, enricher Enricher, insights InsightGenerator, store cache.Store, logger *zap.Logger, tele *telemetry.Telemetry) *Aggregator {
	return &Aggregator{
		ingester: ingester,
		enricher: enricher,
		insights: insights,
		cache:    store,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		tele:     tele,
	}
}

// SetMetricsRecorder sets the metrics recorder for the aggregator
func (a *Aggregator) SetMetricsRecorder(metrics *observability.Metrics) {
	a.metrics = metrics
}

func (a *Aggregator) SetClock(c clockwork.Clock) {
	a.clock = c
}

// GetData serves the composed payload, running the whole pipeline on a miss.
func (a *Aggregator) GetData(ctx context.Context) (*DataResponse, error) {
	ctx, span := a.tele.GetTracer().Start(ctx, "aggregator.GetData")
	defer span.End()

	reqLogger := logger.FromContext(ctx, a.logger)

	var cached DataResponse
	if a.lookup(ctx, reqLogger, FullDataKey, &cached) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		cached.Cached = true
		return &cached, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	reqLogger.Info("Cache miss, running full pipeline", zap.String("cache_key", FullDataKey))

	ctx = detached(ctx)
	resp := a.compose(ctx)
	if err := a.store(ctx, reqLogger, FullDataKey, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBalloons serves the ingestion-only payload.
func (a *Aggregator) GetBalloons(ctx context.Context) (*BalloonResponse, error) {
	ctx, span := a.tele.GetTracer().Start(ctx, "aggregator.GetBalloons")
	defer span.End()

	reqLogger := logger.FromContext(ctx, a.logger)

	var cached BalloonResponse
	if a.lookup(ctx, reqLogger, BalloonDataKey, &cached) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		cached.Cached = true
		return &cached, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	ctx = detached(ctx)
	resp := &BalloonResponse{Report: *a.ingester.Collect(ctx)}
	if err := a.store(ctx, reqLogger, BalloonDataKey, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// AnswerQuestion reuses the cached composed payload when present. Otherwise it
// recomputes ingestion and enrichment without generating insights or caching.
func (a *Aggregator) AnswerQuestion(ctx context.Context, question string) (*AnswerResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := a.tele.GetTracer().Start(ctx, "aggregator.AnswerQuestion")
	defer span.End()

	reqLogger := logger.FromContext(ctx, a.logger)

	var data insight.Context
	var cached DataResponse
	if a.lookup(ctx, reqLogger, FullDataKey, &cached) && cached.Balloon != nil {
		data = insightContext(cached.Balloon, cached.Weather.Summary)
	} else {
		ctx = detached(ctx)
		report := a.ingester.Collect(ctx)
		_, summary := a.enrich(ctx, report)
		data = insightContext(report, summary)
	}

	answer := a.insights.AnswerQuestion(detached(ctx), question, data)

	return &AnswerResponse{
		Question:  question,
		Answer:    answer,
		Timestamp: a.clock.Now().UTC(),
	}, nil
}

// ClearCache drops every cached payload. Backend failures are logged only.
func (a *Aggregator) ClearCache(ctx context.Context) {
	if err := a.cache.FlushAll(ctx); err != nil {
		logger.FromContext(ctx, a.logger).Error("Failed to flush cache", zap.Error(err))
		return
	}
	logger.FromContext(ctx, a.logger).Info("Cache cleared")
}

// Refresh recomputes both payloads from one pipeline run and stores them.
func (a *Aggregator) Refresh(ctx context.Context) error {
	ctx, span := a.tele.GetTracer().Start(ctx, "aggregator.Refresh")
	defer span.End()

	resp := a.compose(ctx)
	if err := a.store(ctx, a.logger, FullDataKey, resp); err != nil {
		return err
	}
	return a.store(ctx, a.logger, BalloonDataKey, &BalloonResponse{Report: *resp.Balloon})
}

func (a *Aggregator) GetCacheStats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"cache_backend": a.cache.Backend(),
		"cache_ttl":     a.cache.TTL().String(),
		"cache_ready":   true,
	}

	if err := a.cache.Ping(ctx); err != nil {
		stats["cache_ready"] = false
		stats["cache_error"] = err.Error()
		return stats
	}

	if n, err := a.cache.Len(ctx); err == nil {
		stats["cache_size"] = n
	}
	return stats
}

// detached keeps the request's values (span, request id) but not its
// cancellation: a pipeline run outlives a client that went away, and its
// result is shared through the cache.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (a *Aggregator) compose(ctx context.Context) *DataResponse {
	start := a.clock.Now()
	defer func() {
		a.metrics.ObserveStage("compose", a.clock.Since(start))
	}()

	report := a.ingester.Collect(ctx)
	samples, summary := a.enrich(ctx, report)
	ai := a.insights.GenerateInsights(ctx, insightContext(report, summary))

	return &DataResponse{
		Balloon: report,
		Weather: WeatherData{Data: samples, Summary: summary},
		AI:      ai,
	}
}

func (a *Aggregator) enrich(ctx context.Context, report *balloon.Report) ([]weather.Sample, weather.Summary) {
	recent := balloon.Recent(report.ByHour, 1)
	return a.enricher.Enrich(ctx, a.enricher.Select(recent))
}

func insightContext(report *balloon.Report, summary weather.Summary) insight.Context {
	return insight.Context{
		Stats:         report.Stats,
		TotalBalloons: report.TotalBalloons,
		Weather:       summary,
	}
}

// lookup decodes a cached payload into dst. Backend and decode failures count
// as a miss.
func (a *Aggregator) lookup(ctx context.Context, log *zap.Logger, key string, dst interface{}) bool {
	raw, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		log.Warn("Cache read failed", zap.String("cache_key", key), zap.Error(err))
		ok = false
	}
	if ok {
		if err := json.Unmarshal(raw, dst); err != nil {
			log.Warn("Discarding undecodable cache entry", zap.String("cache_key", key), zap.Error(err))
			ok = false
		}
	}

	if ok {
		log.Debug("Cache hit", zap.String("cache_key", key))
		a.metrics.RecordCacheHit(key)
	} else {
		a.metrics.RecordCacheMiss(key)
	}
	return ok
}

func (a *Aggregator) store(ctx context.Context, log *zap.Logger, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := a.cache.Set(ctx, key, raw); err != nil {
		log.Warn("Cache write failed", zap.String("cache_key", key), zap.Error(err))
		return nil
	}
	log.Debug("Stored payload", zap.String("cache_key", key), zap.Int("bytes", len(raw)))
	return nil
}
