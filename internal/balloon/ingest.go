package balloon

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"github.com/vzahanych/balloon-atlas/internal/observability"
	"github.com/vzahanych/balloon-atlas/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ingester drives the Normalizer across every hour slice of the feed.
type Ingester struct {
	feed        FeedClient
	normalizer  *Normalizer
	slices      int
	concurrency int
	timeout     time.Duration
	clock       clockwork.Clock
	logger      *zap.Logger
	tele        *telemetry.Telemetry
	metrics     *observability.Metrics
}

type sliceOutcome struct {
	slice TimeSlice
	err   error
}

func NewIngester(cfg *config.FeedConfig, feed FeedClient, logger *zap.Logger, tele *telemetry.Telemetry) *Ingester {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Ingester{
		feed:        feed,
		normalizer:  NewNormalizer(cfg.Resource),
		slices:      cfg.Slices,
		concurrency: concurrency,
		timeout:     time.Duration(cfg.Timeout) * time.Second,
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		tele:        tele,
	}
}

// SetClock swaps the time source used for capture timestamps. Pass nil to reset.
func (i *Ingester) SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	i.clock = c
}

func (i *Ingester) SetMetricsRecorder(metrics *observability.Metrics) {
	i.metrics = metrics
}

// Fetch requests every slice and never fails as a whole: failed slices land in
// Errors and are omitted from Slices. Slices and Observations are ordered by
// ascending hoursAgo regardless of fetch concurrency.
func (i *Ingester) Fetch(ctx context.Context) *IngestResult {
	ctx, span := i.tele.GetTracer().Start(ctx, "balloon.Fetch")
	defer span.End()

	now := i.clock.Now()
	outcomes := make([]sliceOutcome, i.slices)

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for hoursAgo := 0; hoursAgo < i.slices; hoursAgo++ {
		g.Go(func() error {
			outcomes[hoursAgo] = i.fetchSlice(ctx, hoursAgo, now)
			return nil
		})
	}
	_ = g.Wait()

	result := &IngestResult{
		Slices:       make([]TimeSlice, 0, i.slices),
		Observations: make([]Observation, 0),
		Errors:       make([]SliceError, 0),
	}
	for hoursAgo, outcome := range outcomes {
		if outcome.err != nil {
			result.Errors = append(result.Errors, SliceError{
				Hour:     hourLabel(hoursAgo),
				HoursAgo: hoursAgo,
				Message:  outcome.err.Error(),
			})
			continue
		}
		result.Slices = append(result.Slices, outcome.slice)
		result.Observations = append(result.Observations, outcome.slice.Observations...)
	}

	span.SetAttributes(
		attribute.Int("slices_ok", len(result.Slices)),
		attribute.Int("slices_failed", len(result.Errors)),
		attribute.Int("observations", len(result.Observations)),
	)

	i.logger.Info("Feed ingestion completed",
		zap.Int("slices_ok", len(result.Slices)),
		zap.Int("slices_failed", len(result.Errors)),
		zap.Int("observations", len(result.Observations)))

	return result
}

func (i *Ingester) fetchSlice(ctx context.Context, hoursAgo int, now time.Time) sliceOutcome {
	reqCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	raw, err := i.feed.FetchSlice(reqCtx, hoursAgo)
	if err != nil {
		i.logger.Warn("Failed to fetch feed slice",
			zap.String("hour", hourLabel(hoursAgo)),
			zap.Error(err))
		i.metrics.RecordSliceFetch(err, 0)
		return sliceOutcome{err: err}
	}

	observations := i.normalizer.Normalize(raw, hoursAgo, now)
	i.metrics.RecordSliceFetch(nil, len(observations))

	i.logger.Debug("Parsed feed slice",
		zap.String("hour", hourLabel(hoursAgo)),
		zap.Int("observations", len(observations)))

	return sliceOutcome{slice: TimeSlice{
		Hour:         hourLabel(hoursAgo),
		HoursAgo:     hoursAgo,
		Observations: observations,
		Count:        len(observations),
	}}
}

// Collect runs Fetch and reduces the result into a Report.
func (i *Ingester) Collect(ctx context.Context) *Report {
	start := i.clock.Now()
	result := i.Fetch(ctx)
	i.metrics.ObserveStage("ingest", i.clock.Since(start))

	return &Report{
		Success:       true,
		TotalBalloons: len(result.Observations),
		ByHour:        result.Slices,
		AllBalloons:   result.Observations,
		Stats:         CalculateStats(result.Observations),
		Errors:        result.Errors,
		LastUpdated:   i.clock.Now().UTC(),
	}
}
