package aggregator

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Refresher recomputes and stores the cached payloads.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Warmer keeps the cache populated on a fixed interval so clients rarely pay
// for a cold pipeline run. Runs never overlap.
type Warmer struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// NewWarmer returns a Warmer; timeout bounds a single refresh run.
func NewWarmer(target Refresher, interval, timeout time.Duration, logger *zap.Logger) *Warmer {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Warmer{
		scheduler: s,
		target:    target,
		interval:  interval,
		timeout:   timeout,
		logger:    logger.With(zap.String("component", "cache_warmer")),
	}
}

// Start schedules the refresh job, running it immediately once. A non-positive
// interval disables the warmer.
func (w *Warmer) Start() error {
	if w.interval <= 0 {
		w.logger.Info("Cache warmer disabled")
		return nil
	}

	_, err := w.scheduler.Every(w.interval).Do(w.run)
	if err != nil {
		return err
	}

	w.scheduler.StartAsync()
	w.logger.Info("Cache warmer started", zap.Duration("interval", w.interval))
	return nil
}

func (w *Warmer) run() {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := w.target.Refresh(ctx); err != nil {
		w.logger.Error("Cache refresh failed", zap.Error(err))
		return
	}
	w.logger.Info("Cache refreshed", zap.Duration("took", time.Since(start)))
}

func (w *Warmer) Stop() {
	if w.scheduler != nil && w.scheduler.IsRunning() {
		w.scheduler.Stop()
	}
}
