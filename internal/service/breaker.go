package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"go.uber.org/zap"
)

var ErrCircuitOpen = errors.New("weather provider circuit open")

// BreakerService wraps a WeatherService so that a provider that keeps failing
// is short-circuited instead of costing every sample a full timeout.
type BreakerService struct {
	next    WeatherService
	circuit *gobreaker.CircuitBreaker
}

func NewBreakerService(next WeatherService, cfg config.BreakerConfig, logger *zap.Logger) *BreakerService {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Weather provider circuit changed state",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &BreakerService{next: next, circuit: cb}
}

func (b *BreakerService) Name() string {
	return b.next.Name()
}

func (b *BreakerService) State() gobreaker.State {
	return b.circuit.State()
}

func (b *BreakerService) CurrentConditions(ctx context.Context, lat, lon float64) (*Conditions, error) {
	result, err := b.circuit.Execute(func() (interface{}, error) {
		return b.next.CurrentConditions(ctx, lat, lon)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	conditions, ok := result.(*Conditions)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return conditions, nil
}
