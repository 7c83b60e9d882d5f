package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when an operation is rejected because the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configures a circuit breaker.
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
}

// Operation is a unit of work executed through a breaker or retry loop.
type Operation func(ctx context.Context) (interface{}, error)

// CircuitBreaker wraps gobreaker with metrics and an optional fallback.
type CircuitBreaker struct {
	name     string
	cb       *gobreaker.CircuitBreaker
	fallback FallbackFunc
}

// NewCircuitBreaker creates a circuit breaker with the given settings.
// The fallback is invoked when the breaker rejects an operation; pass
// NoopFallback to simply surface ErrCircuitOpen.
func NewCircuitBreaker(settings Settings, fallback FallbackFunc) *CircuitBreaker {
	name := nextBreakerName(settings.Name)

	if fallback == nil {
		fallback = NoopFallback
	}

	failureThreshold := settings.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 5
	}

	maxRequests := settings.SuccessThreshold
	if maxRequests == 0 {
		maxRequests = 1
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			recordBreakerStateChange(name, from, to)
		},
	})

	recordBreakerState(name, cb.State())

	return &CircuitBreaker{
		name:     name,
		cb:       cb,
		fallback: fallback,
	}
}

// Name returns the breaker's registered name.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

// Execute runs the operation through the breaker. When the breaker is open
// the configured fallback handles the rejection.
func (b *CircuitBreaker) Execute(ctx context.Context, op Operation) (interface{}, error) {
	recordBreakerRequest(b.name)

	result, err := b.cb.Execute(func() (interface{}, error) {
		return op(ctx)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			recordBreakerFallback(b.name)
			return b.fallback(ctx, ErrCircuitOpen)
		}
		recordBreakerFailure(b.name)
		return nil, err
	}

	return result, nil
}
