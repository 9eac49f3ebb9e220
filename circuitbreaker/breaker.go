package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seo-optimizer/auditor/logging"
	"github.com/seo-optimizer/auditor/metrics"
)

var ErrOpen = errors.New("circuit breaker is open")

// State of a breaker.
type State string

const (
	Closed   State = "closed"
	HalfOpen State = "half-open"
	Open     State = "open"
)

var stateGauge = map[State]float64{Closed: 0, HalfOpen: 1, Open: 2}

// Breaker stops calling a failing upstream for a cool-down period after too many consecutive
// failures, then lets a single trial call through.
type Breaker struct {
	mu           sync.Mutex
	service      string
	threshold    int
	resetTimeout time.Duration
	failures     int
	lastFailure  time.Time
	state        State
	trial        bool
	now          func() time.Time
}

// New creates a closed breaker for service.
func New(service string, threshold int, resetTimeout time.Duration) *Breaker {
	b := &Breaker{
		service:      service,
		threshold:    max(threshold, 1),
		resetTimeout: resetTimeout,
		state:        Closed,
		now:          time.Now,
	}
	metrics.CircuitBreakerState.WithLabelValues(service).Set(stateGauge[Closed])
	return b
}

// Execute runs fn unless the breaker is open. While half-open only one call runs at a time;
// concurrent callers get ErrOpen.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == Open {
		if b.now().Sub(b.lastFailure) < b.resetTimeout {
			b.mu.Unlock()
			return ErrOpen
		}
		b.setState(HalfOpen)
		logging.Log.Info("Circuit half-open, allowing test request", zap.String("service", b.service))
	}
	if b.state == HalfOpen {
		if b.trial {
			b.mu.Unlock()
			return ErrOpen
		}
		b.trial = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false

	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == HalfOpen || b.failures >= b.threshold {
			b.setState(Open)
			logging.Log.Warn("Circuit opened due to failures",
				zap.String("service", b.service),
				zap.Int("failures", b.failures),
				zap.Time("until", b.lastFailure.Add(b.resetTimeout)))
		}
		return err
	}

	if b.state == HalfOpen {
		logging.Log.Info("Circuit closed after successful test", zap.String("service", b.service))
	}
	b.failures = 0
	b.setState(Closed)
	return nil
}

// State returns the current state without transitioning.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) setState(s State) {
	b.state = s
	metrics.CircuitBreakerState.WithLabelValues(b.service).Set(stateGauge[s])
}
