package fetch

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"
)

// breakerState is the circuit state for one provider.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds circuit breaker parameters.
type BreakerConfig struct {
	FailureThreshold int           // consecutive provider faults to trip
	OpenTimeout      time.Duration // time in open before a probe is allowed
}

// DefaultBreakerConfig returns sensible defaults: a handful of back-to-back
// upstream faults opens the circuit for 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// breaker fails fast against a provider that keeps erroring, so a dead
// upstream costs a state check instead of a full timeout. Client errors
// (4xx other than 429) never count against the provider.
type breaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	openedAt  time.Time
	probing   bool
	threshold int
	timeout   time.Duration
	now       func() time.Time
}

func newBreaker(cfg BreakerConfig) *breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultBreakerConfig().OpenTimeout
	}
	return &breaker{
		threshold: cfg.FailureThreshold,
		timeout:   cfg.OpenTimeout,
		now:       time.Now,
	}
}

// allow reports whether a request may proceed. In the open state one probe
// is let through once the timeout has elapsed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(b.openedAt) >= b.timeout {
			b.state = stateHalfOpen
			b.probing = true
			return true
		}
		return false
	case stateHalfOpen:
		if !b.probing {
			b.probing = true
			return true
		}
		return false
	}
	return false
}

// observe records a request outcome. Provider faults advance the circuit
// toward open; anything else resets it.
func (b *breaker) observe(err error) {
	fault := isProviderFault(err)

	b.mu.Lock()
	defer b.mu.Unlock()

	if !fault {
		b.failures = 0
		if b.state != stateClosed {
			b.state = stateClosed
			b.probing = false
		}
		return
	}

	switch b.state {
	case stateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = stateOpen
			b.openedAt = b.now()
		}
	case stateHalfOpen:
		b.state = stateOpen
		b.openedAt = b.now()
		b.probing = false
	}
}

func (b *breaker) currentState() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// isProviderFault reports whether an error indicates the provider itself is
// unhealthy: 5xx and 429 statuses, timeouts, and network failures. A 4xx
// means the request was wrong, not the provider.
func isProviderFault(err error) bool {
	if err == nil {
		return false
	}
	// A canceled caller says nothing about the upstream.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == 429
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return true
}

// breakers is a lazily populated per-provider breaker set.
type breakers struct {
	mu  sync.RWMutex
	m   map[string]*breaker
	cfg BreakerConfig
}

func newBreakers(cfg BreakerConfig) *breakers {
	return &breakers{m: make(map[string]*breaker), cfg: cfg}
}

func (r *breakers) get(provider string) *breaker {
	r.mu.RLock()
	b, ok := r.m[provider]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.m[provider]; ok {
		return b
	}
	b = newBreaker(r.cfg)
	r.m[provider] = b
	return b
}
