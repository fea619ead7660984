// Package resilience provides retry and circuit breaker policies for calls to external services.
package resilience

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Config controls retries and breaker behavior for one dependency.
type Config struct {
	// MaxAttempts is the total number of tries including the first. 1 disables retries.
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// The breaker opens once at least BreakerMinRequests calls were made and the
	// share of transient failures reaches BreakerFailureRatio.
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerTimeout      time.Duration

	// OnStateChange is called after the breaker changes state, e.g. to record metrics.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns the policy used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:         3,
		InitialBackoff:      250 * time.Millisecond,
		MaxBackoff:          2 * time.Second,
		BreakerMinRequests:  5,
		BreakerFailureRatio: 0.6,
		BreakerTimeout:      30 * time.Second,
	}
}

// Policy combines bounded exponential backoff with a circuit breaker for a named dependency.
// A nil *Policy executes operations once with no protection.
type Policy struct {
	name    string
	cfg     Config
	breaker *gobreaker.CircuitBreaker
}

// NewPolicy creates a policy for the dependency called name.
func NewPolicy(name string, cfg Config) *Policy {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	p := &Policy{name: name, cfg: cfg}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.BreakerMinRequests == 0 || counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			zap.L().Warn("circuit breaker state changed",
				zap.String("dependency", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
		// Caller errors such as a 400 say nothing about the dependency's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
	})
	return p
}

// Name returns the dependency name.
func (p *Policy) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

// State returns the breaker state.
func (p *Policy) State() gobreaker.State {
	if p == nil {
		return gobreaker.StateClosed
	}
	return p.breaker.State()
}

// Execute runs op under p. Transient failures are retried with exponential backoff until
// MaxAttempts is reached; any other error returns immediately. When the breaker is open the
// call fails fast with ErrCircuitOpen.
func Execute[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return op(ctx)
	}

	var zero T
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialBackoff
	b.MaxInterval = p.cfg.MaxBackoff

	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := p.breaker.Execute(func() (interface{}, error) {
			return op(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return zero, backoff.Permanent(eris.Wrapf(ErrCircuitOpen, "dependency %s", p.name))
			}
			if ctx.Err() != nil || !IsTransient(err) {
				return zero, backoff.Permanent(err)
			}
			return zero, err
		}
		typed, _ := v.(T)
		return typed, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			zap.L().Warn("retrying operation",
				zap.String("dependency", p.name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
}

// Do is Execute for operations without a result.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Execute(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Registry hands out one Policy per dependency name so breaker state is shared.
type Registry struct {
	cfg      Config
	mu       sync.Mutex
	policies map[string]*Policy
}

// NewRegistry creates a registry whose policies all use cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, policies: make(map[string]*Policy)}
}

// Get returns the policy for name, creating it on first use.
func (r *Registry) Get(name string) *Policy {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.policies[name]; ok {
		return p
	}
	p := NewPolicy(name, r.cfg)
	r.policies[name] = p
	return p
}

// States reports the breaker state of every known dependency.
func (r *Registry) States() map[string]string {
	out := map[string]string{}
	if r == nil {
		return out
	}
	r.mu.Lock()
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out[name] = r.policies[name].State().String()
	}
	r.mu.Unlock()
	return out
}
