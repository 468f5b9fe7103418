package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/MattewMattew/ManagmentBoard/internal/config"
)

// ErrStoreUnavailable is returned by WaitReady once the retry policy is exhausted.
var ErrStoreUnavailable = errors.New("store unavailable")

const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"

	defaultBootstrapDelay = 5 * time.Second
	defaultProbeTimeout   = 10 * time.Second
)

// RetryPolicy is the single retry policy for waiting on the store.
// MaxAttempts 0 retries forever.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     string
	MaxDelay    time.Duration
}

func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.Delay,
		Backoff:     cfg.Backoff,
		MaxDelay:    cfg.MaxDelay,
	}
}

func (p RetryPolicy) newBackOff() backoff.BackOff {
	delay := p.Delay
	if delay <= 0 {
		delay = defaultBootstrapDelay
	}
	var b backoff.BackOff
	if strings.EqualFold(strings.TrimSpace(p.Backoff), BackoffExponential) {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = delay
		exp.RandomizationFactor = 0
		exp.Multiplier = 2
		exp.MaxInterval = p.MaxDelay
		if exp.MaxInterval < delay {
			exp.MaxInterval = delay
		}
		exp.MaxElapsedTime = 0
		b = exp
	} else {
		b = backoff.NewConstantBackOff(delay)
	}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return b
}

// Bootstrapper blocks startup until the store answers a liveness probe.
type Bootstrapper struct {
	Probe  func(ctx context.Context) error
	Policy RetryPolicy
	Logger *zap.Logger
}

func NewBootstrapper(db *DB, policy RetryPolicy, probeTimeout time.Duration, logger *zap.Logger) *Bootstrapper {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Bootstrapper{
		Probe: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			return Ping(ctx, db)
		},
		Policy: policy,
		Logger: logger,
	}
}

// WaitReady runs the probe until it succeeds or the policy gives up. It
// returns an error wrapping ErrStoreUnavailable when attempts run out, and the
// context error if ctx ends first.
func (b *Bootstrapper) WaitReady(ctx context.Context) error {
	if b == nil || b.Probe == nil {
		return fmt.Errorf("%w: no probe configured", ErrStoreUnavailable)
	}
	attempt := 0
	op := func() error {
		attempt++
		err := b.Probe(ctx)
		if err == nil {
			return nil
		}
		if b.Logger != nil {
			b.Logger.Info("waiting for database",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", b.Policy.MaxAttempts),
				zap.Error(err),
			)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(b.Policy.newBackOff(), ctx))
	if err == nil {
		if b.Logger != nil {
			b.Logger.Info("database connection established", zap.Int("attempts", attempt))
		}
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if b.Logger != nil {
		b.Logger.Error("database connection attempts exhausted", zap.Int("attempts", attempt), zap.Error(err))
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrStoreUnavailable, attempt, err)
}
