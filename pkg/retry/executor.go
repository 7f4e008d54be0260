package retry

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/aquactl/aquactl/pkg/model"
)

// ErrMalformedConfig, when returned by an AttemptFunc, short-circuits
// retries: the executor surfaces it after a single attempt regardless
// of the configured max attempts.
var ErrMalformedConfig = errors.New("malformed device configuration")

// AttemptFunc performs one protocol adapter call and classifies its
// outcome. ctx is already scoped to the per-attempt timeout.
type AttemptFunc func(ctx context.Context) (model.Outcome, error)

// Executor runs an AttemptFunc up to a policy's max attempts, sleeping
// a jittered backoff delay between failures.
type Executor struct {
	jitter float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewExecutor creates a Retry Executor with a small jitter applied to
// each backoff sleep.
func NewExecutor() *Executor {
	return &Executor{
		jitter: 0.1,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run drives fn per policy and returns a fully populated ActionRecord.
// ctx cancellation short-circuits any pending sleep or in-flight
// attempt; the returned record carries the last observed outcome with
// Cancelled set.
func (e *Executor) Run(ctx context.Context, deviceID string, action model.Action, policy model.RetryPolicy, fn AttemptFunc) model.ActionRecord {
	start := time.Now().UTC()
	rec := model.ActionRecord{
		Timestamp: start,
		DeviceID:  deviceID,
		Action:    action,
	}

	lastOutcome := model.OutcomeFail
	var lastErr error

	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rec.Attempts = attempt

		if attempt > 1 {
			delay := e.jitteredDelay(policy.DelayBeforeAttempt(attempt))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return cancelledRecord(rec, start, lastOutcome, ctx, lastErr)
			case <-timer.C:
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, policy.PerAttemptTimeout())
		outcome, err := fn(attemptCtx)
		cancel()

		lastOutcome, lastErr = outcome, err

		if outcome == model.OutcomeSuccess {
			rec.Outcome = model.OutcomeSuccess
			rec.DurationMS = time.Since(start).Milliseconds()
			return rec
		}

		if ctx.Err() != nil {
			return cancelledRecord(rec, start, outcome, ctx, err)
		}

		if errors.Is(err, ErrMalformedConfig) {
			rec.Outcome = outcome
			rec.ErrorMessage = err.Error()
			rec.DurationMS = time.Since(start).Milliseconds()
			return rec
		}
	}

	rec.Outcome = lastOutcome
	if lastErr != nil {
		rec.ErrorMessage = lastErr.Error()
	}
	rec.DurationMS = time.Since(start).Milliseconds()
	return rec
}

func cancelledRecord(rec model.ActionRecord, start time.Time, outcome model.Outcome, ctx context.Context, cause error) model.ActionRecord {
	rec.Outcome = outcome
	rec.Cancelled = true
	rec.ErrorMessage = ctxErrMessage(ctx, cause)
	rec.DurationMS = time.Since(start).Milliseconds()
	return rec
}

func (e *Executor) jitteredDelay(base time.Duration) time.Duration {
	if e.jitter <= 0 || base <= 0 {
		return base
	}
	e.mu.Lock()
	frac := e.rng.Float64()
	e.mu.Unlock()
	jitterAmount := time.Duration(float64(base) * e.jitter * frac)
	return base + jitterAmount
}

func ctxErrMessage(ctx context.Context, cause error) string {
	ctxErr := ctx.Err()
	switch {
	case ctxErr != nil && cause != nil:
		return ctxErr.Error() + ": " + cause.Error()
	case ctxErr != nil:
		return ctxErr.Error()
	case cause != nil:
		return cause.Error()
	default:
		return ""
	}
}
