package model

import "time"

// Action identifies the operation an ActionRecord or ScheduledJob performs.
type Action string

const (
	ActionTurnOn  Action = "TURN_ON"
	ActionTurnOff Action = "TURN_OFF"
	ActionQuery   Action = "QUERY"
	ActionProbe   Action = "PROBE"
)

// Outcome classifies how an attempt terminated.
type Outcome string

const (
	OutcomeSuccess        Outcome = "SUCCESS"
	OutcomeFail           Outcome = "FAIL"
	OutcomeTimeout        Outcome = "TIMEOUT"
	OutcomeProtocolError  Outcome = "PROTOCOL_ERROR"
	OutcomeUnreachable    Outcome = "UNREACHABLE"
)

// ActionRecord is emitted by the Retry Executor on every attempt
// terminus. Once written it is never rewritten.
type ActionRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	DeviceID     string    `json:"device_id"`
	Action       Action    `json:"action"`
	Attempts     int       `json:"attempts"`
	Outcome      Outcome   `json:"outcome"`
	DurationMS   int64     `json:"duration_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Cancelled    bool      `json:"cancelled,omitempty"`
}

// RetryPolicy controls the Retry Executor's attempt count and backoff.
type RetryPolicy struct {
	MaxAttempts         int
	BaseIntervalSec     float64
	BackoffMultiplier   float64
	PerAttemptTimeoutSec float64
}

// DefaultRetryPolicy returns the spec's default policy values.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:          3,
		BaseIntervalSec:      30,
		BackoffMultiplier:    2.0,
		PerAttemptTimeoutSec: 10,
	}
}

// DelayBeforeAttempt returns the backoff delay before attempt k (k>=2),
// per spec: base_interval_sec * backoff_multiplier^(k-2).
func (p RetryPolicy) DelayBeforeAttempt(k int) time.Duration {
	if k < 2 {
		return 0
	}
	exp := float64(k - 2)
	seconds := p.BaseIntervalSec * pow(p.BackoffMultiplier, exp)
	return time.Duration(seconds * float64(time.Second))
}

func pow(base, exp float64) float64 {
	result := 1.0
	// exp is always a small non-negative integer-valued float here
	// (attempt counts are bounded by MaxAttempts), so a loop is both
	// simpler and avoids pulling in math.Pow's float edge cases.
	for i := 0; i < int(exp+0.5); i++ {
		result *= base
	}
	return result
}

// PerAttemptTimeout returns the per-attempt timeout as a time.Duration.
func (p RetryPolicy) PerAttemptTimeout() time.Duration {
	return time.Duration(p.PerAttemptTimeoutSec * float64(time.Second))
}

// ExecutionReport is returned by Device Manager bulk operations.
type ExecutionReport struct {
	StartedAt       time.Time                `json:"started_at"`
	FinishedAt      time.Time                `json:"finished_at"`
	RequestedAction Action                   `json:"requested_action"`
	Results         map[string]ActionRecord  `json:"results"`
	SuccessCount    int                      `json:"success_count"`
	FailureCount    int                      `json:"failure_count"`
}
