// Package retry wraps a single protocol adapter call with bounded
// attempts and exponential backoff, per a model.RetryPolicy. It knows
// nothing about devices or transports directly — it drives any
// AttemptFunc.
package retry
