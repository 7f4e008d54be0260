package adapter

import (
	"context"
	"net"

	"github.com/aquactl/aquactl/pkg/model"
)

// PowerState is the result of a QueryPower call.
type PowerState string

const (
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
	PowerUnknown PowerState = "unknown"
)

// ProtocolAdapter is the capability set every device type implements.
// Adapters open a fresh session per call; there is no connection
// pooling. ctx carries the per-attempt deadline applied by the retry
// executor.
type ProtocolAdapter interface {
	PowerOn(ctx context.Context, d model.Device) (model.Outcome, error)
	PowerOff(ctx context.Context, d model.Device) (model.Outcome, error)
	QueryPower(ctx context.Context, d model.Device) (PowerState, model.Outcome, error)
}

// classifyDialErr maps a dial failure to an Outcome per the adapter
// failure-mapping rule: deadline exceeded is TIMEOUT, everything else
// reaching this point (refused, no route, reset) is UNREACHABLE.
func classifyDialErr(err error) model.Outcome {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return model.OutcomeTimeout
	}
	return model.OutcomeUnreachable
}

// classifyIOErr maps a post-connect read/write failure the same way.
func classifyIOErr(err error) model.Outcome {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return model.OutcomeTimeout
	}
	return model.OutcomeUnreachable
}
