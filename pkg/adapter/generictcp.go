package adapter

import (
	"context"
	"fmt"
	"net"

	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/retry"
)

// GenericTCPAdapter is used when power control is unavailable but
// reachability still matters. Power control always fails with a
// non-retriable error; QueryPower reports reachability via a bare
// connect/close and is the only adapter allowed to return
// PowerUnknown on a clean refusal rather than an error outcome.
type GenericTCPAdapter struct{}

func (GenericTCPAdapter) PowerOn(ctx context.Context, d model.Device) (model.Outcome, error) {
	return model.OutcomeProtocolError, fmt.Errorf("%w: generic_tcp device %q does not support power control", retry.ErrMalformedConfig, d.ID)
}

func (GenericTCPAdapter) PowerOff(ctx context.Context, d model.Device) (model.Outcome, error) {
	return model.OutcomeProtocolError, fmt.Errorf("%w: generic_tcp device %q does not support power control", retry.ErrMalformedConfig, d.ID)
}

func (GenericTCPAdapter) QueryPower(ctx context.Context, d model.Device) (PowerState, model.Outcome, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", d.Host, d.Port))
	if err != nil {
		return PowerUnknown, model.OutcomeSuccess, nil
	}
	conn.Close()
	return PowerOn, model.OutcomeSuccess, nil
}
