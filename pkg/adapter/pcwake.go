package adapter

import (
	"context"
	"fmt"
	"net"

	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/retry"
)

// PCWakeAdapter drives Wake-on-LAN devices. PowerOn is a one-way
// magic-packet broadcast; PowerOff and QueryPower require an
// optional, separately configured management channel and fail fast
// with a non-retriable error when one is absent rather than silently
// succeeding.
type PCWakeAdapter struct{}

func (PCWakeAdapter) PowerOn(ctx context.Context, d model.Device) (model.Outcome, error) {
	if d.Credentials.Wake == nil {
		return model.OutcomeProtocolError, fmt.Errorf("%w: device %q has no wake credentials", retry.ErrMalformedConfig, d.ID)
	}
	if err := sendMagicPacket(d.Credentials.Wake.MAC); err != nil {
		return model.OutcomeUnreachable, fmt.Errorf("sending magic packet to %s: %w", d.ID, err)
	}
	return model.OutcomeSuccess, nil
}

func (PCWakeAdapter) PowerOff(ctx context.Context, d model.Device) (model.Outcome, error) {
	wake := d.Credentials.Wake
	if wake == nil || !wake.HasShutdownChannel() {
		return model.OutcomeProtocolError, fmt.Errorf("%w: device %q has no configured shutdown channel", retry.ErrMalformedConfig, d.ID)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", wake.ShutdownHost, wake.ShutdownPort))
	if err != nil {
		return classifyDialErr(err), fmt.Errorf("dialing shutdown channel for %s: %w", d.ID, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte("SHUTDOWN\r\n")); err != nil {
		return classifyIOErr(err), fmt.Errorf("sending shutdown request to %s: %w", d.ID, err)
	}

	ack := make([]byte, 2)
	if _, err := conn.Read(ack); err != nil {
		return classifyIOErr(err), fmt.Errorf("reading shutdown ack from %s: %w", d.ID, err)
	}
	if string(ack) != "OK" {
		return model.OutcomeProtocolError, fmt.Errorf("device %s: unexpected shutdown ack %q", d.ID, ack)
	}
	return model.OutcomeSuccess, nil
}

// QueryPower checks the same management channel used for graceful
// shutdown. Unlike the generic TCP adapter, an absent channel is a
// configuration error, not an "unknown" reading.
func (PCWakeAdapter) QueryPower(ctx context.Context, d model.Device) (PowerState, model.Outcome, error) {
	wake := d.Credentials.Wake
	if wake == nil || !wake.HasShutdownChannel() {
		return PowerUnknown, model.OutcomeProtocolError, fmt.Errorf("%w: device %q has no queryable management channel", retry.ErrMalformedConfig, d.ID)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", wake.ShutdownHost, wake.ShutdownPort))
	if err != nil {
		return PowerUnknown, classifyDialErr(err), fmt.Errorf("dialing management channel for %s: %w", d.ID, err)
	}
	conn.Close()
	return PowerOn, model.OutcomeSuccess, nil
}

// sendMagicPacket broadcasts the standard Wake-on-LAN payload: six
// 0xFF bytes followed by the target MAC repeated sixteen times.
func sendMagicPacket(mac string) error {
	hwAddr, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("parsing mac %q: %w", mac, err)
	}

	packet := buildMagicPacket(hwAddr)

	conn, err := net.Dial("udp", "255.255.255.255:9")
	if err != nil {
		return fmt.Errorf("dialing broadcast address: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("writing magic packet: %w", err)
	}
	return nil
}

func buildMagicPacket(hwAddr net.HardwareAddr) []byte {
	packet := make([]byte, 0, 6+16*len(hwAddr))
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hwAddr...)
	}
	return packet
}
