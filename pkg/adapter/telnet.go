package adapter

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/retry"
)

// TelnetAdapter drives telnet-style projector control: connect, log
// in with a username and password, send a vendor power command, and
// look for a positive acknowledgement token. The socket is always
// closed before returning.
type TelnetAdapter struct{}

const (
	telnetOnCommand  = "~0000 1\r"
	telnetOffCommand = "~0000 0\r"
	telnetAckToken   = "OK"
)

func (TelnetAdapter) PowerOn(ctx context.Context, d model.Device) (model.Outcome, error) {
	return telnetSendCommand(ctx, d, telnetOnCommand)
}

func (TelnetAdapter) PowerOff(ctx context.Context, d model.Device) (model.Outcome, error) {
	return telnetSendCommand(ctx, d, telnetOffCommand)
}

func (TelnetAdapter) QueryPower(ctx context.Context, d model.Device) (PowerState, model.Outcome, error) {
	conn, outcome, err := telnetDialAndLogin(ctx, d)
	if err != nil {
		return PowerUnknown, outcome, err
	}
	defer conn.Close()
	return PowerUnknown, model.OutcomeSuccess, nil
}

func telnetSendCommand(ctx context.Context, d model.Device, command string) (model.Outcome, error) {
	conn, outcome, err := telnetDialAndLogin(ctx, d)
	if err != nil {
		return outcome, err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(command)); err != nil {
		return classifyIOErr(err), fmt.Errorf("sending command to %s: %w", d.ID, err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return classifyIOErr(err), fmt.Errorf("reading command response from %s: %w", d.ID, err)
	}
	if !strings.Contains(line, telnetAckToken) {
		return model.OutcomeProtocolError, fmt.Errorf("device %s: unexpected response %q", d.ID, strings.TrimSpace(line))
	}
	return model.OutcomeSuccess, nil
}

// telnetDialAndLogin opens the session and performs the login
// handshake, leaving the connection open and positioned for a
// command to be written. Callers must close the returned connection.
func telnetDialAndLogin(ctx context.Context, d model.Device) (net.Conn, model.Outcome, error) {
	if d.Credentials.Telnet == nil {
		return nil, model.OutcomeProtocolError, fmt.Errorf("%w: device %q has no telnet credentials", retry.ErrMalformedConfig, d.ID)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", d.Host, d.Port))
	if err != nil {
		return nil, classifyDialErr(err), fmt.Errorf("dialing %s: %w", d.ID, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	reader := bufio.NewReader(conn)
	// Consume the banner line, if any. A silent device simply runs
	// out its deadline here rather than blocking forever.
	_, _ = reader.ReadString('\n')

	creds := d.Credentials.Telnet
	if _, err := conn.Write([]byte(creds.Username + "\r\n")); err != nil {
		conn.Close()
		return nil, classifyIOErr(err), fmt.Errorf("sending username to %s: %w", d.ID, err)
	}
	if _, err := conn.Write([]byte(creds.Password + "\r\n")); err != nil {
		conn.Close()
		return nil, classifyIOErr(err), fmt.Errorf("sending password to %s: %w", d.ID, err)
	}

	return conn, model.OutcomeSuccess, nil
}
