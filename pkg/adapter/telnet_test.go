package adapter

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aquactl/aquactl/pkg/model"
)

func telnetDevice(t *testing.T, addr string) model.Device {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("splitting addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing port: %v", err)
	}
	return model.Device{
		ID:   "proj1",
		Type: model.DeviceTelnetProjector,
		Host: host,
		Port: port,
		Credentials: model.Credentials{
			Telnet: &model.TelnetCredentials{Username: "admin", Password: "secret"},
		},
	}
}

func serveTelnetOnce(t *testing.T, ln net.Listener, ack string) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		conn.Write([]byte("Welcome\r\n"))
		reader := bufio.NewReader(conn)
		reader.ReadString('\n') // username
		reader.ReadString('\n') // password
		reader.ReadString('\r') // command
		conn.Write([]byte(ack + "\r\n"))
	}()
}

func TestTelnetPowerOnSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	serveTelnetOnce(t, ln, "OK")

	d := telnetDevice(t, ln.Addr().String())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcome, err := TelnetAdapter{}.PowerOn(ctx, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != model.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %s", outcome)
	}
}

func TestTelnetPowerOnUnexpectedResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	serveTelnetOnce(t, ln, "ERR")

	d := telnetDevice(t, ln.Addr().String())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcome, err := TelnetAdapter{}.PowerOn(ctx, d)
	if err == nil {
		t.Fatal("expected an error for unexpected ack token")
	}
	if outcome != model.OutcomeProtocolError {
		t.Fatalf("expected PROTOCOL_ERROR, got %s", outcome)
	}
}

func TestTelnetPowerOnMissingCredentials(t *testing.T) {
	d := model.Device{ID: "proj1", Type: model.DeviceTelnetProjector, Host: "127.0.0.1", Port: 1}
	ctx := context.Background()

	outcome, err := TelnetAdapter{}.PowerOn(ctx, d)
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if outcome != model.OutcomeProtocolError {
		t.Fatalf("expected PROTOCOL_ERROR, got %s", outcome)
	}
	if !strings.Contains(err.Error(), "no telnet credentials") {
		t.Fatalf("expected malformed-config message, got %v", err)
	}
}

func TestTelnetPowerOnUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close() // nothing listening now

	d := telnetDevice(t, addr)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	outcome, err := TelnetAdapter{}.PowerOn(ctx, d)
	if err == nil {
		t.Fatal("expected a dial error")
	}
	if outcome != model.OutcomeUnreachable {
		t.Fatalf("expected UNREACHABLE, got %s", outcome)
	}
}
