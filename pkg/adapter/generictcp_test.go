package adapter

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/aquactl/aquactl/pkg/model"
)

func TestGenericTCPPowerOnAlwaysProtocolError(t *testing.T) {
	d := model.Device{ID: "cam1", Type: model.DeviceGenericTCP, Host: "127.0.0.1", Port: 1}
	outcome, err := GenericTCPAdapter{}.PowerOn(context.Background(), d)
	if err == nil {
		t.Fatal("expected an error")
	}
	if outcome != model.OutcomeProtocolError {
		t.Fatalf("expected PROTOCOL_ERROR, got %s", outcome)
	}
}

func TestGenericTCPQueryPowerReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	d := model.Device{ID: "cam1", Type: model.DeviceGenericTCP, Host: host, Port: port}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	state, outcome, err := GenericTCPAdapter{}.QueryPower(ctx, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != model.OutcomeSuccess || state != PowerOn {
		t.Fatalf("expected on/SUCCESS, got %s/%s", state, outcome)
	}
}

func TestGenericTCPQueryPowerUnreachableIsUnknownNotError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)
	d := model.Device{ID: "cam1", Type: model.DeviceGenericTCP, Host: host, Port: port}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	state, outcome, err := GenericTCPAdapter{}.QueryPower(ctx, d)
	if err != nil {
		t.Fatalf("expected no error for a clean refusal, got %v", err)
	}
	if outcome != model.OutcomeSuccess || state != PowerUnknown {
		t.Fatalf("expected unknown/SUCCESS, got %s/%s", state, outcome)
	}
}
