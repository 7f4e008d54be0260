package adapter

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aquactl/aquactl/pkg/model"
)

func TestBuildMagicPacketShape(t *testing.T) {
	hw, err := net.ParseMAC("AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("parsing mac: %v", err)
	}
	packet := buildMagicPacket(hw)

	if len(packet) != 6+16*6 {
		t.Fatalf("expected packet length %d, got %d", 6+16*6, len(packet))
	}
	for i := 0; i < 6; i++ {
		if packet[i] != 0xFF {
			t.Fatalf("expected leading 0xFF sync stream, byte %d was %x", i, packet[i])
		}
	}
	for i := 0; i < 16; i++ {
		chunk := packet[6+i*6 : 6+i*6+6]
		for j, b := range chunk {
			if b != hw[j] {
				t.Fatalf("repetition %d byte %d: expected %x got %x", i, j, hw[j], b)
			}
		}
	}
}

func TestPCWakePowerOnMissingCredentials(t *testing.T) {
	d := model.Device{ID: "pc1", Type: model.DevicePCWake, Host: "127.0.0.1", Port: 1}
	outcome, err := PCWakeAdapter{}.PowerOn(context.Background(), d)
	if err == nil {
		t.Fatal("expected an error for missing wake credentials")
	}
	if outcome != model.OutcomeProtocolError {
		t.Fatalf("expected PROTOCOL_ERROR, got %s", outcome)
	}
}

func TestPCWakePowerOffWithoutShutdownChannel(t *testing.T) {
	d := model.Device{
		ID:   "pc1",
		Type: model.DevicePCWake,
		Host: "127.0.0.1",
		Credentials: model.Credentials{
			Wake: &model.WakeCredentials{MAC: "AA:BB:CC:DD:EE:FF"},
		},
	}
	outcome, err := PCWakeAdapter{}.PowerOff(context.Background(), d)
	if err == nil {
		t.Fatal("expected an error when no shutdown channel is configured")
	}
	if outcome != model.OutcomeProtocolError {
		t.Fatalf("expected PROTOCOL_ERROR, got %s", outcome)
	}
	if !strings.Contains(err.Error(), "shutdown channel") {
		t.Fatalf("expected shutdown-channel message, got %v", err)
	}
}

func TestPCWakePowerOffSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 32)
		conn.Read(buf)
		conn.Write([]byte("OK"))
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	d := model.Device{
		ID:   "pc1",
		Type: model.DevicePCWake,
		Host: "127.0.0.1",
		Credentials: model.Credentials{
			Wake: &model.WakeCredentials{MAC: "AA:BB:CC:DD:EE:FF", ShutdownHost: host, ShutdownPort: port},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcome, err := PCWakeAdapter{}.PowerOff(ctx, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != model.OutcomeSuccess {
		t.Fatalf("expected SUCCESS, got %s", outcome)
	}
}
