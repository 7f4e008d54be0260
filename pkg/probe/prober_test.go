package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/aquactl/aquactl/pkg/model"
)

func TestProbeTCPReachable(t *testing.T) {
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
	d := model.Device{ID: "d1", Host: host, Port: port, ProbeSpec: model.ProbeSpec{Kind: model.ProbeTCP, Port: port}}

	p := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := p.Probe(ctx, d)
	if !res.Reachable {
		t.Fatalf("expected reachable, got %+v", res)
	}
}

func TestProbeTCPUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)
	d := model.Device{ID: "d1", Host: host, Port: port, ProbeSpec: model.ProbeSpec{Kind: model.ProbeTCP, Port: port}}

	p := New()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	res := p.Probe(ctx, d)
	if res.Reachable {
		t.Fatal("expected unreachable")
	}
}

func TestProbeHTTPReachableBelowThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, portStr, _ := net.SplitHostPort(srv.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	d := model.Device{ID: "d1", Host: host, Port: port, ProbeSpec: model.ProbeSpec{Kind: model.ProbeHTTP, Path: "/", ExpectStatusBelow: 400}}

	p := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := p.Probe(ctx, d)
	if !res.Reachable {
		t.Fatalf("expected reachable, got %+v", res)
	}
}

func TestProbeHTTPStatusAtOrAboveThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	host, portStr, _ := net.SplitHostPort(srv.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	d := model.Device{ID: "d1", Host: host, Port: port, ProbeSpec: model.ProbeSpec{Kind: model.ProbeHTTP, Path: "/", ExpectStatusBelow: 400}}

	p := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := p.Probe(ctx, d)
	if res.Reachable {
		t.Fatalf("expected unreachable due to 5xx status, got %+v", res)
	}
}

func TestProbeDefaultsToTCPOnDevicePort(t *testing.T) {
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
	d := model.Device{ID: "d1", Host: host, Port: port}

	p := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := p.Probe(ctx, d)
	if !res.Reachable {
		t.Fatalf("expected reachable via default tcp probe, got %+v", res)
	}
}
