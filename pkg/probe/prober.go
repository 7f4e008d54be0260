package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/aquactl/aquactl/pkg/model"
)

// MaxProbeTimeout is the upper bound on any single probe, per spec.
const MaxProbeTimeout = 3 * time.Second

// Result is what a single probe call observed.
type Result struct {
	Reachable bool
	LatencyMS int64
	Detail    string
}

// Prober executes a device's probe_spec once and reports reachability.
type Prober struct {
	httpClient *http.Client
}

// New creates a Prober with an HTTP client scoped to MaxProbeTimeout.
func New() *Prober {
	return &Prober{httpClient: &http.Client{Timeout: MaxProbeTimeout}}
}

// Probe runs the device's effective probe_spec once.
func (p *Prober) Probe(ctx context.Context, d model.Device) Result {
	ctx, cancel := context.WithTimeout(ctx, MaxProbeTimeout)
	defer cancel()

	spec := d.EffectiveProbeSpec()
	start := time.Now()

	switch spec.Kind {
	case model.ProbeICMP:
		return p.probeICMP(ctx, d, start)
	case model.ProbeHTTP:
		return p.probeHTTP(ctx, d, spec, start)
	default:
		return p.probeTCP(ctx, fmt.Sprintf("%s:%d", d.Host, spec.Port), start)
	}
}

func (p *Prober) probeTCP(ctx context.Context, addr string, start time.Time) Result {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return Result{Reachable: false, LatencyMS: latency, Detail: fmt.Sprintf("tcp connect failed: %v", err)}
	}
	conn.Close()
	return Result{Reachable: true, LatencyMS: latency, Detail: "tcp connect ok"}
}

// probeICMP sends a single echo request. Raw ICMP sockets require
// elevated privileges on most hosts; when socket creation fails, the
// prober transparently falls back to a TCP-connect probe, per spec.
func (p *Prober) probeICMP(ctx context.Context, d model.Device, start time.Time) Result {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		port := d.Port
		if port == 0 {
			port = 80
		}
		res := p.probeTCP(ctx, fmt.Sprintf("%s:%d", d.Host, port), start)
		res.Detail = "icmp unavailable, fell back to tcp connect: " + res.Detail
		return res
	}
	defer conn.Close()

	dst, err := net.ResolveIPAddr("ip4", d.Host)
	if err != nil {
		return Result{Reachable: false, LatencyMS: time.Since(start).Milliseconds(), Detail: fmt.Sprintf("resolving host: %v", err)}
	}

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  1,
			Data: []byte("aquactl-probe"),
		},
	}
	wireMsg, err := msg.Marshal(nil)
	if err != nil {
		return Result{Reachable: false, LatencyMS: time.Since(start).Milliseconds(), Detail: fmt.Sprintf("encoding echo request: %v", err)}
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.WriteTo(wireMsg, dst); err != nil {
		return Result{Reachable: false, LatencyMS: time.Since(start).Milliseconds(), Detail: fmt.Sprintf("sending echo request: %v", err)}
	}

	reply := make([]byte, 1500)
	n, _, err := conn.ReadFrom(reply)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return Result{Reachable: false, LatencyMS: latency, Detail: fmt.Sprintf("no echo reply: %v", err)}
	}

	parsed, err := icmp.ParseMessage(1, reply[:n])
	if err != nil {
		return Result{Reachable: false, LatencyMS: latency, Detail: fmt.Sprintf("parsing echo reply: %v", err)}
	}
	if parsed.Type != ipv4.ICMPTypeEchoReply {
		return Result{Reachable: false, LatencyMS: latency, Detail: fmt.Sprintf("unexpected icmp type %v", parsed.Type)}
	}
	return Result{Reachable: true, LatencyMS: latency, Detail: "icmp echo reply received"}
}

func (p *Prober) probeHTTP(ctx context.Context, d model.Device, spec model.ProbeSpec, start time.Time) Result {
	port := d.Port
	if port == 0 {
		port = 80
	}
	url := fmt.Sprintf("http://%s:%d%s", d.Host, port, spec.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Reachable: false, LatencyMS: time.Since(start).Milliseconds(), Detail: fmt.Sprintf("building request: %v", err)}
	}

	resp, err := p.httpClient.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return Result{Reachable: false, LatencyMS: latency, Detail: fmt.Sprintf("http get failed: %v", err)}
	}
	defer resp.Body.Close()

	threshold := spec.ExpectStatusBelow
	if threshold == 0 {
		threshold = 400
	}
	if resp.StatusCode >= threshold {
		return Result{Reachable: false, LatencyMS: latency, Detail: fmt.Sprintf("status %d >= threshold %d", resp.StatusCode, threshold)}
	}
	return Result{Reachable: true, LatencyMS: latency, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
}
