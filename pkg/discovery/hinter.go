package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// ServiceType is the mDNS service type aquactl-capable devices
// advertise themselves under, if they choose to.
const ServiceType = "_aquactl._tcp"

// Domain is the mDNS domain browsed.
const Domain = "local."

// Hint is a device seen on the LAN via mDNS. Informational only; never
// auto-added. The Hinter does not compare sightings against the
// registry, so a hint may name a device that is already configured.
type Hint struct {
	Name        string
	Host        string
	Port        int
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// Hinter browses for aquactl devices on a timer and keeps a read-only
// table of what it has seen. Safe for concurrent use.
type Hinter struct {
	interval time.Duration

	mu    sync.RWMutex
	hints map[string]Hint
}

// NewHinter creates a Hinter that rescans every interval.
func NewHinter(interval time.Duration) *Hinter {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Hinter{interval: interval, hints: make(map[string]Hint)}
}

// Run browses the LAN every interval until ctx is cancelled. Intended
// to be started as a background goroutine by the engine.
func (h *Hinter) Run(ctx context.Context) {
	h.scanOnce(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.scanOnce(ctx)
		}
	}
}

func (h *Hinter) scanOnce(ctx context.Context) {
	entries := make(chan *zeroconf.ServiceEntry, 16)
	removed := make(chan *zeroconf.ServiceEntry, 16)
	scanCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				h.record(entryToSighting(entry))
			case _, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
			case <-scanCtx.Done():
				return
			}
		}
	}()

	_ = zeroconf.Browse(scanCtx, ServiceType, Domain, entries, removed)
	<-done
}

// sighting is the subset of a zeroconf.ServiceEntry the hinter cares
// about, extracted up front so recording logic does not depend on the
// exact shape of the upstream type.
type sighting struct {
	instance string
	host     string
	port     int
}

func entryToSighting(entry *zeroconf.ServiceEntry) sighting {
	if entry == nil {
		return sighting{}
	}
	host := entry.HostName
	if len(entry.AddrIPv4) > 0 {
		host = entry.AddrIPv4[0].String()
	}
	return sighting{instance: entry.Instance, host: host, port: entry.Port}
}

func (h *Hinter) record(s sighting) {
	if s.instance == "" {
		return
	}

	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, ok := h.hints[s.instance]
	firstSeen := now
	if ok {
		firstSeen = existing.FirstSeenAt
	}
	h.hints[s.instance] = Hint{
		Name:        s.instance,
		Host:        s.host,
		Port:        s.port,
		FirstSeenAt: firstSeen,
		LastSeenAt:  now,
	}
}

// Hints returns every hint seen so far, sorted by name.
func (h *Hinter) Hints() []Hint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Hint, 0, len(h.hints))
	for _, hint := range h.hints {
		out = append(out, hint)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// String implements fmt.Stringer for diagnostic logging.
func (h Hint) String() string {
	return fmt.Sprintf("%s@%s:%d (first seen %s)", h.Name, h.Host, h.Port, h.FirstSeenAt.Format(time.RFC3339))
}
