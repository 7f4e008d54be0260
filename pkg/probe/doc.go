// Package probe implements the Health Prober: a single reachability
// check per device, executed against whichever probe_spec the device
// declares (ICMP, TCP connect, or HTTP GET). It never retries
// internally — the Monitor decides whether and when to probe again.
package probe
