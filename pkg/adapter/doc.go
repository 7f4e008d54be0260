// Package adapter implements the per-device-type protocol adapters
// that drive power control and reachability queries: telnet-style
// projector control, a length-prefixed JSON-RPC projector protocol,
// Wake-on-LAN, and a bare TCP reachability adapter. Device Manager
// never branches on Device.Type itself — it looks the adapter up
// through the registry in this package.
package adapter
