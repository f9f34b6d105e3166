package types

import "time"

// KnownPeer records the key a server presented the first time we met it.
type KnownPeer struct {
	Address     Address     `json:"address"`
	Fingerprint Fingerprint `json:"fingerprint"`
	FirstSeen   time.Time   `json:"first_seen"`
	LastSeen    time.Time   `json:"last_seen"`
}

// DiscoveredServer is a server found by mDNS browsing.
type DiscoveredServer struct {
	Instance    string      `json:"instance"`
	Address     Address     `json:"address"`
	Fingerprint Fingerprint `json:"fingerprint,omitempty"`
	Version     string      `json:"version,omitempty"`
}
