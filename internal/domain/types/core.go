package types

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Address is a host:port a server listens on.
type Address string

// String returns the string form of the address.
func (a Address) String() string { return string(a) }
