package crypto

// PrivateOps reports how many private-key exponentiations have run.
func PrivateOps() uint64 { return privateOps.Load() }
