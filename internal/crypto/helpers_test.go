package crypto_test

import (
	"context"
	"sync"
	"testing"

	"cryptosocket/internal/crypto"
)

var (
	keyOnce  sync.Once
	keyPairs [2]*crypto.KeyPair
	keyErr   error
)

// testKeyPairs returns two distinct 1024-bit key pairs shared by the package tests.
// Tests must not Wipe them.
func testKeyPairs(t *testing.T) (*crypto.KeyPair, *crypto.KeyPair) {
	t.Helper()
	keyOnce.Do(func() {
		for i := range keyPairs {
			keyPairs[i], keyErr = crypto.GenerateKeyPair(context.Background(), crypto.MinKeyBits)
			if keyErr != nil {
				return
			}
		}
	})
	if keyErr != nil {
		t.Fatalf("GenerateKeyPair: %v", keyErr)
	}
	return keyPairs[0], keyPairs[1]
}
