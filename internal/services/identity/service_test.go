package identity_test

import (
	"context"
	"errors"
	"testing"

	"cryptosocket/internal/crypto"
	cserrors "cryptosocket/internal/errors"
	"cryptosocket/internal/services/identity"
	"cryptosocket/internal/store"
)

const strongPassphrase = "Tr0ub4dor&3-horse"

func TestGenerateIdentity_PersistsAndFingerprints(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))

	id, fp, err := svc.GenerateIdentity(context.Background(), strongPassphrase, crypto.MinKeyBits, false)
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	if fp == "" || fp != id.Fingerprint() {
		t.Fatalf("unexpected fingerprint %q", fp)
	}

	got, err := svc.FingerprintIdentity()
	if err != nil {
		t.Fatalf("FingerprintIdentity: %v", err)
	}
	if got != fp {
		t.Fatalf("want %s, got %s", fp, got)
	}

	loaded, err := svc.LoadIdentity(strongPassphrase)
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if loaded.Fingerprint() != fp {
		t.Fatal("loaded identity differs")
	}
}

func TestGenerateIdentity_RefusesOverwrite(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	ctx := context.Background()

	if _, _, err := svc.GenerateIdentity(ctx, strongPassphrase, crypto.MinKeyBits, false); err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	if _, _, err := svc.GenerateIdentity(ctx, strongPassphrase, crypto.MinKeyBits, false); !errors.Is(err, cserrors.ErrIdentityExists) {
		t.Fatalf("want ErrIdentityExists, got %v", err)
	}
	if _, _, err := svc.GenerateIdentity(ctx, strongPassphrase, crypto.MinKeyBits, true); err != nil {
		t.Fatalf("GenerateIdentity with overwrite: %v", err)
	}
}

func TestGenerateIdentity_WeakPassphrase(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))

	for _, p := range []string{"", "short1!A", "alllowercase123!", "NoDigitsHere!!", "NoSymbols12345"} {
		_, _, err := svc.GenerateIdentity(context.Background(), p, crypto.MinKeyBits, false)
		if !errors.Is(err, cserrors.ErrWeakPassphrase) {
			t.Fatalf("%q: want ErrWeakPassphrase, got %v", p, err)
		}
	}
}
