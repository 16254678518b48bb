package license

import (
	"encoding/json"
	"testing"
	"time"

	"golang.org/x/crypto/ed25519"
)

func TestVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	l := License{Subscription: "enterprise", ExpiresAt: time.Now().Add(24 * time.Hour), MaxUsers: 100}
	canonical, err := json.Marshal(l)
	if err != nil {
		t.Fatal(err)
	}
	sig := ed25519.Sign(priv, canonical)
	raw, err := json.Marshal(signedPayload{License: l, Signature: sig})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Verify(raw, pub)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Subscription != "enterprise" || got.MaxUsers != 100 {
		t.Fatalf("unexpected decoded license: %+v", got)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	l := License{Subscription: "enterprise", MaxUsers: 10}
	canonical, _ := json.Marshal(l)
	sig := ed25519.Sign(priv, canonical)
	l.MaxUsers = 999999
	raw, _ := json.Marshal(signedPayload{License: l, Signature: sig})
	if _, err := Verify(raw, pub); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for tampered payload, got %v", err)
	}
}

func TestCacheValidate(t *testing.T) {
	c := NewCache(nil)
	if err := c.Validate(time.Now()); err != ErrMissing {
		t.Fatalf("expected ErrMissing on empty cache, got %v", err)
	}

	expired := &License{ExpiresAt: time.Now().Add(-time.Hour)}
	if err := c.Set(expired); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(time.Now()); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	valid := &License{ExpiresAt: time.Now().Add(time.Hour)}
	if err := c.Set(valid); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(time.Now()); err != nil {
		t.Fatalf("expected valid license to pass, got %v", err)
	}
	if !c.IsEnterpriseEnabled() {
		t.Fatal("expected IsEnterpriseEnabled true for a valid license")
	}
}
