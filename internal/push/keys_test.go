package push

import (
	"crypto/elliptic"
	"encoding/base64"
	"testing"
)

func TestGenerateSubscriptionKeys(t *testing.T) {
	p256dh, privateKey, auth, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	pub, err := base64.RawURLEncoding.DecodeString(p256dh)
	if err != nil {
		t.Fatalf("p256dh is not unpadded base64url: %v", err)
	}
	if len(pub) != 65 || pub[0] != 0x04 {
		t.Fatalf("p256dh is not an uncompressed P-256 point: %d bytes, prefix %#x", len(pub), pub[0])
	}

	priv, err := base64.RawURLEncoding.DecodeString(privateKey)
	if err != nil {
		t.Fatalf("private key is not unpadded base64url: %v", err)
	}
	if len(priv) != 32 {
		t.Fatalf("private key = %d bytes, want 32", len(priv))
	}

	secret, err := base64.RawURLEncoding.DecodeString(auth)
	if err != nil {
		t.Fatalf("auth secret is not unpadded base64url: %v", err)
	}
	if len(secret) != 16 {
		t.Fatalf("auth secret = %d bytes, want 16", len(secret))
	}
}

func TestPrivateKeyFromRawMatchesPublicPoint(t *testing.T) {
	p256dh, privateKey, _, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	priv, err := PrivateKeyFromRaw(privateKey)
	if err != nil {
		t.Fatalf("rebuild private key: %v", err)
	}
	pub := elliptic.Marshal(priv.Curve, priv.PublicKey.X, priv.PublicKey.Y)
	if got := base64.RawURLEncoding.EncodeToString(pub); got != p256dh {
		t.Fatal("rebuilt key does not derive the stored public point")
	}

	if _, err := PrivateKeyFromRaw("dG9vLXNob3J0"); err == nil {
		t.Fatal("accepted a scalar of the wrong length")
	}
	if _, err := PrivateKeyFromRaw("!!!"); err == nil {
		t.Fatal("accepted invalid base64")
	}
}

func TestValidateServerKey(t *testing.T) {
	p256dh, _, _, err := GenerateSubscriptionKeys()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := ValidateServerKey(p256dh); err != nil {
		t.Fatalf("rejected a valid key: %v", err)
	}
	if err := ValidateServerKey("AAAA"); err == nil {
		t.Fatal("accepted a 3-byte key")
	}
	if err := ValidateServerKey("%%%"); err == nil {
		t.Fatal("accepted invalid base64")
	}
}

func TestDecodeBase64URLPaddingTolerance(t *testing.T) {
	// Both padded and unpadded forms decode to the same bytes; relay
	// notifications arrive in either.
	for _, s := range []string{"aGVsbG8", "aGVsbG8="} {
		got, err := DecodeBase64URL(s)
		if err != nil {
			t.Fatalf("DecodeBase64URL(%q): %v", s, err)
		}
		if string(got) != "hello" {
			t.Fatalf("DecodeBase64URL(%q) = %q", s, got)
		}
	}
}
