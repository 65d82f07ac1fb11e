package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// GenerateSubscriptionKeys creates the client key material for a new push
// subscription: a P-256 keypair whose uncompressed public point becomes
// p256dh, plus a 16-byte auth secret. All values are base64url without
// padding, the form the backend sync endpoint expects.
func GenerateSubscriptionKeys() (p256dh, privateKey, auth string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", "", err
	}
	pubBytes := elliptic.Marshal(priv.Curve, priv.PublicKey.X, priv.PublicKey.Y)
	p256dh = base64.RawURLEncoding.EncodeToString(pubBytes)

	dBytes := priv.D.Bytes()
	paddedD := make([]byte, 32)
	copy(paddedD[32-len(dBytes):], dBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(paddedD)

	authSecret := make([]byte, 16)
	if _, err := rand.Read(authSecret); err != nil {
		return "", "", "", err
	}
	auth = base64.RawURLEncoding.EncodeToString(authSecret)
	return p256dh, privateKey, auth, nil
}

// PrivateKeyFromRaw rebuilds the subscription's ECDH key from its stored
// 32-byte scalar.
func PrivateKeyFromRaw(privRawB64 string) (*ecdsa.PrivateKey, error) {
	privRaw, err := DecodeBase64URL(privRawB64)
	if err != nil {
		return nil, err
	}
	if len(privRaw) != 32 {
		return nil, fmt.Errorf("invalid private key length: %d", len(privRaw))
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(privRaw)
	x, y := curve.ScalarBaseMult(privRaw)
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}, nil
}

// ValidateServerKey checks that a VAPID public key decodes to an
// uncompressed P-256 point before it is handed to the relay.
func ValidateServerKey(keyB64 string) error {
	raw, err := DecodeBase64URL(keyB64)
	if err != nil {
		return fmt.Errorf("decode server key: %w", err)
	}
	if len(raw) != 65 || raw[0] != 0x04 {
		return fmt.Errorf("server key is not an uncompressed P-256 point (%d bytes)", len(raw))
	}
	return nil
}

// DecodeBase64URL decodes base64url input with or without padding.
func DecodeBase64URL(s string) ([]byte, error) {
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	return base64.URLEncoding.DecodeString(s)
}
