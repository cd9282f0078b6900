package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Signer derives addresses and signatures from owner credentials. It keeps no
// state: key material only lives on the stack for the duration of one call
// and is wiped before returning.
type Signer struct{}

func NewSigner() *Signer {
	return &Signer{}
}

func (s *Signer) PublicAddress(credential string) (string, error) {
	priv, err := decodeCredential(credential)
	if err != nil {
		return "", err
	}
	defer wipe(priv)

	return hex.EncodeToString(priv.Public().(ed25519.PublicKey)), nil
}

// Sign signs the canonical payload of an operation set and returns the
// base64 signature.
func (s *Signer) Sign(payload []byte, credential string) (string, error) {
	priv, err := decodeCredential(credential)
	if err != nil {
		return "", err
	}
	defer wipe(priv)

	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, payload)), nil
}

// decodeCredential accepts a hex or base64 encoded ed25519 key, either a
// 32 byte seed or a full 64 byte private key.
func decodeCredential(credential string) (ed25519.PrivateKey, error) {
	keyBytes, err := hex.DecodeString(credential)
	if err != nil {
		keyBytes, err = base64.StdEncoding.DecodeString(credential)
		if err != nil {
			return nil, fmt.Errorf("credential is neither valid hex nor valid base64")
		}
	}
	defer wipe(keyBytes)

	switch len(keyBytes) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(keyBytes), nil
	case ed25519.PrivateKeySize:
		priv := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
		copy(priv, keyBytes)
		return priv, nil
	default:
		return nil, fmt.Errorf("credential must decode to %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(keyBytes))
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
