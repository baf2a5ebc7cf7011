package wallet

import (
	"crypto/ed25519"
	"fmt"
	"strings"
)

type Signature struct {
	Data []byte
}

// Sign signs a message with an S... secret seed.
func Sign(secret string, msg []byte) (*Signature, error) {
	seed, err := DecodeSeed(secret)
	if err != nil {
		return nil, err
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return &Signature{
		Data: ed25519.Sign(priv, msg),
	}, nil
}

// Verify checks a signature against the public key embedded in a G... address.
func Verify(sig *Signature, addr string, msg []byte) (bool, error) {
	pub, err := DecodeAccount(addr)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, msg, sig.Data), nil
}

// ToPublic derives the G... address for an S... secret seed.
func ToPublic(secret string) (string, ed25519.PublicKey, error) {
	if len(strings.TrimSpace(secret)) == 0 {
		return "", nil, fmt.Errorf("invalid private key")
	}

	seed, err := DecodeSeed(secret)
	if err != nil {
		return "", nil, err
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return EncodeAccount(pub), pub, nil
}
