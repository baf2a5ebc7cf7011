package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base32"
	"fmt"
)

// Stellar strkey version bytes. Accounts render as G..., seeds as S...
const (
	versionAccount = 6 << 3
	versionSeed    = 18 << 3
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// crc16 is the CRC16-XModem checksum strkey appends to every payload.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func encodeStrkey(version byte, data []byte) string {
	payload := make([]byte, 0, len(data)+3)
	payload = append(payload, version)
	payload = append(payload, data...)
	sum := crc16(payload)
	payload = append(payload, byte(sum), byte(sum>>8))
	return b32.EncodeToString(payload)
}

func decodeStrkey(version byte, encoded string) ([]byte, error) {
	raw, err := b32.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding strkey: %w", err)
	}
	if len(raw) != 35 {
		return nil, fmt.Errorf("strkey has wrong length %d", len(raw))
	}
	payload, checksum := raw[:33], raw[33:]
	if payload[0] != version {
		return nil, fmt.Errorf("unexpected strkey version byte %#x", payload[0])
	}
	sum := crc16(payload)
	if !bytes.Equal(checksum, []byte{byte(sum), byte(sum >> 8)}) {
		return nil, fmt.Errorf("strkey checksum mismatch")
	}
	return payload[1:], nil
}

// EncodeAccount renders an ed25519 public key as a G... address.
func EncodeAccount(pub ed25519.PublicKey) string {
	return encodeStrkey(versionAccount, pub)
}

// DecodeAccount parses a G... address back into its public key.
func DecodeAccount(address string) (ed25519.PublicKey, error) {
	raw, err := decodeStrkey(versionAccount, address)
	if err != nil {
		return nil, fmt.Errorf("bad account address %s: %w", address, err)
	}
	return ed25519.PublicKey(raw), nil
}

// EncodeSeed renders an ed25519 seed as an S... secret.
func EncodeSeed(seed []byte) string {
	return encodeStrkey(versionSeed, seed)
}

// DecodeSeed parses an S... secret back into the 32-byte seed.
func DecodeSeed(secret string) ([]byte, error) {
	raw, err := decodeStrkey(versionSeed, secret)
	if err != nil {
		return nil, fmt.Errorf("bad secret seed: %w", err)
	}
	return raw, nil
}
