package wallet

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKeyStore struct {
	m map[string]KeyInfo
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{m: make(map[string]KeyInfo)}
}

func (ks *memKeyStore) List() ([]string, error) {
	var keys []string
	for k := range ks.m {
		keys = append(keys, k)
	}
	return keys, nil
}

func (ks *memKeyStore) Get(name string) (KeyInfo, error) {
	ki, ok := ks.m[name]
	if !ok {
		return KeyInfo{}, ErrKeyInfoNotFound
	}
	return ki, nil
}

func (ks *memKeyStore) Put(name string, ki KeyInfo) error {
	ks.m[name] = ki
	return nil
}

func (ks *memKeyStore) Delete(name string) error {
	delete(ks.m, name)
	return nil
}

func TestWalletNewSignVerify(t *testing.T) {
	ctx := context.Background()
	w, err := NewWallet(newMemKeyStore())
	require.NoError(t, err)

	addr, err := w.WalletNew(ctx)
	require.NoError(t, err)
	assert.True(t, ValidAddress(addr), addr)

	msg := []byte("claim_job 42")
	sigHex, err := w.WalletSign(ctx, addr, msg)
	require.NoError(t, err)

	sig, err := hex.DecodeString(sigHex)
	require.NoError(t, err)

	ok, err := w.WalletVerify(ctx, addr, sig, string(msg))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.WalletVerify(ctx, addr, sig, "some other message")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWalletImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	w, err := NewWallet(newMemKeyStore())
	require.NoError(t, err)

	addr, err := w.WalletNew(ctx)
	require.NoError(t, err)

	ki, err := w.WalletExport(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, byte('S'), ki.PrivateKey[0])

	w2, err := NewWallet(newMemKeyStore())
	require.NoError(t, err)

	imported, err := w2.WalletImport(ctx, ki)
	require.NoError(t, err)
	assert.Equal(t, addr, imported)

	_, err = w2.WalletImport(ctx, ki)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyExists)
}

func TestWalletDeleteAndList(t *testing.T) {
	ctx := context.Background()
	w, err := NewWallet(newMemKeyStore())
	require.NoError(t, err)

	a1, err := w.WalletNew(ctx)
	require.NoError(t, err)
	a2, err := w.WalletNew(ctx)
	require.NoError(t, err)

	addrs, err := w.WalletList(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a1, a2}, addrs)

	require.NoError(t, w.WalletDelete(ctx, a1))
	addrs, err = w.WalletList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a2}, addrs)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	w, err := NewWallet(newMemKeyStore())
	require.NoError(t, err)

	addr, err := w.WalletNew(ctx)
	require.NoError(t, err)

	session, err := w.Connect(addr, "testnet")
	require.NoError(t, err)
	assert.Equal(t, addr, session.Address)
	assert.Equal(t, "testnet", session.Network)

	_, err = w.Connect("not-an-address", "testnet")
	assert.Error(t, err)
}

func TestStrkeyRoundTrip(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	secret := EncodeSeed(seed)
	assert.Equal(t, byte('S'), secret[0])
	assert.Len(t, secret, 56)

	back, err := DecodeSeed(secret)
	require.NoError(t, err)
	assert.Equal(t, seed, back)

	addr, _, err := ToPublic(secret)
	require.NoError(t, err)
	assert.True(t, ValidAddress(addr))

	// corrupting one character breaks the checksum
	corrupted := "A" + secret[1:]
	_, err = DecodeSeed(corrupted)
	assert.Error(t, err)
}
