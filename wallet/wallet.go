package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

const (
	WalletRepo  = "keystore"
	KNamePrefix = "wallet-"
)

var (
	ErrKeyInfoNotFound = fmt.Errorf("key info not found")
	ErrKeyExists       = fmt.Errorf("key already exists")
)

var reAddress = regexp.MustCompile("^G[A-Z2-7]{55}$")

// ValidAddress reports whether s looks like a G... account address.
func ValidAddress(s string) bool {
	return reAddress.MatchString(s)
}

func SetupWallet(dir string) (*LocalWallet, error) {
	repoPath, exist := os.LookupEnv("CARROT_PATH")
	if !exist {
		return nil, fmt.Errorf("missing CARROT_PATH env, please set export CARROT_PATH=xxx")
	}

	kstore, err := OpenOrInitKeystore(filepath.Join(repoPath, dir))
	if err != nil {
		return nil, err
	}

	wallet, err := NewWallet(kstore)
	if err != nil {
		return nil, err
	}

	return wallet, nil
}

type LocalWallet struct {
	keys     map[string]*KeyInfo
	keystore KeyStore

	lk sync.Mutex
}

func NewWallet(keystore KeyStore) (*LocalWallet, error) {
	w := &LocalWallet{
		keys:     make(map[string]*KeyInfo),
		keystore: keystore,
	}
	return w, nil
}

// Session is an active wallet binding passed explicitly to the synchronizer
// and orchestrator instead of living as ambient process state.
type Session struct {
	Address string
	Network string
}

// Connect binds an address whose key is present in the keystore to a
// network and returns the session handle.
func (w *LocalWallet) Connect(addr string, network string) (*Session, error) {
	if !ValidAddress(addr) {
		return nil, xerrors.Errorf("malformed account address: %s", addr)
	}
	ki, err := w.findKey(addr)
	if err != nil {
		return nil, err
	}
	if ki == nil {
		return nil, xerrors.Errorf("connecting '%s': %w", addr, ErrKeyInfoNotFound)
	}
	return &Session{Address: addr, Network: network}, nil
}

func (w *LocalWallet) WalletSign(ctx context.Context, addr string, msg []byte) (string, error) {
	ki, err := w.findKey(addr)
	if err != nil {
		return "", err
	}
	if ki == nil {
		return "", xerrors.Errorf("signing using private key '%s': %w", addr, ErrKeyInfoNotFound)
	}
	sig, err := Sign(ki.PrivateKey, msg)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig.Data), nil
}

func (w *LocalWallet) WalletVerify(ctx context.Context, addr string, sigByte []byte, data string) (bool, error) {
	return Verify(&Signature{Data: sigByte}, addr, []byte(data))
}

func (w *LocalWallet) findKey(addr string) (*KeyInfo, error) {
	w.lk.Lock()
	defer w.lk.Unlock()

	k, ok := w.keys[addr]
	if ok {
		return k, nil
	}
	if w.keystore == nil {
		return nil, nil
	}

	ki, err := w.keystore.Get(KNamePrefix + addr)
	if err != nil {
		if xerrors.Is(err, ErrKeyInfoNotFound) {
			return nil, nil
		}
		return nil, xerrors.Errorf("getting from keystore: %w", err)
	}

	w.keys[addr] = &ki
	return &ki, nil
}

func (w *LocalWallet) WalletExport(ctx context.Context, addr string) (*KeyInfo, error) {
	k, err := w.findKey(addr)
	if err != nil {
		return nil, xerrors.Errorf("failed to find key to export: %w", err)
	}
	if k == nil {
		return nil, xerrors.Errorf("private key not found for %s", addr)
	}

	return k, nil
}

func (w *LocalWallet) WalletImport(ctx context.Context, ki *KeyInfo) (string, error) {
	if ki == nil || len(strings.TrimSpace(ki.PrivateKey)) == 0 {
		return "", fmt.Errorf("not found private key")
	}

	address, _, err := ToPublic(ki.PrivateKey)
	if err != nil {
		return "", err
	}

	if existing, _ := w.findKey(address); existing != nil {
		return "", xerrors.Errorf("importing '%s': %w", address, ErrKeyExists)
	}

	if err := w.keystore.Put(KNamePrefix+address, *ki); err != nil {
		return "", xerrors.Errorf("saving to keystore: %w", err)
	}
	return address, nil
}

func (w *LocalWallet) WalletNew(ctx context.Context) (string, error) {
	w.lk.Lock()
	defer w.lk.Unlock()

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}

	priv := ed25519.NewKeyFromSeed(seed)
	address := EncodeAccount(priv.Public().(ed25519.PublicKey))

	keyInfo := KeyInfo{PrivateKey: EncodeSeed(seed)}
	if err := w.keystore.Put(KNamePrefix+address, keyInfo); err != nil {
		return "", xerrors.Errorf("saving to keystore: %w", err)
	}
	w.keys[address] = &keyInfo

	return address, nil
}

func (w *LocalWallet) walletDelete(ctx context.Context, addr string) error {
	k, err := w.findKey(addr)

	if err != nil {
		return xerrors.Errorf("failed to delete key %s : %w", addr, err)
	}
	if k == nil {
		return nil // already not there
	}

	w.lk.Lock()
	defer w.lk.Unlock()

	if err := w.keystore.Delete(KNamePrefix + addr); err != nil {
		return xerrors.Errorf("failed to delete key %s: %w", addr, err)
	}

	delete(w.keys, addr)

	return nil
}

func (w *LocalWallet) WalletDelete(ctx context.Context, addr string) error {
	if err := w.walletDelete(ctx, addr); err != nil {
		return xerrors.Errorf("wallet delete: %w", err)
	}
	return nil
}

func (w *LocalWallet) WalletList(ctx context.Context) ([]string, error) {
	all, err := w.keystore.List()
	if err != nil {
		return nil, xerrors.Errorf("listing keystore: %w", err)
	}

	addressList := make([]string, 0, len(all))
	for _, a := range all {
		if strings.HasPrefix(a, KNamePrefix) {
			addr := strings.TrimPrefix(a, KNamePrefix)
			addressList = append(addressList, addr)
		}
	}
	return addressList, nil
}
