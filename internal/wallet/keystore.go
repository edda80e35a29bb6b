// Package wallet loads the signing keys execute requests are allowed to use.
package wallet

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

var ErrWalletNotFound = errors.New("wallet not found")

// Keystore maps wallet addresses to their private keys. EVM addresses are
// matched case-insensitively.
type Keystore struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewKeystore(keys map[string]string) *Keystore {
	ks := &Keystore{keys: make(map[string]string, len(keys))}
	for addr, key := range keys {
		ks.keys[normalize(addr)] = key
	}
	return ks
}

// LoadKeystore reads a JSON object of address to private key. A missing
// file yields an empty keystore so quote-only deployments can start.
func LoadKeystore(path string) (*Keystore, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("[wallet] keys file not found, execute requests will be rejected")
		return NewKeystore(nil), nil
	}
	if err != nil {
		return nil, err
	}

	var keys map[string]string
	if err := sonic.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	log.Info().Int("wallets", len(keys)).Msg("[wallet] keystore loaded")
	return NewKeystore(keys), nil
}

// PrivateKey returns the encoded private key for address.
func (k *Keystore) PrivateKey(address string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[normalize(address)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrWalletNotFound, address)
	}
	return key, nil
}

func (k *Keystore) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

func normalize(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		return strings.ToLower(address)
	}
	return address
}
