package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"0xAbCdEf0000000000000000000000000000000001": "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
		"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin": "base58-secret"
	}`), 0600))

	ks, err := LoadKeystore(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ks.Len())

	key, err := ks.PrivateKey("0xabcdef0000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Contains(t, key, "59c6995e")

	key, err = ks.PrivateKey("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	require.NoError(t, err)
	assert.Equal(t, "base58-secret", key)

	_, err = ks.PrivateKey("9xqewvg816bux9epjhmat23yvvm2zwbrrpzb9pusvfin")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestLoadKeystoreMissingFile(t *testing.T) {
	ks, err := LoadKeystore(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, ks.Len())
}

func TestLoadKeystoreMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2`), 0600))
	_, err := LoadKeystore(path)
	assert.Error(t, err)
}
