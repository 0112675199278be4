package security

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	c, err := NewCipher(make([]byte, 32))
	require.NoError(t, err)

	sealed, err := c.Encrypt([]byte("secret"))
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "secret")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, "secret", string(plain))

	sealed[len(sealed)-1] ^= 0xff
	_, err = c.Decrypt(sealed)
	require.Error(t, err)

	_, err = c.Decrypt([]byte("x"))
	require.Error(t, err)
}

func TestNewCipherKeyLength(t *testing.T) {
	_, err := NewCipher([]byte("short"))
	require.Error(t, err)
}

func TestLoadCipherGeneratesKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")

	c1, generated, err := LoadCipher(KeySource{KeyPath: path})
	require.NoError(t, err)
	require.True(t, generated)

	c2, generated, err := LoadCipher(KeySource{KeyPath: path})
	require.NoError(t, err)
	require.False(t, generated)

	sealed, err := c1.Encrypt([]byte("x"))
	require.NoError(t, err)
	plain, err := c2.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, "x", string(plain))
}

func TestLoadCipherHexKey(t *testing.T) {
	key := hex.EncodeToString([]byte(strings.Repeat("k", 32)))
	_, generated, err := LoadCipher(KeySource{HexKey: key, KeyPath: filepath.Join(t.TempDir(), "unused")})
	require.NoError(t, err)
	require.False(t, generated)

	_, _, err = LoadCipher(KeySource{HexKey: "zz"})
	require.Error(t, err)
}

func TestLoadCipherPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")

	c1, _, err := LoadCipher(KeySource{Passphrase: "hunter2", KeyPath: path})
	require.NoError(t, err)
	c2, _, err := LoadCipher(KeySource{Passphrase: "hunter2", KeyPath: path})
	require.NoError(t, err)

	sealed, err := c1.Encrypt([]byte("x"))
	require.NoError(t, err)
	_, err = c2.Decrypt(sealed)
	require.NoError(t, err)

	_, err = os.Stat(path + ".salt")
	require.NoError(t, err)
}

func TestLoadCipherCorruptKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0600))
	_, _, err := LoadCipher(KeySource{KeyPath: path})
	require.Error(t, err)
}

func TestLoadCipherUnreadableSaltIsNotReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	// A directory where the salt file belongs cannot be read as a file.
	require.NoError(t, os.Mkdir(path+".salt", 0700))

	_, _, err := LoadCipher(KeySource{Passphrase: "hunter2", KeyPath: path})
	require.Error(t, err)

	info, err := os.Stat(path + ".salt")
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
