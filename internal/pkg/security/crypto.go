package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

const keySize = 32

// KeySource lists where a master key may come from, in priority order:
// an explicit hex key, a passphrase, then a key file (created if missing).
type KeySource struct {
	HexKey     string
	Passphrase string
	KeyPath    string
}

// Cipher encrypts small blobs with AES-GCM under a 32-byte key.
type Cipher struct {
	key []byte
}

// NewCipher wraps an existing 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, errors.Errorf("master key must be %d bytes, got %d", keySize, len(key))
	}
	return &Cipher{key: key}, nil
}

// LoadCipher resolves the master key from src. generated is true when a new
// key file was written.
func LoadCipher(src KeySource) (c *Cipher, generated bool, err error) {
	if src.HexKey != "" {
		key, err := hex.DecodeString(strings.TrimSpace(src.HexKey))
		if err != nil {
			return nil, false, errors.Wrap(err, "invalid hex master key")
		}
		c, err := NewCipher(key)
		return c, false, err
	}

	if src.Passphrase != "" {
		salt, err := loadOrCreate(src.KeyPath+".salt", 16)
		if err != nil {
			return nil, false, err
		}
		c, err := NewCipher(DeriveKey(src.Passphrase, salt))
		return c, false, err
	}

	if data, err := os.ReadFile(src.KeyPath); err == nil {
		key, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err == nil && len(key) == keySize {
			return &Cipher{key: key}, false, nil
		}
		return nil, false, errors.Errorf("key file %s is corrupt", src.KeyPath)
	} else if !os.IsNotExist(err) {
		return nil, false, errors.Wrap(err, "failed to read key file")
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, false, errors.Wrap(err, "failed to generate random key")
	}
	if err := os.WriteFile(src.KeyPath, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, false, errors.Wrapf(err, "failed to save master key to %s", src.KeyPath)
	}
	return &Cipher{key: key}, true, nil
}

// DeriveKey stretches a passphrase into a master key with argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, keySize)
}

func loadOrCreate(path string, size int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		b, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(b) != size {
			return nil, errors.Errorf("salt file %s is corrupt", path)
		}
		return b, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to read salt file %s", path)
	}

	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(b)), 0600); err != nil {
		return nil, errors.Wrapf(err, "failed to save salt to %s", path)
	}
	return b, nil
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt encrypts plaintext using AES-GCM and returns Nonce + Ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext (Nonce + Ciphertext) using AES-GCM.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
