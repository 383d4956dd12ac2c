package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// Cipher is the encryption collaborator. The engine never chooses an
// algorithm itself; it only asks for plaintext given a ciphertext and the
// environment whose key material unlocks it.
type Cipher interface {
	Encrypt(plaintext string, env Environment) ([]byte, error)
	Decrypt(ciphertext []byte, env Environment) (string, error)
}

const (
	secretboxKeySize   = 32
	secretboxNonceSize = 24
	minMasterKeySize   = 32
)

// SecretboxCipher seals values with NaCl secretbox using a per-environment
// key derived from one master secret via HKDF-SHA256. A PRODUCTION key can
// therefore never be opened with DEVELOPMENT key material even if the
// ciphertext is swapped at the storage layer.
type SecretboxCipher struct {
	master []byte
}

// NewSecretboxCipher validates the master secret and returns a Cipher.
func NewSecretboxCipher(master []byte) (*SecretboxCipher, error) {
	if len(master) < minMasterKeySize {
		return nil, fmt.Errorf("vault: master key must be at least %d bytes, got %d", minMasterKeySize, len(master))
	}
	return &SecretboxCipher{master: master}, nil
}

func (c *SecretboxCipher) keyFor(env Environment) (*[secretboxKeySize]byte, error) {
	reader := hkdf.New(sha256.New, c.master, nil, []byte("keyvault/"+string(env)))
	var key [secretboxKeySize]byte
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", env, err)
	}
	return &key, nil
}

// Encrypt seals plaintext under the environment-derived key. The nonce is
// prepended to the boxed payload.
func (c *SecretboxCipher) Encrypt(plaintext string, env Environment) ([]byte, error) {
	key, err := c.keyFor(env)
	if err != nil {
		return nil, err
	}
	var nonce [secretboxNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key), nil
}

// Decrypt opens a sealed value with the environment-derived key. A wrong
// environment or tampered ciphertext both fail with ErrDecryptFailed.
func (c *SecretboxCipher) Decrypt(ciphertext []byte, env Environment) (string, error) {
	if len(ciphertext) < secretboxNonceSize {
		return "", errors.New("vault: ciphertext too short")
	}
	key, err := c.keyFor(env)
	if err != nil {
		return "", err
	}
	var nonce [secretboxNonceSize]byte
	copy(nonce[:], ciphertext[:secretboxNonceSize])
	plaintext, ok := secretbox.Open(nil, ciphertext[secretboxNonceSize:], &nonce, key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}
