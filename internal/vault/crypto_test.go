package vault

import (
	"bytes"
	"errors"
	"testing"
)

func testCipher(t *testing.T) *SecretboxCipher {
	t.Helper()
	c, err := NewSecretboxCipher(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSecretboxRoundTrip(t *testing.T) {
	c := testCipher(t)
	sealed, err := c.Encrypt("postgres://localhost/dev", EnvDevelopment)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := c.Decrypt(sealed, EnvDevelopment)
	if err != nil {
		t.Fatal(err)
	}
	if plain != "postgres://localhost/dev" {
		t.Fatalf("round trip mismatch: %q", plain)
	}
}

func TestSecretboxWrongEnvironmentFails(t *testing.T) {
	c := testCipher(t)
	sealed, err := c.Encrypt("super-secret", EnvProduction)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decrypt(sealed, EnvDevelopment); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("cross-environment decrypt must fail, got %v", err)
	}
}

func TestSecretboxTamperedCiphertext(t *testing.T) {
	c := testCipher(t)
	sealed, err := c.Encrypt("value", EnvTesting)
	if err != nil {
		t.Fatal(err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if _, err := c.Decrypt(sealed, EnvTesting); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("tampered ciphertext must fail, got %v", err)
	}
}

func TestSecretboxShortMasterRejected(t *testing.T) {
	if _, err := NewSecretboxCipher([]byte("short")); err == nil {
		t.Fatal("expected error for short master key")
	}
}

func TestSecretboxShortCiphertext(t *testing.T) {
	c := testCipher(t)
	if _, err := c.Decrypt([]byte{1, 2, 3}, EnvTesting); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}
