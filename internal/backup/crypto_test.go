package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}

	salt2, _ := GenerateSalt()
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestSealUnseal(t *testing.T) {
	original := []byte(`{"weekStart":"2026-10-11","pin":"1234"}`)

	sealed, err := Seal(original, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("weekStart")) {
		t.Error("sealed output contains plaintext")
	}

	got, err := Unseal(sealed, "correct horse")
	if err != nil {
		t.Fatalf("unseal: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("unsealed = %q, want %q", got, original)
	}
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, _ := Seal([]byte("same"), "pass")
	b, _ := Seal([]byte("same"), "pass")
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("expected a different salt per seal")
	}
}

func TestUnsealWrongPassphrase(t *testing.T) {
	sealed, _ := Seal([]byte("secret"), "right")
	if _, err := Unseal(sealed, "wrong"); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}

func TestUnsealTampered(t *testing.T) {
	sealed, _ := Seal([]byte("secret data"), "pass")
	sealed[len(sealed)-1] ^= 0xff
	if _, err := Unseal(sealed, "pass"); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}

func TestUnsealTooSmall(t *testing.T) {
	if _, err := Unseal([]byte("short"), "pass"); !errors.Is(err, errTooSmall) {
		t.Errorf("error = %v, want errTooSmall", err)
	}
}
