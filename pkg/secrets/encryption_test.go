package secrets

import (
	"bytes"
	"testing"
)

func TestDeriveAESKey(t *testing.T) {
	masterKey := []byte("testmasterkey")
	key1 := deriveAESKey(masterKey, "https://netbox.example.com")
	key2 := deriveAESKey(masterKey, "https://netbox.example.com")
	other := deriveAESKey(masterKey, "https://netbox.lab.example.com")

	if len(key1) != 32 {
		t.Errorf("derived key should be 32 bytes, got %d", len(key1))
	}
	if !bytes.Equal(key1, key2) {
		t.Errorf("keys derived from the same ID should match")
	}
	if bytes.Equal(key1, other) {
		t.Errorf("keys derived from different IDs should differ")
	}
}

func TestEncryptDecryptAESGCM(t *testing.T) {
	key := deriveAESKey([]byte("anotherTestMasterKey"), "https://netbox.example.com")
	plaintext := "nbt_abc123.0123456789abcdef"

	encrypted, err := encryptAESGCM(key, []byte(plaintext))
	if err != nil {
		t.Fatalf("encryption failed: %v", err)
	}
	decrypted, err := decryptAESGCM(key, encrypted)
	if err != nil {
		t.Fatalf("decryption failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("expected %q, got %q", plaintext, decrypted)
	}

	wrong := deriveAESKey([]byte("anotherTestMasterKey"), "https://other.example.com")
	if _, err := decryptAESGCM(wrong, encrypted); err == nil {
		t.Errorf("expected decryption with the wrong key to fail")
	}
	if _, err := decryptAESGCM(key, "abcd"); err == nil {
		t.Errorf("expected a short ciphertext to fail")
	}
}
