package payments

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// CardCipher protects card fields in transit to a gateway using
// AES-256-GCM with a fresh random nonce per message. The authenticated
// mode replaces the static-key ECB scheme an earlier generation of this
// integration used; ciphertexts are not interchangeable with it.
type CardCipher struct {
	aead cipher.AEAD
}

// NewCardCipher builds a cipher from a hex-encoded 32-byte key. An empty
// key returns (nil, nil): encryption disabled.
func NewCardCipher(hexKey string) (*CardCipher, error) {
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("payments: card key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("payments: card key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("payments: card cipher init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("payments: card cipher gcm: %w", err)
	}
	return &CardCipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (c *CardCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("payments: card nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Used by tests and reconciliation tooling;
// the charge path itself never needs to read card data back.
func (c *CardCipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("payments: card ciphertext decode: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("payments: card ciphertext too short")
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("payments: card ciphertext open: %w", err)
	}
	return string(plaintext), nil
}
