// Package security seals stored user documents.
package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrEncryption     = errors.New("encryption failed")
	ErrDecryption     = errors.New("decryption failed")
)

// Encryptor seals and opens byte strings.
type Encryptor interface {
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

// NewEncryptor returns an XChaCha20-Poly1305 encryptor. The key must be 32 bytes.
func NewEncryptor(key []byte) (Encryptor, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}
	return &xchachaEncryptor{aead: aead}, nil
}

// ParseKey decodes a base64 key as found in configuration.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeySize, chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}

type xchachaEncryptor struct {
	aead cipher.AEAD
}

// Encrypt returns nonce || ciphertext.
func (e *xchachaEncryptor) Encrypt(data []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(data)+chacha20poly1305.Overhead)
	if _, err := rand.Read(nonce); err != nil {
		return nil, ErrEncryption
	}
	return e.aead.Seal(nonce, nonce, data, nil), nil
}

func (e *xchachaEncryptor) Decrypt(data []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrDecryption
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
