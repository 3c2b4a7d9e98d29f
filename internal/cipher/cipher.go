// Package cipher provides symmetric encryption of seed material for storage.
// Mnemonics are encrypted with AES-256-CBC under the process-wide key and a
// fresh random IV per wallet; only (ciphertext, iv) is ever persisted.
package cipher

import (
	"bytes"
	"crypto/aes"
	aescipher "crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/custodia/walletd/internal/config"
)

// Cipher encrypts and decrypts mnemonic phrases under a fixed symmetric key.
// The key is loaded once at startup and is read-only afterwards.
type Cipher struct {
	key []byte
}

// New creates a Cipher from a raw 32-byte AES-256 key.
func New(key []byte) (*Cipher, error) {
	if len(key) != config.EncryptionKeyLen {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", config.ErrInvalidConfig, config.EncryptionKeyLen, len(key))
	}

	// Copy so the caller cannot mutate the key underneath us.
	k := make([]byte, len(key))
	copy(k, key)
	return &Cipher{key: k}, nil
}

// GenerateIV returns a fresh cryptographically random 16-byte IV.
func GenerateIV() ([]byte, error) {
	iv := make([]byte, config.CipherIVLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}
	return iv, nil
}

// Encrypt encrypts plaintext with a freshly generated IV and returns the
// hex-encoded ciphertext and IV. The IV is not secret; it is stored alongside
// the ciphertext and must never be reused for another encryption.
func (c *Cipher) Encrypt(plaintext string) (ciphertextHex, ivHex string, err error) {
	iv, err := GenerateIV()
	if err != nil {
		return "", "", err
	}
	return c.EncryptWithIV(plaintext, iv)
}

// EncryptWithIV encrypts plaintext under the given IV. Output is fully
// determined by (key, iv, plaintext).
func (c *Cipher) EncryptWithIV(plaintext string, iv []byte) (ciphertextHex, ivHex string, err error) {
	if len(iv) != config.CipherIVLen {
		return "", "", fmt.Errorf("encrypt: iv must be %d bytes, got %d", config.CipherIVLen, len(iv))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", "", fmt.Errorf("encrypt: create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	aescipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(ciphertext), hex.EncodeToString(iv), nil
}

// Decrypt is the inverse of Encrypt. A malformed ciphertext/iv pair, invalid
// padding, or a mismatched key surfaces as config.ErrDecryption — never as a
// silently corrupted mnemonic.
func (c *Cipher) Decrypt(ciphertextHex, ivHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not hex", config.ErrDecryption)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("%w: iv is not hex", config.ErrDecryption)
	}
	if len(iv) != config.CipherIVLen {
		return "", fmt.Errorf("%w: iv must be %d bytes, got %d", config.ErrDecryption, config.CipherIVLen, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", config.ErrDecryption, len(ciphertext))
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("decrypt: create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	aescipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", config.ErrDecryption, err)
	}

	return string(unpadded), nil
}

// pkcs7Pad appends PKCS#7 padding up to the next blockSize boundary.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// pkcs7Unpad strips and validates PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}

	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", padLen)
	}

	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("inconsistent padding bytes")
		}
	}

	return data[:len(data)-padLen], nil
}
