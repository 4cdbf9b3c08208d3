// Package cryptox implements authenticated encryption of individual
// personally-identifying fields before they are written to storage.
//
// Every encrypted value is an ASCII bundle
//
//	<ivHex>:<authTagHex>:<cipherHex>
//
// produced by AES-256-GCM with a 16-byte IV drawn from crypto/rand on every
// call. Decryption fails closed: a bundle whose tag does not verify, or that
// does not have exactly three parts, is rejected and no plaintext is returned.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/fittrack/internal/common"
)

const (
	// KeySize is the AES-256 key length.
	KeySize = 32
	// IVSize is the GCM nonce length used for every bundle.
	IVSize = 16
	// TagSize is the GCM authentication tag length.
	TagSize = 16

	separator = ":"
)

// FieldCipher encrypts and decrypts single field values. It holds no mutable
// state after construction and is safe for concurrent use.
type FieldCipher struct {
	aead cipher.AEAD
}

// DeriveKey turns the configured secret into a KeySize key. Secrets shorter
// than minLength are rejected; shorter than KeySize are right-padded with
// zero bytes; longer are truncated.
func DeriveKey(secret string, minLength int) ([]byte, error) {
	if len(secret) < minLength {
		return nil, fmt.Errorf("encryption key must be at least %d bytes, got %d", minLength, len(secret))
	}
	key := make([]byte, KeySize)
	copy(key, secret)
	return key, nil
}

// NewFieldCipher derives the key from secret and prepares the AEAD.
// The derived key bytes are wiped once the block cipher has been built.
func NewFieldCipher(secret string, minLength int) (*FieldCipher, error) {
	key, err := DeriveKey(secret, minLength)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &FieldCipher{aead: aead}, nil
}

// EncryptField encrypts plaintext under a fresh random IV and returns the
// hex bundle. Encrypting the same value twice yields different bundles.
func (c *FieldCipher) EncryptField(plaintext string) (string, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", common.Wrap(common.KindInternal, err, "generate IV")
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return hex.EncodeToString(iv) + separator +
		hex.EncodeToString(tag) + separator +
		hex.EncodeToString(ciphertext), nil
}

// DecryptField reverses EncryptField. Any structural problem or tag mismatch
// yields a DecryptionFailure and an empty string.
func (c *FieldCipher) DecryptField(bundle string) (string, error) {
	parts := strings.Split(bundle, separator)
	if len(parts) != 3 {
		return "", common.New(common.KindDecryptionFailure, "Failed to decrypt field: malformed bundle")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != IVSize {
		return "", decryptionFailure("bad IV", err)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return "", decryptionFailure("bad authentication tag", err)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", decryptionFailure("bad ciphertext", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", decryptionFailure("authentication failed", err)
	}
	return string(plaintext), nil
}

func decryptionFailure(reason string, cause error) error {
	return common.Wrap(common.KindDecryptionFailure, cause, "Failed to decrypt field: %s", reason)
}
