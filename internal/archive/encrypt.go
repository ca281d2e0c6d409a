package archive

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption errors.
var (
	ErrEncrypted         = errors.New("archive: archive is encrypted and no passphrase was provided")
	ErrNotEncrypted      = errors.New("archive: archive is not encrypted")
	ErrDecryptionFailed  = errors.New("archive: decryption failed, wrong passphrase or corrupted data")
	ErrPassphraseTooWeak = errors.New("archive: passphrase too weak (minimum 8 characters)")
)

// encMagic prefixes encrypted archives. Plain archives start with the
// gzip magic (0x1f 0x8b) instead.
var encMagic = []byte("SDARENC1")

const (
	saltLength        = 16
	minPassphraseSize = 8

	// Argon2id parameters for passphrase key derivation.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = chacha20poly1305.KeySize
)

// deriveKey derives an AEAD key from a passphrase and salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// newSalt returns a fresh random salt.
func newSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("archive: generate salt: %w", err)
	}
	return salt, nil
}

// seal encrypts plain bytes into the envelope layout:
// [magic:8][salt:16][nonce:12][ciphertext+tag].
func seal(plain []byte, passphrase string) ([]byte, error) {
	if len(passphrase) < minPassphraseSize {
		return nil, ErrPassphraseTooWeak
	}
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("archive: init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("archive: generate nonce: %w", err)
	}

	out := make([]byte, 0, len(encMagic)+saltLength+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, encMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, nil), nil
}

// open decrypts an envelope produced by seal.
func open(sealed []byte, passphrase string) ([]byte, error) {
	if !isEncrypted(sealed) {
		return nil, ErrNotEncrypted
	}
	if passphrase == "" {
		return nil, ErrEncrypted
	}
	body := sealed[len(encMagic):]
	if len(body) < saltLength+chacha20poly1305.NonceSize {
		return nil, ErrDecryptionFailed
	}
	salt := body[:saltLength]
	aead, err := chacha20poly1305.New(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("archive: init cipher: %w", err)
	}
	nonce := body[saltLength : saltLength+aead.NonceSize()]
	plain, err := aead.Open(nil, nonce, body[saltLength+aead.NonceSize():], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

func isEncrypted(data []byte) bool {
	return len(data) >= len(encMagic) && string(data[:len(encMagic)]) == string(encMagic)
}
