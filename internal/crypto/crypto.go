package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Ciphertext layout: "enc:v1:" + base64(nonce || sealed). Values without the
// prefix are treated as legacy plaintext and passed through on decrypt.
const prefix = "enc:v1:"

var ErrDecrypt = errors.New("crypto: unable to decrypt with any known key")

// Service encrypts and decrypts entry free text and report content.
// A previous-generation key, when configured, is tried on decrypt so that
// key rotation never breaks old rows.
type Service struct {
	current  *keyring
	previous *keyring
}

type keyring struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

func newKeyring(passphrase string) (*keyring, error) {
	key := sha256.Sum256([]byte(passphrase))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: init aead: %w", err)
	}
	return &keyring{aead: aead}, nil
}

// NewService derives keys from the given passphrases. previousPassphrase may
// be empty when no rotation is in progress.
func NewService(passphrase, previousPassphrase string) (*Service, error) {
	if passphrase == "" {
		return nil, errors.New("crypto: passphrase is required")
	}
	cur, err := newKeyring(passphrase)
	if err != nil {
		return nil, err
	}
	s := &Service{current: cur}
	if previousPassphrase != "" {
		prev, err := newKeyring(previousPassphrase)
		if err != nil {
			return nil, err
		}
		s.previous = prev
	}
	return s, nil
}

// Encrypt seals plaintext with the current key. Empty input round-trips to
// empty so optional fields stay optional.
func (s *Service) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: nonce: %w", err)
	}
	sealed := s.current.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return prefix + base64.StdEncoding.EncodeToString(append(nonce, sealed...)), nil
}

// Decrypt opens a value produced by Encrypt. Unprefixed values are returned
// as-is (legacy plaintext). The previous key is tried after the current one.
func (s *Service) Decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("crypto: decode: %w", err)
	}
	if len(raw) <= chacha20poly1305.NonceSizeX {
		return "", ErrDecrypt
	}
	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]

	if out, err := s.current.aead.Open(nil, nonce, sealed, nil); err == nil {
		return string(out), nil
	}
	if s.previous != nil {
		if out, err := s.previous.aead.Open(nil, nonce, sealed, nil); err == nil {
			return string(out), nil
		}
	}
	return "", ErrDecrypt
}
