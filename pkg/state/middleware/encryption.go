package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/sendahq/senda/pkg/state"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionStore struct {
	next   state.Store
	config EncryptionConfig
}

// NewEncryption creates a middleware that encrypts variable values with
// AES-GCM before they reach the underlying store. The node pointer stays in
// plaintext so operational tooling can still see where a flow rests; the
// variable bag is where sensitive content lives. Reading a value that no
// configured key can decrypt is an error, never silent plaintext.
func NewEncryption(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next state.Store) state.Store {
		return &encryptionStore{next: next, config: config}
	}
}

func (s *encryptionStore) CurrentNode(ctx context.Context, flowID, fallback string) (string, error) {
	return s.next.CurrentNode(ctx, flowID, fallback)
}

func (s *encryptionStore) SetCurrentNode(ctx context.Context, flowID, nodeID string) error {
	return s.next.SetCurrentNode(ctx, flowID, nodeID)
}

func (s *encryptionStore) Variable(ctx context.Context, flowID, key string) (string, bool, error) {
	sealed, ok, err := s.next.Variable(ctx, flowID, key)
	if err != nil || !ok {
		return "", ok, err
	}
	value, err := s.open(sealed)
	if err != nil {
		return "", false, fmt.Errorf("decrypt variable %q: %w", state.Key(key), err)
	}
	return value, true, nil
}

func (s *encryptionStore) SetVariable(ctx context.Context, flowID, key, value string) error {
	sealed, err := s.seal(value)
	if err != nil {
		return fmt.Errorf("encrypt variable %q: %w", state.Key(key), err)
	}
	return s.next.SetVariable(ctx, flowID, key, sealed)
}

func (s *encryptionStore) SetVariables(ctx context.Context, flowID string, vars map[string]string) error {
	if len(vars) == 0 {
		return s.next.SetVariables(ctx, flowID, vars)
	}
	sealed := make(map[string]string, len(vars))
	for k, v := range vars {
		sv, err := s.seal(v)
		if err != nil {
			return fmt.Errorf("encrypt variable %q: %w", state.Key(k), err)
		}
		sealed[k] = sv
	}
	return s.next.SetVariables(ctx, flowID, sealed)
}

func (s *encryptionStore) Variables(ctx context.Context, flowID string) (map[string]string, error) {
	sealed, err := s.next.Variables(ctx, flowID)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]string, len(sealed))
	for k, sv := range sealed {
		v, err := s.open(sv)
		if err != nil {
			return nil, fmt.Errorf("decrypt variable %q: %w", k, err)
		}
		vars[k] = v
	}
	return vars, nil
}

func (s *encryptionStore) Remove(ctx context.Context, flowID string) error {
	return s.next.Remove(ctx, flowID)
}

// seal encrypts plaintext with the active key and encodes it for storage as
// a string value.
func (s *encryptionStore) seal(value string) (string, error) {
	ciphertext, err := encrypt([]byte(value), s.config.ActiveKey)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// open decodes a stored value and decrypts it, trying the active key first
// and then every fallback key in order.
func (s *encryptionStore) open(sealed string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, s.config.ActiveKey, s.config.FallbackKeys)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
