package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/ports"
)

// EnvelopeModule is the module key holding the ciphertext in an encrypted document.
const EnvelopeModule = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt a document.
	FallbackKeys [][]byte
}

// ErrInvalidKey is returned for keys that are not 32 bytes long.
var ErrInvalidKey = errors.New("encryption keys must be 32 bytes (AES-256)")

type encryptionMiddleware struct {
	next   ports.ProgressStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals the whole progress
// document with AES-GCM. The backend only sees the profile id, the update time
// and an opaque envelope.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, ErrInvalidKey
		}
	}
	return func(next ports.ProgressStore) ports.ProgressStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	plainText, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt progress: %w", err)
	}

	envelope := domain.NewProgress(progress.ProfileID)
	envelope.UpdatedAt = progress.UpdatedAt
	sealed := domain.NewModuleProgress(EnvelopeModule)
	sealed.EnteredAt = progress.UpdatedAt
	sealed.State["ciphertext"] = base64.StdEncoding.EncodeToString(ciphertext)
	envelope.Modules[EnvelopeModule] = sealed

	return m.next.Save(ctx, profileID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	envelope, err := m.next.Load(ctx, profileID)
	if err != nil {
		return nil, err
	}

	sealed, ok := envelope.Module(EnvelopeModule)
	if !ok {
		return nil, errors.New("progress is missing the encrypted envelope")
	}
	encoded, ok := sealed.State["ciphertext"].(string)
	if !ok {
		return nil, errors.New("progress envelope has no ciphertext")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt progress: %w", err)
	}

	var progress domain.Progress
	if err := json.Unmarshal(plainText, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted progress: %w", err)
	}
	return &progress, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, profileID string) error {
	return m.next.Delete(ctx, profileID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
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
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
