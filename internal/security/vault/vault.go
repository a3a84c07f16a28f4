package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidKey      = errors.New("vault: invalid encryption key")
	ErrInvalidPayload  = errors.New("vault: invalid encrypted payload")
	ErrDecryption      = errors.New("vault: decryption failed")
	ErrUnknownProvider = errors.New("vault: unknown provider")
)

// Provider seals notification channel credentials (LINE tokens, webhook
// secrets) before they reach the database.
type Provider interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

type Config struct {
	Provider string // "aes" or "plaintext"
	AESKey   string
}

func NewFactory(cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "aes", "":
		return newAESVault(cfg.AESKey)
	case "plaintext":
		return plaintextVault{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// AESVault implements Provider using AES-256-GCM.
type AESVault struct {
	key []byte
}

func newAESVault(keyStr string) (*AESVault, error) {
	if strings.TrimSpace(keyStr) == "" {
		return nil, ErrInvalidKey
	}
	// Any string works as ENCRYPTION_KEY; it is stretched to 32 bytes.
	sum := sha256.Sum256([]byte(keyStr))
	return &AESVault{key: sum[:]}, nil
}

type sealed struct {
	Version    int    `json:"v"`
	Nonce      string `json:"n"`
	Ciphertext string `json:"c"`
}

func (v *AESVault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (v *AESVault) Encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return json.Marshal(sealed{
		Version:    1,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(gcm.Seal(nil, nonce, plaintext, nil)),
	})
}

func (v *AESVault) Decrypt(data []byte) ([]byte, error) {
	var payload sealed
	if err := json.Unmarshal(data, &payload); err != nil || payload.Version != 1 {
		return nil, ErrInvalidPayload
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrInvalidPayload
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// plaintextVault is for local development only.
type plaintextVault struct{}

func (plaintextVault) Encrypt(plaintext []byte) ([]byte, error) {
	return append([]byte(nil), plaintext...), nil
}

func (plaintextVault) Decrypt(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}
