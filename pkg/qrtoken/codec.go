package qrtoken

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// FramePrefix is the literal prefix of the wire value encoded into the QR
	// image: EMERGENCY:<emergency_id>:<base64url-ciphertext>.
	FramePrefix = "EMERGENCY:"

	// DefaultTTL is the window after which a token is rejected even if it is
	// cryptographically valid.
	DefaultTTL = 2 * time.Hour

	kdfIterations = 100_000
	keyLength     = 32
)

// Codec encrypts medical payloads into QR-safe emergency tokens and reverses
// the transformation on scan. Construct one at startup and hand it to the
// service; the PBKDF2 derivation is paid exactly once here, never per request.
type Codec struct {
	aead    cipher.AEAD
	nowFunc func() time.Time
}

// New derives the AES-256-GCM key from passphrase and salt with
// PBKDF2-SHA256. Note that with a fixed passphrase and salt every process
// derives the identical key; deployments must supply both from a secret
// store.
func New(passphrase, salt string) (*Codec, error) {
	if passphrase == "" || salt == "" {
		return nil, fmt.Errorf("token passphrase and salt are required")
	}

	key := pbkdf2.Key([]byte(passphrase), []byte(salt), kdfIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Codec{
		aead:    aead,
		nowFunc: time.Now,
	}, nil
}

// IssueResult is everything the caller needs to persist the lifecycle record
// and render the QR code.
type IssueResult struct {
	EmergencyID      string
	EncryptedPayload string
	QRData           string
	IssuedAt         time.Time
	ExpiresAt        time.Time
}

// Issue assembles the payload, encrypts it and frames it for QR encoding.
// A ttl of zero falls back to DefaultTTL. The medical summary and location are
// carried opaquely; the codec does not validate their shape.
func (c *Codec) Issue(userID string, medicalSummary interface{}, location interface{}, ttl time.Duration) (IssueResult, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}

	emergencyID := newEmergencyIDAt(c.nowFunc())
	issuedAt := c.nowFunc()
	expiresAt := issuedAt.Add(ttl)

	payload := map[string]interface{}{
		"emergency_id":    emergencyID,
		"user_id":         userID,
		"timestamp":       issuedAt.Format(time.RFC3339),
		"expires_at":      expiresAt.Format(time.RFC3339),
		"location":        location,
		"medical_summary": medicalSummary,
	}

	encrypted, err := c.Encrypt(payload)
	if err != nil {
		return IssueResult{}, err
	}

	return IssueResult{
		EmergencyID:      emergencyID,
		EncryptedPayload: encrypted,
		QRData:           FramePrefix + emergencyID + ":" + encrypted,
		IssuedAt:         issuedAt,
		ExpiresAt:        expiresAt,
	}, nil
}

// Encrypt serializes the payload to JSON, seals it with a fresh random nonce
// and returns URL-safe base64. Two encryptions of the same payload never
// produce the same output.
func (c *Codec) Encrypt(payload map[string]interface{}) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Bad base64, failed authentication and non-JSON
// plaintext all come back as ErrInvalidToken with no further detail.
func (c *Codec) Decrypt(encoded string) (map[string]interface{}, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if len(raw) < c.aead.NonceSize() {
		return nil, ErrInvalidToken
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, ErrInvalidToken
	}
	return payload, nil
}

// Scan accepts either the full framed value or a bare encrypted payload,
// decrypts it and enforces expiry. The ciphertext segment of a framed value
// is base64 and never contains a colon, so splitting on the first two colons
// is sufficient.
func (c *Codec) Scan(raw string) (map[string]interface{}, error) {
	encoded := raw
	if strings.HasPrefix(raw, FramePrefix) {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 3 {
			return nil, ErrInvalidToken
		}
		encoded = parts[2]
	}

	payload, err := c.Decrypt(encoded)
	if err != nil {
		return nil, err
	}

	expiresAt, ok := payload["expires_at"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if c.nowFunc().After(expiry) {
		return nil, ErrExpired
	}

	return payload, nil
}
