package qrtoken

import "errors"

var (
	// ErrInvalidToken covers malformed framing, bad base64, failed
	// authentication and non-JSON plaintext. The sub-steps are deliberately
	// indistinguishable to the caller.
	ErrInvalidToken = errors.New("invalid emergency token")

	// ErrExpired means the token decrypted and authenticated but its TTL has
	// passed. Kept distinct so callers can tell "too old" from "corrupt".
	ErrExpired = errors.New("emergency token expired")
)
