package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// GenerateSecureToken generates a cryptographically secure random token of
// length bytes, hex encoded
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// ConstantTimeEqual compares two strings without leaking timing information
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SignHMAC returns the raw HMAC-SHA256 of data
func SignHMAC(secret, data []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	return mac.Sum(nil)
}

// SignHMACBase64 returns the standard base64 encoded HMAC-SHA256 of data, the
// format WooCommerce uses for webhook signatures
func SignHMACBase64(secret, data []byte) string {
	return base64.StdEncoding.EncodeToString(SignHMAC(secret, data))
}

// DeriveKey expands a configured secret into a purpose-bound key of length
// bytes using HKDF-SHA256
func DeriveKey(secret, purpose string, length int) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}

	key := make([]byte, length)
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", purpose, err)
	}
	return key, nil
}
