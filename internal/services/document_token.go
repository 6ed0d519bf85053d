package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ticket-storefront/internal/models"
	"ticket-storefront/internal/utils"
)

const documentTokenVersion = 1

var documentTokenHeader = tokenHeader{Type: "TOKEN", Algorithm: "HS256"}

var errMalformedToken = errors.New("malformed document token")

type tokenHeader struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// DocumentClaims is the signed payload of a document token
type DocumentClaims struct {
	OrderID   int    `json:"orderId"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"jti"`
	Version   int    `json:"v"`
}

// DocumentTokenService mints and verifies stateless HMAC-signed tokens that
// grant access to the ticket PDF of one order
type DocumentTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDocumentTokenService creates a new document token service
func NewDocumentTokenService(secret string, ttl time.Duration) *DocumentTokenService {
	return &DocumentTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (s *DocumentTokenService) WithClock(now func() time.Time) *DocumentTokenService {
	s.now = now
	return s
}

// Mint issues a token for an order
func (s *DocumentTokenService) Mint(orderID int) (string, error) {
	if orderID <= 0 {
		return "", fmt.Errorf("invalid order id %d", orderID)
	}

	now := s.now()
	claims := DocumentClaims{
		OrderID:   orderID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
		Nonce:     uuid.NewString(),
		Version:   documentTokenVersion,
	}

	header, err := json.Marshal(documentTokenHeader)
	if err != nil {
		return "", fmt.Errorf("failed to encode token header: %w", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to encode token payload: %w", err)
	}

	signingInput := encodeSegment(header) + "." + encodeSegment(payload)
	signature := utils.SignHMAC(s.secret, []byte(signingInput))

	return signingInput + "." + encodeSegment(signature), nil
}

// Verify checks a token and returns its order id. Every failure is reported
// as models.ErrInvalidOrExpiredToken.
func (s *DocumentTokenService) Verify(token string) (int, error) {
	claims, err := s.Claims(token)
	if err != nil {
		return 0, err
	}
	return claims.OrderID, nil
}

// Claims verifies a token and returns its payload
func (s *DocumentTokenService) Claims(token string) (*DocumentClaims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidOrExpiredToken, err)
	}
	return claims, nil
}

func (s *DocumentTokenService) parse(token string) (*DocumentClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errMalformedToken
	}

	signature, err := decodeSegment(parts[2])
	if err != nil {
		return nil, errMalformedToken
	}

	expected := utils.SignHMAC(s.secret, []byte(parts[0]+"."+parts[1]))
	if !utils.ConstantTimeEqual(string(expected), string(signature)) {
		return nil, errors.New("signature mismatch")
	}

	var header tokenHeader
	if err := decodeJSONSegment(parts[0], &header); err != nil {
		return nil, err
	}
	if header != documentTokenHeader {
		return nil, errors.New("unsupported token header")
	}

	var claims DocumentClaims
	if err := decodeJSONSegment(parts[1], &claims); err != nil {
		return nil, err
	}
	if claims.Version != documentTokenVersion {
		return nil, fmt.Errorf("unsupported token version %d", claims.Version)
	}
	if claims.OrderID <= 0 {
		return nil, errors.New("token has no order id")
	}
	if s.now().Unix() > claims.ExpiresAt {
		return nil, errors.New("token expired")
	}

	return &claims, nil
}

func encodeSegment(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeSegment(segment string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(segment)
}

// decodeJSONSegment decodes a segment that must hold a JSON object
func decodeJSONSegment(segment string, v interface{}) error {
	data, err := decodeSegment(segment)
	if err != nil {
		return errMalformedToken
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("token segment is not an object")
	}

	if err := json.Unmarshal(trimmed, v); err != nil {
		return errMalformedToken
	}
	return nil
}
