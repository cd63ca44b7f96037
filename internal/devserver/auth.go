package devserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is used when GenerateToken is given a zero ttl
const DefaultTokenTTL = 24 * time.Hour

// AuthRecordType is the "type" claim carried by record auth tokens
const AuthRecordType = "authRecord"

// RecordClaims is the payload of a record auth token
type RecordClaims struct {
	RecordID string `json:"id"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 record tokens with one shared secret.
type TokenIssuer struct {
	secretKey []byte
}

func NewTokenIssuer(secretKey string) *TokenIssuer {
	return &TokenIssuer{secretKey: []byte(secretKey)}
}

// GenerateToken returns a token for recordID and the instant it stops being
// accepted. A non-positive ttl means DefaultTokenTTL.
func (ti *TokenIssuer) GenerateToken(recordID string, ttl time.Duration) (string, time.Time, error) {
	if recordID == "" {
		return "", time.Time{}, errors.New("recordID cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	issuedAt := time.Now()
	expiresAt := issuedAt.Add(ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RecordClaims{
		RecordID: recordID,
		Type:     AuthRecordType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   recordID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(ti.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign record token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken accepts the raw token or an Authorization header value.
// Tokens without an expiry or with a type other than AuthRecordType fail.
func (ti *TokenIssuer) VerifyToken(raw string) (*RecordClaims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, errors.New("token cannot be empty")
	}

	claims := &RecordClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, ti.signingKey, jwt.WithExpirationRequired()); err != nil {
		return nil, fmt.Errorf("verify record token: %w", err)
	}
	if claims.Type != AuthRecordType {
		return nil, fmt.Errorf("verify record token: unexpected type %q", claims.Type)
	}
	return claims, nil
}

func (ti *TokenIssuer) signingKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return ti.secretKey, nil
}
