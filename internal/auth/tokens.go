package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenType = "normal"

// Claims is the payload of a session token.
type Claims struct {
	AccountID int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Type      string `json:"type"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the account's current state. Every call gets a
// fresh nonce so two tokens for the same account never compare equal.
func (t *TokenIssuer) Issue(a *Account) (string, error) {
	now := t.now()
	claims := Claims{
		AccountID: a.ID,
		Email:     deref(a.Email),
		Phone:     deref(a.Phone),
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role.String(),
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry.
func (t *TokenIssuer) Validate(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	return t.parse(parser, token)
}

// ParseIgnoringExpiry verifies the signature only. Used by refresh.
func (t *TokenIssuer) ParseIgnoringExpiry(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	return t.parse(parser, token)
}

func (t *TokenIssuer) parse(parser *jwt.Parser, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.AccountID == 0 {
		return nil, errors.New("invalid token claims")
	}
	if claims.Type != tokenType {
		return nil, fmt.Errorf("unexpected token type %q", claims.Type)
	}
	return claims, nil
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", newError(KindTokenMissing, "token.missing")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok {
		if strings.EqualFold(scheme, "Bearer") {
			return "", newError(KindTokenMissing, "token.missing")
		}
		return "", newError(KindTokenMalformed, "token.invalid_type")
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", newError(KindTokenMalformed, "token.invalid_type")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", newError(KindTokenMissing, "token.missing")
	}
	return token, nil
}
