package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContentType is the "cty" header value the media platform expects on
// access tokens.
const ContentType = "twilio-fpa;v=1"

// DefaultTTL is the access token lifetime when none is configured.
const DefaultTTL = time.Hour

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingSecret = errors.New("access token signer requires account sid, api key and secret")
)

// VideoGrant allows the bearer to connect to a video room.
type VideoGrant struct {
	Room string `json:"room,omitempty"`
}

// Grants is the "grants" claim of an access token.
type Grants struct {
	Identity string          `json:"identity,omitempty"`
	Video    *VideoGrant     `json:"video,omitempty"`
	Player   json.RawMessage `json:"player,omitempty"` // opaque playback grant issued by the platform
}

// Claims represents access token claims.
type Claims struct {
	jwt.RegisteredClaims
	Grants Grants `json:"grants"`
}

// Signer mints HS256 access tokens scoped by grants.
type Signer struct {
	accountSID   string
	apiKeySID    string
	apiKeySecret []byte
	ttl          time.Duration
	now          func() time.Time
}

// NewSigner creates a new access token signer.
func NewSigner(accountSID, apiKeySID, apiKeySecret string, ttl time.Duration) (*Signer, error) {
	if accountSID == "" || apiKeySID == "" || apiKeySecret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{
		accountSID:   accountSID,
		apiKeySID:    apiKeySID,
		apiKeySecret: []byte(apiKeySecret),
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

// TTL returns the lifetime of tokens minted by this signer.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Sign serializes an access token for identity carrying grants.
func (s *Signer) Sign(identity string, grants Grants) (string, error) {
	now := s.now()
	grants.Identity = identity

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", s.apiKeySID, now.Unix()),
			Issuer:    s.apiKeySID,
			Subject:   s.accountSID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Grants: grants,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = ContentType

	signed, err := token.SignedString(s.apiKeySecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Parse validates a token minted by this signer and returns its claims.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.apiKeySecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.apiKeySID))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
