package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-session-auth/internal/config"
	"github.com/go-session-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the JWT payload fields shared by session and access tokens.
// Subject is the account id for access tokens and empty for session tokens;
// ID (jti) doubles as the cache key of a session's Session Object.
type Claims struct {
	Purpose     domain.Purpose     `json:"purpose"`
	AccountType domain.AccountType `json:"account_type"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 JWTs. A Provider built without a private
// key can only verify.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	now        func() time.Time
}

// Option customises a Provider.
type Option func(*Provider)

// WithClock replaces the wall clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(cfg *config.Config, opts ...Option) (*Provider, error) {
	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	// Verify-only deployments ship without the private key.
	var privKey *rsa.PrivateKey
	if privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath); err == nil {
		privKey, err = jwt.ParseRSAPrivateKeyFromPEM(privBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	return NewProviderFromKeys(privKey, pubKey, cfg.JWTIssuer, opts...), nil
}

// NewProviderFromKeys builds a Provider from parsed keys. privateKey may be nil.
func NewProviderFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string, opts ...Option) *Provider {
	p := &Provider{privateKey: privateKey, publicKey: publicKey, issuer: issuer, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Sign mints a token valid for ttl. See SignUntil.
func (p *Provider) Sign(c Claims, ttl time.Duration, explicitID string) (tokenID, token string, err error) {
	return p.SignUntil(c, p.now().Add(ttl), explicitID)
}

// SignUntil mints a token that expires at expiresAt. A random jti is generated
// when explicitID is empty. Issuer, iat, exp and jti in c are overwritten.
func (p *Provider) SignUntil(c Claims, expiresAt time.Time, explicitID string) (tokenID, token string, err error) {
	if p.privateKey == nil {
		return "", "", fmt.Errorf("no private key loaded: %w", domain.ErrSigning)
	}
	tokenID = explicitID
	if tokenID == "" {
		tokenID = uuid.NewString()
	}
	c.ID = tokenID
	c.Issuer = p.issuer
	c.IssuedAt = jwt.NewNumericDate(p.now())
	c.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token, err = jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(p.privateKey)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrSigning, err)
	}
	return tokenID, token, nil
}

// Verify checks signature, issuer and expiry. It returns ErrExpired for a
// well-formed token past exp and ErrMalformed for anything else.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", domain.ErrExpired)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrMalformed)
	}
	return claims, nil
}

// Decode parses claims without checking the signature. Never use the result
// for an authorization decision.
func (p *Provider) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	return claims, nil
}
