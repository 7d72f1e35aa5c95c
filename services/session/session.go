// Package session mints and verifies the signed session cookie.
package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/VersatileFusion/sangshekkan/logger"
	"github.com/VersatileFusion/sangshekkan/models/user"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	CookieName       = "authjs.session-token"
	SecureCookieName = "__Secure-authjs.session-token"
	MaxAge           = 30 * 24 * time.Hour

	developmentSecret = "development-insecure-auth-secret-change-me"
)

var (
	ErrMissingSecret = errors.New("AUTH_SECRET is not configured")
	ErrInvalidToken  = errors.New("invalid session token")
)

// Claims is the session payload. Subject carries the user id.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret     []byte
	production bool
	now        func() time.Time
}

type Option func(*Issuer)

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer outside production falls back to a fixed development secret.
// In production an empty secret leaves the issuer unable to sign, which
// callers surface as a manual-login fallback.
func NewIssuer(secret string, production bool, opts ...Option) *Issuer {
	if secret == "" && !production {
		logger.Warning("AUTH_SECRET not set, using the insecure development secret")
		secret = developmentSecret
	}
	i := &Issuer{secret: []byte(secret), production: production, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CookieName is the secure-prefixed name in production, the plain one otherwise.
func (i *Issuer) CookieName() string {
	if i.production {
		return SecureCookieName
	}
	return CookieName
}

// signingKey derives a per-cookie-name key so a token minted under one name
// does not verify under the other.
func (i *Issuer) signingKey(salt string) ([]byte, error) {
	if len(i.secret) == 0 {
		return nil, ErrMissingSecret
	}
	info := []byte("session signing key (" + salt + ")")
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, i.secret, []byte(salt), info), key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return key, nil
}

// Sign returns the bare token for u.
func (i *Issuer) Sign(u *user.User) (string, error) {
	key, err := i.signingKey(i.CookieName())
	if err != nil {
		return "", err
	}

	now := i.now()
	claims := Claims{
		Name:  u.Name,
		Email: u.Email(),
		Role:  string(u.Role),
		Phone: u.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(MaxAge)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Issue signs a token for u and wraps it in the session cookie.
func (i *Issuer) Issue(u *user.User) (*fiber.Cookie, error) {
	token, err := i.Sign(u)
	if err != nil {
		return nil, err
	}
	return &fiber.Cookie{
		Name:     i.CookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(MaxAge / time.Second),
		Expires:  i.now().Add(MaxAge),
		HTTPOnly: true,
		Secure:   i.production,
		SameSite: fiber.CookieSameSiteLaxMode,
	}, nil
}

// Clear returns a cookie that removes the session on the client.
func (i *Issuer) Clear() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     i.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   i.production,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// Parse verifies a token minted under this issuer's cookie name.
func (i *Issuer) Parse(token string) (*Claims, error) {
	return i.ParseFor(i.CookieName(), token)
}

// ParseFor verifies a token against the key bound to cookieName.
func (i *Issuer) ParseFor(cookieName, token string) (*Claims, error) {
	key, err := i.signingKey(cookieName)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
