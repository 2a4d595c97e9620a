// Package service implements application services above the engine:
// signed preference-management links for recipients.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPreferenceSigningKeyMissing = errors.New("preference signing key is not configured")
	ErrPreferenceTokenRevoked      = errors.New("preference token has been revoked")
	ErrPreferenceTokenMalformed    = errors.New("preference token is malformed")
)

// DefaultPreferenceTokenTTL bounds how long an issued preference link
// stays valid.
const DefaultPreferenceTokenTTL = 30 * 24 * time.Hour

// TokenStore persists the per-recipient token hash. The repository's
// Store satisfies it.
type TokenStore interface {
	PreferenceTokenHash(ctx context.Context, recipientID string) (string, error)
	SetPreferenceTokenHash(ctx context.Context, recipientID, hash string) error
}

// PreferenceClaims is the signed payload of a preference link. Token
// carries the raw opaque secret; only its bcrypt hash is stored, so a
// database leak does not mint valid links.
type PreferenceClaims struct {
	RecipientID string `json:"recipient_id"`
	GroupID     string `json:"group_id"`
	Token       string `json:"token"`
	jwt.RegisteredClaims
}

// PreferenceTokenManager issues and validates unauthenticated
// preference-management links. Issuing rotates the stored hash, which
// revokes every previously issued link for the recipient.
type PreferenceTokenManager struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
	store      TokenStore
}

// NewPreferenceTokenManager creates a preference link manager.
func NewPreferenceTokenManager(signingKey []byte, issuer string, ttl time.Duration, store TokenStore) *PreferenceTokenManager {
	if ttl <= 0 {
		ttl = DefaultPreferenceTokenTTL
	}
	return &PreferenceTokenManager{
		signingKey: signingKey,
		issuer:     issuer,
		ttl:        ttl,
		now:        func() time.Time { return time.Now().UTC() },
		store:      store,
	}
}

// Issue mints a fresh preference link for one recipient/group pair and
// rotates the stored token hash.
func (m *PreferenceTokenManager) Issue(ctx context.Context, recipientID, groupID string) (string, error) {
	if len(m.signingKey) == 0 {
		return "", ErrPreferenceSigningKeyMissing
	}

	raw, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate preference token: %w", err)
	}
	secret := raw.String()

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash preference token: %w", err)
	}
	if err := m.store.SetPreferenceTokenHash(ctx, recipientID, string(hash)); err != nil {
		return "", fmt.Errorf("rotate preference token: %w", err)
	}

	now := m.now().UTC()
	claims := PreferenceClaims{
		RecipientID: recipientID,
		GroupID:     groupID,
		Token:       secret,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   recipientID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        secret,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign preference token: %w", err)
	}
	return signed, nil
}

// Validate checks a preference link's signature and expiry, then
// compares its embedded secret against the stored hash. A rotated hash
// means the link was revoked.
func (m *PreferenceTokenManager) Validate(ctx context.Context, token string) (*PreferenceClaims, error) {
	if len(m.signingKey) == 0 {
		return nil, ErrPreferenceSigningKeyMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &PreferenceClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*PreferenceClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.RecipientID == "" || claims.Token == "" {
		return nil, ErrPreferenceTokenMalformed
	}

	hash, err := m.store.PreferenceTokenHash(ctx, claims.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("load preference token hash: %w", err)
	}
	if hash == "" {
		return nil, ErrPreferenceTokenRevoked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(claims.Token)); err != nil {
		return nil, ErrPreferenceTokenRevoked
	}
	return claims, nil
}
