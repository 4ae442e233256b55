// Package identity resolves the current user from configuration or bearer tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"scrapbook/internal/domain"
)

// Static always answers with one configured user. Used by the CLI and MCP transports.
type Static string

func (s Static) CurrentUser(context.Context) (string, bool) {
	return string(s), s != ""
}

type ctxKey struct{}

// WithUser attaches a user id to ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext returns the user id attached by WithUser.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Context resolves the user from the request context.
type Context struct{}

func (Context) CurrentUser(ctx context.Context) (string, bool) { return FromContext(ctx) }

// Tokens issues and validates HS256 bearer tokens whose subject is the user id.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

type claims struct {
	jwt.RegisteredClaims
}

func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, domain.ErrNoUser
	}
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	cl := claims{jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse validates signature, issuer and expiry and returns the user id.
func (t *Tokens) Parse(raw string) (string, error) {
	var cl claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	tkn, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return "", errors.Join(domain.ErrUnauthorized, err)
	}
	if !tkn.Valid || cl.Subject == "" {
		return "", domain.ErrUnauthorized
	}
	return cl.Subject, nil
}
