// Package auth verifies the bearer credentials of mutating requests.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"

	"printvault/internal/config"
	"printvault/internal/ports"
)

// ErrUnauthorized is returned for a missing, malformed or rejected credential.
var ErrUnauthorized = errors.New("unauthorized")

// New returns the authenticator for cfg.Mode, or nil when auth is off.
func New(ctx context.Context, cfg config.AuthConfig) (ports.Authenticator, error) {
	switch cfg.Mode {
	case config.AuthNone, "":
		return nil, nil
	case config.AuthToken:
		t, err := NewToken(cfg.Token)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.AuthFirebase:
		f, err := NewFirebase(ctx, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// Token accepts one static shared secret.
type Token struct {
	secret []byte
}

var _ ports.Authenticator = (*Token)(nil)

func NewToken(secret string) (*Token, error) {
	if secret == "" {
		return nil, errors.New("auth token must not be empty")
	}
	return &Token{secret: []byte(secret)}, nil
}

func (t *Token) Name() string { return config.AuthToken }

func (t *Token) Authenticate(ctx context.Context, token string) (*ports.Principal, error) {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), t.secret) != 1 {
		return nil, ErrUnauthorized
	}
	return &ports.Principal{Subject: "token"}, nil
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// Firebase verifies Firebase ID tokens. FIREBASE_AUTH_EMULATOR_HOST is
// honored by the SDK.
type Firebase struct {
	verifier idTokenVerifier
}

var _ ports.Authenticator = (*Firebase)(nil)

func NewFirebase(ctx context.Context, projectID string) (*Firebase, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}
	return &Firebase{verifier: client}, nil
}

func (f *Firebase) Name() string { return config.AuthFirebase }

func (f *Firebase) Authenticate(ctx context.Context, token string) (*ports.Principal, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	tok, err := f.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	p := &ports.Principal{Subject: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		p.Email = email
	}
	return p, nil
}
