package auth

import (
	"context"
	"errors"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printvault/internal/config"
)

func TestToken(t *testing.T) {
	a, err := NewToken("s3cret")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"match", "s3cret", true},
		{"wrong", "guess", false},
		{"prefix", "s3cre", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := a.Authenticate(context.Background(), tt.token)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, "token", p.Subject)
				return
			}
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}

	_, err = NewToken("")
	assert.Error(t, err)
}

type fakeVerifier struct {
	tokens map[string]*fbauth.Token
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if tok, ok := f.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("ID token has expired")
}

func TestFirebase(t *testing.T) {
	f := &Firebase{verifier: fakeVerifier{tokens: map[string]*fbauth.Token{
		"good": {UID: "user-1", Claims: map[string]interface{}{"email": "painter@example.com"}},
	}}}

	p, err := f.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.Subject)
	assert.Equal(t, "painter@example.com", p.Email)

	_, err = f.Authenticate(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "expired")

	_, err = f.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNew(t *testing.T) {
	a, err := New(context.Background(), config.AuthConfig{Mode: config.AuthNone})
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = New(context.Background(), config.AuthConfig{Mode: config.AuthToken, Token: "x"})
	require.NoError(t, err)
	assert.Equal(t, "token", a.Name())

	_, err = New(context.Background(), config.AuthConfig{Mode: "ldap"})
	assert.Error(t, err)
}
