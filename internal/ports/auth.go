package ports

import "context"

// Principal is the authenticated caller of a mutating request
type Principal struct {
	Subject string
	Email   string
}

// Authenticator verifies a bearer credential.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, token string) (*Principal, error)
}
