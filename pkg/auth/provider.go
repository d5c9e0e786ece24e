package auth

import (
	"context"

	"github.com/kerbaras/novels/pkg/data"
)

// Provider performs an interactive login for an account and returns the
// resulting credential. It does not persist anything.
type Provider interface {
	Login(ctx context.Context, account data.Account) (*data.Credential, error)
}

// Solver answers the image challenge shown on the login form.
type Solver interface {
	Solve(ctx context.Context, png []byte) (string, error)
}
