package identity

import (
	"context"

	"github.com/LsSens/backend-erp/internal/domain"
)

// Noop is a Provider for local and offline runs. Account management succeeds
// without touching anything. It holds no passwords, so Authenticate always
// fails with ErrUnsupported.
type Noop struct{}

var _ Provider = Noop{}

func (Noop) CreateUser(context.Context, string, string, map[string]string) error { return nil }

func (Noop) Authenticate(context.Context, string, string) (*AuthResult, error) {
	return nil, ErrUnsupported
}

func (Noop) SetPassword(context.Context, string, string, bool) error { return nil }

func (Noop) GetUser(_ context.Context, email string) (*Attributes, error) {
	return &Attributes{Email: email, Role: domain.RoleUser}, nil
}

func (Noop) UpdateAttributes(context.Context, string, map[string]string) error { return nil }

func (Noop) DeleteUser(context.Context, string) error { return nil }
