// Package identity adapts the external identity provider that owns user
// credentials. Accounts are addressed by email.
package identity

import (
	"context"

	"github.com/LsSens/backend-erp/internal/domain"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// Attribute names stored on an identity account.
const (
	AttrSub           = "sub"
	AttrEmail         = "email"
	AttrEmailVerified = "email_verified"
	AttrName          = "name"
	AttrRole          = "custom:role"
)

// Provider manages credentials and profile attributes of user accounts.
type Provider interface {
	// CreateUser provisions an account with a temporary password without
	// notifying the user.
	CreateUser(ctx context.Context, email, temporaryPassword string, attributes map[string]string) error
	// Authenticate checks a password and returns the provider's tokens.
	Authenticate(ctx context.Context, email, password string) (*AuthResult, error)
	SetPassword(ctx context.Context, email, password string, permanent bool) error
	GetUser(ctx context.Context, email string) (*Attributes, error)
	UpdateAttributes(ctx context.Context, email string, attributes map[string]string) error
	DeleteUser(ctx context.Context, email string) error
}

// AuthResult carries the tokens issued on a successful authentication.
type AuthResult struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int32
}

// Attributes is the folded attribute set of an account.
type Attributes struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Role          domain.Role
}

// ExtractAttributes folds a provider attribute list into Attributes. Every
// field has a default, so a nil or empty list is valid input.
func ExtractAttributes(list []types.AttributeType) Attributes {
	values := make(map[string]string, len(list))
	for _, attr := range list {
		if attr.Name == nil || attr.Value == nil {
			continue
		}
		values[*attr.Name] = *attr.Value
	}

	return Attributes{
		Sub:           values[AttrSub],
		Email:         values[AttrEmail],
		EmailVerified: values[AttrEmailVerified] == "true",
		Name:          values[AttrName],
		Role:          domain.ParseRole(values[AttrRole]),
	}
}
