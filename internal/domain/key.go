package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIntegrationRef is returned for references that do not name an
// owner, a marketplace type and an id.
var ErrInvalidIntegrationRef = errors.New("invalid marketplace integration reference")

// IntegrationKey addresses one integration. The owner and the marketplace type
// are part of the primary key, so an id alone cannot locate the item.
type IntegrationKey struct {
	UserID          string
	MarketplaceType MarketplaceType
	ID              string
}

// String renders the composite reference USER#<userId>#MARKETPLACE#<type>#<id>.
func (k IntegrationKey) String() string {
	return fmt.Sprintf("USER#%s#MARKETPLACE#%s#%s", k.UserID, k.MarketplaceType, k.ID)
}

// Validate checks that every component is present and the type is known.
func (k IntegrationKey) Validate() error {
	if k.UserID == "" || k.ID == "" || !k.MarketplaceType.IsValid() {
		return ErrInvalidIntegrationRef
	}
	return nil
}

// ParseIntegrationRef accepts either the composite reference produced by
// String or the short form <userId>:<type>:<id>.
func ParseIntegrationRef(ref string) (IntegrationKey, error) {
	var key IntegrationKey

	switch {
	case strings.HasPrefix(ref, "USER#"):
		parts := strings.Split(ref, "#")
		if len(parts) != 5 || parts[2] != "MARKETPLACE" {
			return key, ErrInvalidIntegrationRef
		}
		key = IntegrationKey{UserID: parts[1], MarketplaceType: MarketplaceType(parts[3]), ID: parts[4]}
	case strings.Count(ref, ":") == 2:
		parts := strings.Split(ref, ":")
		key = IntegrationKey{UserID: parts[0], MarketplaceType: MarketplaceType(parts[1]), ID: parts[2]}
	default:
		return key, ErrInvalidIntegrationRef
	}

	if err := key.Validate(); err != nil {
		return IntegrationKey{}, err
	}
	return key, nil
}
