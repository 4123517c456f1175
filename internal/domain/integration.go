package domain

// MarketplaceType identifies an external marketplace.
type MarketplaceType string

const (
	MarketplaceMercadoLivre  MarketplaceType = "mercadolivre"
	MarketplaceShopee        MarketplaceType = "shopee"
	MarketplaceAmazon        MarketplaceType = "amazon"
	MarketplaceMagazineLuiza MarketplaceType = "magazine_luiza"
	MarketplaceB2W           MarketplaceType = "b2w"
)

// MarketplaceTypes lists every known marketplace.
var MarketplaceTypes = []MarketplaceType{
	MarketplaceMercadoLivre,
	MarketplaceShopee,
	MarketplaceAmazon,
	MarketplaceMagazineLuiza,
	MarketplaceB2W,
}

// IsValid reports whether t is a known marketplace.
func (t MarketplaceType) IsValid() bool {
	for _, known := range MarketplaceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IntegrationStatus is the lifecycle state of an integration. Any status may
// move to any other; there is no terminal state.
type IntegrationStatus string

const (
	StatusActive   IntegrationStatus = "active"
	StatusInactive IntegrationStatus = "inactive"
	StatusPending  IntegrationStatus = "pending"
	StatusError    IntegrationStatus = "error"
)

// IsValid reports whether s is a known status.
func (s IntegrationStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusError:
		return true
	}
	return false
}

// MarketplaceIntegration holds the OAuth credentials a user granted for one marketplace store.
type MarketplaceIntegration struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	MarketplaceType MarketplaceType   `json:"marketplaceType"`
	AccessToken     string            `json:"accessToken"`
	RefreshToken    string            `json:"refreshToken,omitempty"`
	SellerID        string            `json:"sellerId,omitempty"`
	StoreName       string            `json:"storeName,omitempty"`
	Status          IntegrationStatus `json:"status"`
	LastSyncAt      string            `json:"lastSyncAt,omitempty"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
	CreatedAt       string            `json:"createdAt"`
	UpdatedAt       string            `json:"updatedAt"`
}

// Key returns the address of the integration.
func (m MarketplaceIntegration) Key() IntegrationKey {
	return IntegrationKey{UserID: m.UserID, MarketplaceType: m.MarketplaceType, ID: m.ID}
}

// CreateIntegrationInput starts an integration from an OAuth authorization code.
type CreateIntegrationInput struct {
	MarketplaceType MarketplaceType `json:"marketplaceType" validate:"required,oneof=mercadolivre shopee amazon magazine_luiza b2w"`
	Code            string          `json:"code" validate:"required"`
}

// UpdateIntegrationInput is a partial update; nil fields are left untouched.
type UpdateIntegrationInput struct {
	AccessToken  *string            `json:"accessToken,omitempty" validate:"omitempty,min=1"`
	RefreshToken *string            `json:"refreshToken,omitempty"`
	SellerID     *string            `json:"sellerId,omitempty"`
	StoreName    *string            `json:"storeName,omitempty"`
	Status       *IntegrationStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive pending error"`
	LastSyncAt   *string            `json:"lastSyncAt,omitempty" validate:"omitempty,rfc3339"`
	ErrorMessage *string            `json:"errorMessage,omitempty"`
}

// UpdateStatusInput is the body of a status transition.
type UpdateStatusInput struct {
	Status       IntegrationStatus `json:"status" validate:"omitempty,oneof=active inactive pending error"`
	ErrorMessage *string           `json:"errorMessage,omitempty"`
}

// RefreshTokenInput is the body of a token refresh.
type RefreshTokenInput struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken *string `json:"refreshToken,omitempty"`
}

// AuthInfo is what a marketplace returns after an authorization-code exchange.
type AuthInfo struct {
	MarketplaceType MarketplaceType
	AccessToken     string
	RefreshToken    string
	SellerID        string
	StoreName       string
}
