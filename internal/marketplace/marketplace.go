// Package marketplace exchanges OAuth authorization codes with external
// marketplaces for store credentials.
package marketplace

import (
	"context"
	"errors"

	"github.com/LsSens/backend-erp/internal/domain"
)

// ErrUnsupported is returned for marketplace types without an exchanger.
var ErrUnsupported = errors.New("marketplace type not supported")

// Exchanger trades an authorization code for tokens and store identity.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*domain.AuthInfo, error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc func(ctx context.Context, code string) (*domain.AuthInfo, error)

func (f ExchangerFunc) Exchange(ctx context.Context, code string) (*domain.AuthInfo, error) {
	return f(ctx, code)
}

// Factory resolves the exchanger for a marketplace type.
type Factory struct {
	exchangers map[domain.MarketplaceType]Exchanger
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{exchangers: make(map[domain.MarketplaceType]Exchanger)}
}

// Register binds an exchanger to a marketplace type, replacing any previous one.
func (f *Factory) Register(t domain.MarketplaceType, e Exchanger) *Factory {
	f.exchangers[t] = e
	return f
}

// Supports reports whether t has an exchanger.
func (f *Factory) Supports(t domain.MarketplaceType) bool {
	_, ok := f.exchangers[t]
	return ok
}

// Exchange runs the exchanger registered for t.
func (f *Factory) Exchange(ctx context.Context, t domain.MarketplaceType, code string) (*domain.AuthInfo, error) {
	e, ok := f.exchangers[t]
	if !ok {
		return nil, ErrUnsupported
	}
	return e.Exchange(ctx, code)
}
