// Package provider describes external counterparts such as bill issuers and
// mobile-money networks. They are referenced by movements but never hold a balance.
package provider

import (
	"context"

	"github.com/google/uuid"
)

// Kind separates bill issuers from mobile-money networks
type Kind string

const (
	KindBill        Kind = "bill"
	KindMobileMoney Kind = "mobile_money"
)

// Provider is a read-only external counterpart
type Provider struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Category  string    `json:"category,omitempty"`
	Countries []string  `json:"countries"`
	Active    bool      `json:"active"`
}

// ServesCountry reports whether the provider operates in country. An empty
// country list means the provider is not restricted.
func (p *Provider) ServesCountry(country string) bool {
	if len(p.Countries) == 0 || country == "" {
		return true
	}
	for _, c := range p.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// Filter narrows provider listings
type Filter struct {
	Category string
	Country  string
}

// Repository reads providers
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	List(ctx context.Context, kind Kind, filter Filter) ([]*Provider, error)
}

// ErrProviderNotFound indicates an unknown, inactive or mismatched provider
type ErrProviderNotFound struct {
	ProviderID uuid.UUID
}

func (e ErrProviderNotFound) Error() string {
	return "provider not found: " + e.ProviderID.String()
}

// Is matches any ErrProviderNotFound when the target carries no ProviderID
func (e ErrProviderNotFound) Is(target error) bool {
	t, ok := target.(ErrProviderNotFound)
	if !ok {
		return false
	}
	return t.ProviderID == uuid.Nil || t.ProviderID == e.ProviderID
}
