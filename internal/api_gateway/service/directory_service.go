package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/domain/fx"
	"github.com/noblepay-ledger/internal/domain/provider"
)

// DirectoryServiceImpl implements the DirectoryService interface
type DirectoryServiceImpl struct {
	providers provider.Repository
	products  catalog.ProductRepository
	rates     fx.Repository
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(providers provider.Repository, products catalog.ProductRepository, rates fx.Repository) DirectoryService {
	return &DirectoryServiceImpl{
		providers: providers,
		products:  products,
		rates:     rates,
	}
}

func (s *DirectoryServiceImpl) ListProviders(ctx context.Context, kind provider.Kind, filter provider.Filter) ([]*provider.Provider, error) {
	return s.providers.List(ctx, kind, filter)
}

func (s *DirectoryServiceImpl) ListProducts(ctx context.Context, category string) ([]*catalog.Product, error) {
	return s.products.List(ctx, category)
}

func (s *DirectoryServiceImpl) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *DirectoryServiceImpl) ListRates(ctx context.Context) ([]*fx.Rate, error) {
	return s.rates.List(ctx)
}
