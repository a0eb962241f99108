package stores

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
)

// Service exposes store and product catalog operations.
type Service interface {
	CreateStore(ctx context.Context, ownerID uuid.UUID, input CreateStoreInput) (*StoreDTO, error)
	ListStores(ctx context.Context) ([]StoreDTO, error)
	GetStore(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
	CreateProduct(ctx context.Context, actorID, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	ListProducts(ctx context.Context) ([]ProductDTO, error)
}

type service struct {
	repo *Repository
}

// NewService builds a store service backed by the given repository.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("stores: repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateStore(ctx context.Context, ownerID uuid.UUID, input CreateStoreInput) (*StoreDTO, error) {
	name := strings.TrimSpace(input.Name)
	if len(name) < 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name must be at least 3 characters")
	}

	store := &models.Store{
		Name:        name,
		Description: input.Description,
		OwnerID:     ownerID,
	}
	if err := s.repo.CreateStore(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
	}
	return FromStoreModel(store), nil
}

func (s *service) ListStores(ctx context.Context) ([]StoreDTO, error) {
	rows, err := s.repo.ListStores(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}
	out := make([]StoreDTO, 0, len(rows))
	for i := range rows {
		dto := FromStoreModel(&rows[i].Store)
		dto.ProductCount = rows[i].ProductCount
		out = append(out, *dto)
	}
	return out, nil
}

func (s *service) GetStore(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	store, err := s.repo.FindStoreByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find store")
	}
	dto := FromStoreModel(store)
	dto.ProductCount = int64(len(store.Products))
	return dto, nil
}

func (s *service) CreateProduct(ctx context.Context, actorID, storeID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if len(name) < 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name must be at least 3 characters")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}
	if input.Price.Exponent() < -2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must not be finer than cents")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product stock must not be negative")
	}

	store, err := s.repo.FindStoreByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find store")
	}
	if store.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the store owner may add products")
	}

	product := &models.Product{
		StoreID:     store.ID,
		Name:        name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	product.Store = store
	return FromProductModel(product), nil
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.ListAvailableProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, *FromProductModel(&products[i]))
	}
	return out, nil
}
