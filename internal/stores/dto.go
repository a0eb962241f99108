package stores

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
)

// StoreDTO is the API projection of a store.
type StoreDTO struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Description  *string      `json:"description,omitempty"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	OwnerName    string       `json:"owner_name,omitempty"`
	ProductCount int64        `json:"product_count"`
	Products     []ProductDTO `json:"products,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ProductDTO is the API projection of a product listing.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	StoreID     uuid.UUID       `json:"store_id"`
	StoreName   string          `json:"store_name,omitempty"`
	OwnerID     uuid.UUID       `json:"owner_id,omitempty"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateStoreInput carries the fields an owner may set when opening a store.
type CreateStoreInput struct {
	Name        string
	Description *string
}

// CreateProductInput carries the fields an owner may set when listing a product.
type CreateProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
}

// FromStoreModel converts a store model into its DTO.
func FromStoreModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	dto := &StoreDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		OwnerID:     m.OwnerID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Owner != nil {
		dto.OwnerName = m.Owner.Name
	}
	if len(m.Products) > 0 {
		dto.ProductCount = int64(len(m.Products))
		dto.Products = make([]ProductDTO, 0, len(m.Products))
		for i := range m.Products {
			dto.Products = append(dto.Products, *FromProductModel(&m.Products[i]))
		}
	}
	return dto
}

// FromProductModel converts a product model into its DTO.
func FromProductModel(m *models.Product) *ProductDTO {
	if m == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:          m.ID,
		StoreID:     m.StoreID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Stock:       m.Stock,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Store != nil {
		dto.StoreName = m.Store.Name
		dto.OwnerID = m.Store.OwnerID
	}
	return dto
}
