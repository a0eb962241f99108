package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
	"github.com/marketpay/marketpay-backend/pkg/pagination"
)

// OrderDTO is the API projection of a completed order.
type OrderDTO struct {
	ID          uuid.UUID       `json:"id"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	BuyerName   string          `json:"buyer_name,omitempty"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	StoreID     uuid.UUID       `json:"store_id,omitempty"`
	StoreName   string          `json:"store_name,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Service exposes order history reads.
type Service interface {
	ListMine(ctx context.Context, buyerID uuid.UUID) ([]OrderDTO, error)
	ListAll(ctx context.Context, limit int) ([]OrderDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders: repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListMine(ctx context.Context, buyerID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return fromModels(rows), nil
}

func (s *service) ListAll(ctx context.Context, limit int) ([]OrderDTO, error) {
	rows, err := s.repo.ListAll(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list all orders")
	}
	return fromModels(rows), nil
}

// FromModel flattens an order row into its DTO.
func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:         o.ID,
		Quantity:   o.Quantity,
		TotalPrice: o.TotalPrice,
		BuyerID:    o.BuyerID,
		ProductID:  o.ProductID,
		CreatedAt:  o.CreatedAt,
	}
	if o.Buyer != nil {
		dto.BuyerName = o.Buyer.Name
	}
	if o.Product != nil {
		dto.ProductName = o.Product.Name
		dto.StoreID = o.Product.StoreID
		if o.Product.Store != nil {
			dto.StoreName = o.Product.Store.Name
		}
	}
	return dto
}

func fromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
