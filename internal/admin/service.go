package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketpay/marketpay-backend/internal/ledger"
	"github.com/marketpay/marketpay-backend/internal/orders"
	"github.com/marketpay/marketpay-backend/internal/users"
	"github.com/marketpay/marketpay-backend/pkg/db/models"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
	"github.com/marketpay/marketpay-backend/pkg/pagination"
)

// UserOverviewDTO is a user row in the admin listing, with their balance.
type UserOverviewDTO struct {
	users.UserDTO
	Balance decimal.Decimal `json:"balance"`
}

// Service exposes the admin surface: system-wide listings and reversals.
type Service interface {
	ListUsers(ctx context.Context) ([]UserOverviewDTO, error)
	ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
	ListOrders(ctx context.Context, limit int) ([]orders.OrderDTO, error)
	ReverseTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*ledger.ReverseResult, error)
}

type userLister interface {
	ListWithAccounts(ctx context.Context) ([]models.User, error)
}

type orderLister interface {
	ListAll(ctx context.Context, limit int) ([]orders.OrderDTO, error)
}

type reverser interface {
	Reverse(ctx context.Context, input ledger.ReverseInput) (*ledger.ReverseResult, error)
}

type service struct {
	repo   *Repository
	users  userLister
	orders orderLister
	ledger reverser
}

// ServiceParams bundles the dependencies of the admin service.
type ServiceParams struct {
	Repo   *Repository
	Users  userLister
	Orders orderLister
	Ledger reverser
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service is required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service is required")
	}
	return &service{
		repo:   params.Repo,
		users:  params.Users,
		orders: params.Orders,
		ledger: params.Ledger,
	}, nil
}

func (s *service) ListUsers(ctx context.Context) ([]UserOverviewDTO, error) {
	rows, err := s.users.ListWithAccounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	out := make([]UserOverviewDTO, 0, len(rows))
	for i := range rows {
		dto := UserOverviewDTO{UserDTO: *users.FromModel(&rows[i])}
		if rows[i].Account != nil {
			dto.Balance = rows[i].Account.Balance
		}
		out = append(out, dto)
	}
	return out, nil
}

func (s *service) ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	rows, err := s.repo.ListTransactions(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	return rows, nil
}

func (s *service) ListOrders(ctx context.Context, limit int) ([]orders.OrderDTO, error) {
	return s.orders.ListAll(ctx, limit)
}

// ReverseTransaction compensates a peer-to-peer transaction. The ledger
// enforces which kinds are reversible and that the receiver can refund.
func (s *service) ReverseTransaction(ctx context.Context, transactionID uuid.UUID, reason string) (*ledger.ReverseResult, error) {
	return s.ledger.Reverse(ctx, ledger.ReverseInput{
		TransactionID: transactionID,
		Reason:        reason,
	})
}
