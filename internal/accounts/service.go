package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/internal/users"
	"github.com/marketpay/marketpay-backend/pkg/db/models"
	pkgerrors "github.com/marketpay/marketpay-backend/pkg/errors"
	"github.com/marketpay/marketpay-backend/pkg/pagination"
)

// Service exposes the read side of a user's wallet: balance, account
// details, and transaction history.
type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error)
	GetDetails(ctx context.Context, userID uuid.UUID) (*DetailsDTO, error)
	History(ctx context.Context, params HistoryParams) (*HistoryResult, error)
}

// BalanceDTO reports the current balance.
type BalanceDTO struct {
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DetailsDTO combines the user profile with their balance.
type DetailsDTO struct {
	User    users.UserDTO   `json:"user"`
	Balance decimal.Decimal `json:"balance"`
}

// HistoryParams configures pagination for the transaction history.
type HistoryParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// HistoryResult wraps history rows and the cursor for the next page.
type HistoryResult struct {
	Items  []models.Transaction `json:"items"`
	Cursor string               `json:"cursor"`
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo  *Repository
	users userFinder
}

// NewService wires the accounts read service.
func NewService(repo *Repository, userRepo userFinder) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "accounts repository required")
	}
	if userRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &service{repo: repo, users: userRepo}, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return &BalanceDTO{Balance: account.Balance, UpdatedAt: account.UpdatedAt}, nil
}

func (s *service) GetDetails(ctx context.Context, userID uuid.UUID) (*DetailsDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	account, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return &DetailsDTO{User: *users.FromModel(user), Balance: account.Balance}, nil
}

func (s *service) History(ctx context.Context, params HistoryParams) (*HistoryResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listTransactionsParams{
		UserID: params.UserID,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListTransactions(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &HistoryResult{Items: rows, Cursor: cursor}, nil
}
