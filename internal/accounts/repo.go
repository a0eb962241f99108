package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/pagination"
)

// Repository exposes read access to accounts and their transaction history.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an accounts repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUserID loads the account row for the given owner.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

type listTransactionsParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

// ListTransactions returns the user's history, newest first: every row where
// they appear as sender or receiver.
func (r *Repository) ListTransactions(ctx context.Context, params listTransactionsParams) ([]models.Transaction, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Preload("Sender").
		Preload("Receiver").
		Preload("Order").
		Preload("Order.Product").
		Where("sender_id = ? OR receiver_id = ?", params.UserID, params.UserID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Transaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}
