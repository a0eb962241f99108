package admin

import (
	"context"

	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
)

// Repository provides the system-wide reads behind the admin surface.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListTransactions returns the most recent transactions across all users,
// capped at limit, with both parties and any linked order preloaded.
func (r *Repository) ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Order").
		Preload("Order.Product").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
