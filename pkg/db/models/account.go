package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account holds a user's monetary balance. The balance is only ever mutated
// inside a ledger commit and never goes negative; the commit re-checks the
// invariant even though the guard validates it up front.
type Account struct {
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(18,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
