package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order records a completed purchase. TotalPrice is the unit price snapshot
// multiplied by quantity at purchase time, not a live reference.
type Order struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Quantity   int             `gorm:"column:quantity;not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(18,2);not null"`
	BuyerID    uuid.UUID       `gorm:"column:buyer_id;type:uuid;not null;index"`
	Buyer      *User           `gorm:"foreignKey:BuyerID"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Product    *Product        `gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
