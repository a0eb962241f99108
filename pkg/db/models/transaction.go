package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/enums"
)

// Transaction records one leg of a completed money movement. Rows are
// append-only: a mistake is corrected by new offsetting rows, never by
// editing history. Sender/receiver are nullable for non-peer kinds.
type Transaction struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(18,2);not null"`
	Kind        enums.TransactionKind `gorm:"column:kind;type:text;not null"`
	Description *string               `gorm:"column:description"`
	SenderID    *uuid.UUID            `gorm:"column:sender_id;type:uuid;index"`
	Sender      *User                 `gorm:"foreignKey:SenderID"`
	ReceiverID  *uuid.UUID            `gorm:"column:receiver_id;type:uuid;index"`
	Receiver    *User                 `gorm:"foreignKey:ReceiverID"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	Order       *Order                `gorm:"foreignKey:OrderID"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ReversalMetadata is the payload stored on the compensating rows created by
// an administrative reversal, linking back to the reversed transaction.
type ReversalMetadata struct {
	OriginalTransactionID uuid.UUID `json:"original_transaction_id"`
	Reason                string    `json:"reason"`
}
