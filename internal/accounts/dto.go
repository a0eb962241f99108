package accounts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketpay/marketpay-backend/pkg/db/models"
	"github.com/marketpay/marketpay-backend/pkg/enums"
)

// TransactionDTO is the API projection of one ledger row, with the parties
// and any linked order flattened for display.
type TransactionDTO struct {
	ID           uuid.UUID             `json:"id"`
	Amount       decimal.Decimal       `json:"amount"`
	Kind         enums.TransactionKind `json:"kind"`
	Description  *string               `json:"description,omitempty"`
	SenderID     *uuid.UUID            `json:"sender_id,omitempty"`
	SenderName   string                `json:"sender_name,omitempty"`
	ReceiverID   *uuid.UUID            `json:"receiver_id,omitempty"`
	ReceiverName string                `json:"receiver_name,omitempty"`
	OrderID      *uuid.UUID            `json:"order_id,omitempty"`
	ProductName  string                `json:"product_name,omitempty"`
	Metadata     json.RawMessage       `json:"metadata,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

// FromTransactionModel flattens a ledger row into its DTO.
func FromTransactionModel(m *models.Transaction) *TransactionDTO {
	if m == nil {
		return nil
	}
	dto := &TransactionDTO{
		ID:          m.ID,
		Amount:      m.Amount,
		Kind:        m.Kind,
		Description: m.Description,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		OrderID:     m.OrderID,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
	}
	if m.Sender != nil {
		dto.SenderName = m.Sender.Name
	}
	if m.Receiver != nil {
		dto.ReceiverName = m.Receiver.Name
	}
	if m.Order != nil && m.Order.Product != nil {
		dto.ProductName = m.Order.Product.Name
	}
	return dto
}

// FromTransactionModels maps a page of rows.
func FromTransactionModels(rows []models.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromTransactionModel(&rows[i]))
	}
	return out
}
