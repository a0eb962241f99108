package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketpay/marketpay-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a user. Rows are
// written by the dispatcher after a ledger commit, never inside one.
type Notification struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	Event     enums.NotificationEvent `gorm:"column:event;type:text;not null"`
	Payload   json.RawMessage         `gorm:"column:payload;type:jsonb"`
	ReadAt    *time.Time              `gorm:"column:read_at"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
