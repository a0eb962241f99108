package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is a user-owned storefront. A user may own multiple stores but may
// never purchase from their own.
type Store struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	OwnerID     uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	Owner       *User     `gorm:"foreignKey:OwnerID"`
	Products    []Product `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
