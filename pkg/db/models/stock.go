package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock tracks how many units of a good an owner holds.
type Stock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	GoodID    uuid.UUID `gorm:"column:good_id;type:uuid;not null;uniqueIndex:ux_stocks_good_owner,priority:1"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_stocks_good_owner,priority:2"`
	Quantity  int       `gorm:"column:quantity;not null;default:0;check:chk_stocks_quantity_non_negative,quantity >= 0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Stock) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
