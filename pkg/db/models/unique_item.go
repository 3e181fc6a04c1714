package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
)

// UniqueItem is one physical unit identified by IMEI, serial number or a
// generated identifier.
type UniqueItem struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	GoodID     uuid.UUID              `gorm:"column:good_id;type:uuid;not null;index"`
	Good       *Good                  `gorm:"foreignKey:GoodID"`
	Identifier string                 `gorm:"column:identifier;not null;uniqueIndex"`
	Status     enums.UniqueItemStatus `gorm:"column:status;type:unique_item_status;not null;default:available"`
	Synthetic  bool                   `gorm:"column:synthetic;not null;default:false"`
	Photo      *string                `gorm:"column:photo"`
	Price      decimal.NullDecimal    `gorm:"column:price;type:numeric(14,2)"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *UniqueItem) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
