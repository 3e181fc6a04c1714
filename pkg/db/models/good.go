package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Good is a catalog entry owned by one user. The (type, brand, model, owner)
// tuple is unique through IdentityKey.
type Good struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Type           string          `gorm:"column:type;not null"`
	Brand          string          `gorm:"column:brand;not null"`
	Model          string          `gorm:"column:model;not null"`
	IdentityKey    string          `gorm:"column:identity_key;not null;uniqueIndex:ux_goods_identity_owner,priority:1"`
	OwnerID        uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_goods_identity_owner,priority:2"`
	RegisteredByID uuid.UUID       `gorm:"column:registered_by_id;type:uuid;not null"`
	Description    *string         `gorm:"column:description"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null;default:0"`
	Photos         []string        `gorm:"column:photos;type:jsonb;serializer:json"`
	Stocks         []Stock         `gorm:"foreignKey:GoodID;constraint:OnDelete:CASCADE"`
	UniqueItems    []UniqueItem    `gorm:"foreignKey:GoodID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (g *Good) BeforeCreate(*gorm.DB) error {
	assignID(&g.ID)
	g.IdentityKey = GoodIdentityKey(g.Type, g.Brand, g.Model)
	return nil
}

// GoodIdentityKey normalizes the catalog tuple so lookups ignore case and
// surrounding whitespace.
func GoodIdentityKey(goodType, brand, model string) string {
	parts := []string{goodType, brand, model}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(parts, "|")
}
