package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
)

// Transaction is the append-only record of a purchase or sale.
type Transaction struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Kind           enums.TransactionKind `gorm:"column:kind;type:transaction_kind;not null"`
	GoodID         *uuid.UUID            `gorm:"column:good_id;type:uuid;index"`
	SellerID       uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index"`
	BuyerID        uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null;index"`
	RegisteredByID uuid.UUID             `gorm:"column:registered_by_id;type:uuid;not null"`
	PaymentMethod  enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method;not null"`
	Quantity       int                   `gorm:"column:quantity;not null;check:chk_transactions_quantity_positive,quantity > 0"`
	UnitPrice      decimal.Decimal       `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Amount         decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	Photos         []string              `gorm:"column:photos;type:jsonb;serializer:json"`
	Items          []TransactionItem     `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime;index"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// TransactionItem lists a unique identifier moved by a transaction.
type TransactionItem struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID uuid.UUID  `gorm:"column:transaction_id;type:uuid;not null;index"`
	UniqueItemID  *uuid.UUID `gorm:"column:unique_item_id;type:uuid"`
	Identifier    string     `gorm:"column:identifier;not null;index"`
}

func (i *TransactionItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
