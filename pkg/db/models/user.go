package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
)

// User is a person or company that can own goods. Accounts are provisioned by
// the identity service; this API only reads them.
type User struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email          string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	FirstName      string         `gorm:"column:first_name;not null"`
	LastName       string         `gorm:"column:last_name;not null"`
	DocumentNumber *string        `gorm:"column:document_number;uniqueIndex"`
	CUIT           *string        `gorm:"column:cuit"`
	Kind           enums.UserKind `gorm:"column:kind;type:user_kind;not null;default:person"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
