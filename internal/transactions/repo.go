package transactions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/internal/repo"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
)

// Repository persists transactions and their items.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// Insert writes the transaction and its items on tx.
func (r *Repository) Insert(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error {
	return r.WithTx(tx).DB(ctx).Create(txn).Error
}

// FindByID loads a transaction with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("identifier ASC") }).
		First(&txn, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
