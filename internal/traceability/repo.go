package traceability

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/internal/repo"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	"github.com/angelmondragon/registro-bienes-backend/pkg/pagination"
)

// Repository runs the read-only history queries.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindGood loads a good.
func (r *Repository) FindGood(ctx context.Context, id uuid.UUID) (*models.Good, error) {
	var good models.Good
	if err := r.DB(ctx).First(&good, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &good, nil
}

// FindItem loads a unique item with its current good.
func (r *Repository) FindItem(ctx context.Context, identifier string) (*models.UniqueItem, error) {
	var item models.UniqueItem
	if err := r.DB(ctx).Preload("Good").First(&item, "identifier = ?", identifier).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByGood pages through the transactions that moved a good, newest first.
func (r *Repository) ListByGood(ctx context.Context, goodID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Transaction, error) {
	qb := r.DB(ctx).Where("transactions.good_id = ?", goodID)
	return r.page(qb, cursor, limit)
}

// ListByIdentifier pages through the transactions that listed identifier,
// across every good it has belonged to.
func (r *Repository) ListByIdentifier(ctx context.Context, identifier string, cursor *pagination.Cursor, limit int) ([]models.Transaction, error) {
	qb := r.DB(ctx).
		Joins("JOIN transaction_items ti ON ti.transaction_id = transactions.id").
		Where("ti.identifier = ?", identifier)
	return r.page(qb, cursor, limit)
}

func (r *Repository) page(qb *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := qb.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("identifier ASC") }).
		Scopes(pagination.Keyset("transactions", cursor, limit)).
		Find(&rows).Error
	return rows, err
}
