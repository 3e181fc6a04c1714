package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/registro-bienes-backend/internal/repo"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
)

// Repository persists stock rows keyed by (good, owner).
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

// Find loads the stock row without locking.
func (r *Repository) Find(ctx context.Context, goodID, ownerID uuid.UUID) (*models.Stock, error) {
	var row models.Stock
	err := r.DB(ctx).
		Where("good_id = ? AND owner_id = ?", goodID, ownerID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindForUpdate loads the stock row holding a row lock until the surrounding
// transaction ends.
func (r *Repository) FindForUpdate(ctx context.Context, goodID, ownerID uuid.UUID) (*models.Stock, error) {
	var row models.Stock
	err := r.ForUpdate(ctx).
		Where("good_id = ? AND owner_id = ?", goodID, ownerID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Increment adds delta to the row, creating it when absent.
func (r *Repository) Increment(ctx context.Context, goodID, ownerID uuid.UUID, delta int) error {
	row := models.Stock{GoodID: goodID, OwnerID: ownerID, Quantity: delta}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "good_id"}, {Name: "owner_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("stocks.quantity + excluded.quantity"),
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&row).Error
}

// Decrement subtracts delta only while the row still holds at least delta
// units. It returns the number of rows touched.
func (r *Repository) Decrement(ctx context.Context, id uuid.UUID, delta int) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Stock{}).
		Where("id = ? AND quantity >= ?", id, delta).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", delta),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// DeleteByGood removes every stock row of a good.
func (r *Repository) DeleteByGood(ctx context.Context, goodID uuid.UUID) error {
	return r.DB(ctx).Where("good_id = ?", goodID).Delete(&models.Stock{}).Error
}
