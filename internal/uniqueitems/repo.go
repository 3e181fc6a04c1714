package uniqueitems

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/internal/repo"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
)

// Repository persists unique items.
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

// FindForUpdate locks the item row by identifier.
func (r *Repository) FindForUpdate(ctx context.Context, identifier string) (*models.UniqueItem, error) {
	var item models.UniqueItem
	err := r.ForUpdate(ctx).
		Where("identifier = ?", identifier).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// OwnerOf returns the owner of the good an item belongs to.
func (r *Repository) OwnerOf(ctx context.Context, goodID uuid.UUID) (uuid.UUID, error) {
	var good models.Good
	err := r.DB(ctx).
		Select("id", "owner_id").
		Where("id = ?", goodID).
		First(&good).Error
	return good.OwnerID, err
}

// Create inserts a new item.
func (r *Repository) Create(ctx context.Context, item *models.UniqueItem) error {
	return r.DB(ctx).Create(item).Error
}

// Transition moves an item from one status to another, optionally replacing
// its photo. The update only applies while the item is still in from.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.UniqueItemStatus, photo *string) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if photo != nil {
		updates["photo"] = *photo
	}
	res := r.DB(ctx).
		Model(&models.UniqueItem{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// MoveToGood re-parents a sold item and makes it available again.
func (r *Repository) MoveToGood(ctx context.Context, id, goodID uuid.UUID) (int64, error) {
	res := r.DB(ctx).
		Model(&models.UniqueItem{}).
		Where("id = ? AND status = ?", id, enums.UniqueItemStatusSold).
		Updates(map[string]any{
			"good_id":    goodID,
			"status":     enums.UniqueItemStatusAvailable,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// OldestAvailable locks up to n available items of a good, oldest first.
func (r *Repository) OldestAvailable(ctx context.Context, goodID uuid.UUID, n int) ([]models.UniqueItem, error) {
	var items []models.UniqueItem
	err := r.ForUpdate(ctx).
		Where("good_id = ? AND status = ?", goodID, enums.UniqueItemStatusAvailable).
		Order("created_at ASC").
		Order("id ASC").
		Limit(n).
		Find(&items).Error
	return items, err
}

// ListByGood returns the items of a good ordered by registration.
func (r *Repository) ListByGood(ctx context.Context, goodID uuid.UUID) ([]models.UniqueItem, error) {
	var items []models.UniqueItem
	err := r.DB(ctx).
		Where("good_id = ?", goodID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// DeleteByGood removes every item of a good.
func (r *Repository) DeleteByGood(ctx context.Context, goodID uuid.UUID) error {
	return r.DB(ctx).Where("good_id = ?", goodID).Delete(&models.UniqueItem{}).Error
}
