package goods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/internal/repo"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	"github.com/angelmondragon/registro-bienes-backend/pkg/pagination"
)

// Repository persists catalog goods.
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

// FindByID loads a good without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Good, error) {
	var good models.Good
	if err := r.DB(ctx).First(&good, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &good, nil
}

// FindByIDForUpdate loads and locks a good.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Good, error) {
	var good models.Good
	err := r.ForUpdate(ctx).
		First(&good, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &good, nil
}

// FindByIdentity loads the good an owner holds for a normalized identity key.
func (r *Repository) FindByIdentity(ctx context.Context, identityKey string, ownerID uuid.UUID) (*models.Good, error) {
	var good models.Good
	err := r.DB(ctx).
		Where("identity_key = ? AND owner_id = ?", identityKey, ownerID).
		First(&good).Error
	if err != nil {
		return nil, err
	}
	return &good, nil
}

// Create inserts the good.
func (r *Repository) Create(ctx context.Context, good *models.Good) error {
	return r.DB(ctx).Create(good).Error
}

// Save persists every column of an existing good.
func (r *Repository) Save(ctx context.Context, good *models.Good) error {
	good.IdentityKey = models.GoodIdentityKey(good.Type, good.Brand, good.Model)
	return r.DB(ctx).Save(good).Error
}

// DetachHistory keeps transaction history readable after a good is removed.
func (r *Repository) DetachHistory(ctx context.Context, goodID uuid.UUID) error {
	items := r.DB(ctx).Model(&models.UniqueItem{}).Select("id").Where("good_id = ?", goodID)
	if err := r.DB(ctx).
		Model(&models.TransactionItem{}).
		Where("unique_item_id IN (?)", items).
		Update("unique_item_id", nil).Error; err != nil {
		return err
	}
	return r.DB(ctx).
		Model(&models.Transaction{}).
		Where("good_id = ?", goodID).
		Update("good_id", nil).Error
}

// Delete removes the good row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.Good{}, "id = ?", id).Error
}

// ListByOwner pages through an owner's goods, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Good, error) {
	var rows []models.Good
	err := r.DB(ctx).
		Where("owner_id = ?", ownerID).
		Scopes(pagination.Keyset("goods", cursor, limit)).
		Find(&rows).Error
	return rows, err
}
