package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/internal/repo"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
)

// Repository reads users provisioned by the identity service.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CountActive returns how many of ids belong to active users.
func (r *Repository) CountActive(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.User{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Count(&count).Error
	return count, err
}

// EnsureActive fails with NotFound naming the role of the first missing user.
func (r *Repository) EnsureActive(ctx context.Context, refs ...Ref) error {
	for _, ref := range refs {
		user, err := r.FindByID(ctx, ref.ID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, ref.Role+" not found").
					WithDetails(map[string]any{"field": ref.Role, "id": ref.ID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load "+ref.Role)
		}
		if !user.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, ref.Role+" not found").
				WithDetails(map[string]any{"field": ref.Role, "id": ref.ID})
		}
	}
	return nil
}

// Ref names a user reference in a request, for error reporting.
type Ref struct {
	Role string
	ID   uuid.UUID
}

// EnsureActiveIn runs EnsureActive on the caller's transaction.
func (r *Repository) EnsureActiveIn(ctx context.Context, tx *gorm.DB, refs ...Ref) error {
	return r.WithTx(tx).EnsureActive(ctx, refs...)
}
