package uniqueitems

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
)

// Attrs are the optional per-unit attributes captured at registration.
type Attrs struct {
	Photo *string
	Price decimal.NullDecimal
}

// Registry enforces global uniqueness of identifiers and their
// available -> sold lifecycle. Every mutating call runs on the caller's
// transaction.
type Registry struct {
	repo       *Repository
	serialized map[string]struct{}
}

// NewRegistry constructs a registry. serializedTypes lists the good types that
// require caller-supplied identifiers (IMEI, serial).
func NewRegistry(repo *Repository, serializedTypes []string) (*Registry, error) {
	if repo == nil {
		return nil, fmt.Errorf("unique item repository required")
	}
	serialized := make(map[string]struct{}, len(serializedTypes))
	for _, t := range serializedTypes {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			serialized[t] = struct{}{}
		}
	}
	return &Registry{repo: repo, serialized: serialized}, nil
}

// IsSerialized reports whether goods of this type carry their own serials.
func (r *Registry) IsSerialized(goodType string) bool {
	_, ok := r.serialized[strings.ToLower(strings.TrimSpace(goodType))]
	return ok
}

// Lookup is an item plus the owner of its good.
type Lookup struct {
	Item    *models.UniqueItem
	OwnerID uuid.UUID
}

// Find locks an item by identifier. It returns nil when the identifier is
// unknown.
func (r *Registry) Find(ctx context.Context, tx *gorm.DB, identifier string) (*Lookup, error) {
	txRepo := r.repo.WithTx(tx)
	item, err := txRepo.FindForUpdate(ctx, identifier)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load unique item")
	}
	owner, err := txRepo.OwnerOf(ctx, item.GoodID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load unique item owner")
	}
	return &Lookup{Item: item, OwnerID: owner}, nil
}

// ValidateOwnership fails with CONFLICT when identifier is registered under a
// good owned by someone other than ownerID.
func (r *Registry) ValidateOwnership(ctx context.Context, tx *gorm.DB, identifier string, ownerID uuid.UUID) error {
	found, err := r.Find(ctx, tx, identifier)
	if err != nil || found == nil {
		return err
	}
	if found.OwnerID != ownerID {
		return conflict("identifier already registered to another owner", found.Item)
	}
	return nil
}

// CreateOrReuse registers identifier under good. Re-registering an identifier
// the same owner already holds returns the existing item unchanged.
func (r *Registry) CreateOrReuse(ctx context.Context, tx *gorm.DB, identifier string, good *models.Good, attrs Attrs) (*models.UniqueItem, bool, error) {
	return r.createOrReuse(ctx, tx, identifier, good, attrs, false)
}

func (r *Registry) createOrReuse(ctx context.Context, tx *gorm.DB, identifier string, good *models.Good, attrs Attrs, synthetic bool) (*models.UniqueItem, bool, error) {
	if good == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeInternal, "unique item requires a good")
	}
	found, err := r.Find(ctx, tx, identifier)
	if err != nil {
		return nil, false, err
	}
	if found != nil {
		if found.OwnerID != good.OwnerID {
			return nil, false, conflict("identifier already registered to another owner", found.Item)
		}
		return found.Item, false, nil
	}

	item := &models.UniqueItem{
		GoodID:     good.ID,
		Identifier: identifier,
		Status:     enums.UniqueItemStatusAvailable,
		Synthetic:  synthetic,
		Photo:      attrs.Photo,
		Price:      attrs.Price,
	}
	if err := r.repo.WithTx(tx).Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "identifier already registered").
				WithDetails(map[string]any{"identificador": identifier})
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert unique item")
	}
	return item, true, nil
}

// CreateSynthetic registers n generated identifiers for a non-serialized good.
func (r *Registry) CreateSynthetic(ctx context.Context, tx *gorm.DB, good *models.Good, n int, attrs Attrs) ([]models.UniqueItem, error) {
	items := make([]models.UniqueItem, 0, n)
	for _, identifier := range GenerateSynthetic(good.ID, n) {
		item, _, err := r.createOrReuse(ctx, tx, identifier, good, attrs, true)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// MarkSold transitions an available item to sold, replacing its photo when one
// is given.
func (r *Registry) MarkSold(ctx context.Context, tx *gorm.DB, identifier string, photo *string) (*models.UniqueItem, error) {
	found, err := r.Find(ctx, tx, identifier)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identifier not registered").
			WithDetails(map[string]any{"identificador": identifier})
	}
	if err := r.markSold(ctx, tx, found.Item, photo); err != nil {
		return nil, err
	}
	return found.Item, nil
}

func (r *Registry) markSold(ctx context.Context, tx *gorm.DB, item *models.UniqueItem, photo *string) error {
	if item.Status != enums.UniqueItemStatusAvailable {
		return conflict("identifier already sold", item)
	}
	affected, err := r.repo.WithTx(tx).Transition(ctx, item.ID, enums.UniqueItemStatusAvailable, enums.UniqueItemStatusSold, photo)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark unique item sold")
	}
	if affected == 0 {
		return conflict("identifier already sold", item)
	}
	item.Status = enums.UniqueItemStatusSold
	if photo != nil {
		item.Photo = photo
	}
	return nil
}

// Reassign moves a sold identifier from fromOwner to good. It is the only way
// an identifier changes hands and requires the previous owner to have sold it.
func (r *Registry) Reassign(ctx context.Context, tx *gorm.DB, identifier string, fromOwner uuid.UUID, good *models.Good) (*models.UniqueItem, error) {
	found, err := r.Find(ctx, tx, identifier)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identifier not registered").
			WithDetails(map[string]any{"identificador": identifier})
	}
	if found.OwnerID != fromOwner {
		return nil, conflict("identifier is not held by the seller", found.Item)
	}
	if found.Item.Status != enums.UniqueItemStatusSold {
		return nil, conflict("identifier has not been sold by its owner", found.Item)
	}
	affected, err := r.repo.WithTx(tx).MoveToGood(ctx, found.Item.ID, good.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reassign unique item")
	}
	if affected == 0 {
		return nil, conflict("identifier changed concurrently", found.Item)
	}
	found.Item.GoodID = good.ID
	found.Item.Status = enums.UniqueItemStatusAvailable
	return found.Item, nil
}

// SellAvailable marks the n oldest available items of a good as sold.
func (r *Registry) SellAvailable(ctx context.Context, tx *gorm.DB, goodID uuid.UUID, n int) ([]models.UniqueItem, error) {
	items, err := r.repo.WithTx(tx).OldestAvailable(ctx, goodID, n)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load available items")
	}
	if len(items) < n {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough available units").
			WithDetails(map[string]any{"bien_id": goodID, "disponible": len(items), "solicitado": n})
	}
	for i := range items {
		if err := r.markSold(ctx, tx, &items[i], nil); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// ListByGood returns the items registered under a good.
func (r *Registry) ListByGood(ctx context.Context, goodID uuid.UUID) ([]models.UniqueItem, error) {
	items, err := r.repo.ListByGood(ctx, goodID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list unique items")
	}
	return items, nil
}

// DeleteByGood removes the items of a good on the caller's transaction.
func (r *Registry) DeleteByGood(ctx context.Context, tx *gorm.DB, goodID uuid.UUID) error {
	if err := r.repo.WithTx(tx).DeleteByGood(ctx, goodID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete unique items")
	}
	return nil
}

func conflict(msg string, item *models.UniqueItem) error {
	return pkgerrors.New(pkgerrors.CodeConflict, msg).
		WithDetails(map[string]any{
			"identificador": item.Identifier,
			"bien_id":       item.GoodID,
			"estado":        item.Status,
		})
}
