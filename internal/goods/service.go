package goods

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/internal/stock"
	"github.com/angelmondragon/registro-bienes-backend/internal/uniqueitems"
	"github.com/angelmondragon/registro-bienes-backend/internal/users"
	"github.com/angelmondragon/registro-bienes-backend/pkg/auth"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/pagination"
)

// Service exposes the good catalog.
type Service interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, key Key, attrs Attrs, allowExisting bool) (*models.Good, bool, error)
	LoadForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Good, error)
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*GoodDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*GoodDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*GoodDTO, error)
	List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	Stock(ctx context.Context, actor auth.Actor, id uuid.UUID, ownerID *uuid.UUID) (int, error)
	Items(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]UniqueItemDTO, error)
}

type userDirectory interface {
	EnsureActiveIn(ctx context.Context, tx *gorm.DB, refs ...users.Ref) error
}

type stockLedger interface {
	Adjust(ctx context.Context, tx *gorm.DB, goodID, ownerID uuid.UUID, delta int, op stock.Op) (*models.Stock, error)
	Get(ctx context.Context, goodID, ownerID uuid.UUID) (int, error)
	DeleteByGood(ctx context.Context, tx *gorm.DB, goodID uuid.UUID) error
}

type itemRegistry interface {
	IsSerialized(goodType string) bool
	ValidateOwnership(ctx context.Context, tx *gorm.DB, identifier string, ownerID uuid.UUID) error
	CreateOrReuse(ctx context.Context, tx *gorm.DB, identifier string, good *models.Good, attrs uniqueitems.Attrs) (*models.UniqueItem, bool, error)
	CreateSynthetic(ctx context.Context, tx *gorm.DB, good *models.Good, n int, attrs uniqueitems.Attrs) ([]models.UniqueItem, error)
	ListByGood(ctx context.Context, goodID uuid.UUID) ([]models.UniqueItem, error)
	DeleteByGood(ctx context.Context, tx *gorm.DB, goodID uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient db.TxRunner
	users    userDirectory
	ledger   stockLedger
	registry itemRegistry
}

// NewService constructs the catalog service.
func NewService(repo *Repository, dbClient db.TxRunner, users userDirectory, ledger stockLedger, registry itemRegistry) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("goods repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if registry == nil {
		return nil, fmt.Errorf("unique item registry required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		users:    users,
		ledger:   ledger,
		registry: registry,
	}, nil
}

// FindOrCreate resolves the good identified by key on the caller's
// transaction. An existing good is returned only when allowExisting is set;
// otherwise it is a CONFLICT.
func (s *service) FindOrCreate(ctx context.Context, tx *gorm.DB, key Key, attrs Attrs, allowExisting bool) (*models.Good, bool, error) {
	if tx == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeInternal, "find-or-create requires a transaction")
	}
	key, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}
	if attrs.Price.IsNegative() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative").
			WithDetails(map[string]any{"field": "precio"})
	}

	txRepo := s.repo.WithTx(tx)
	identity := models.GoodIdentityKey(key.Type, key.Brand, key.Model)

	existing, err := txRepo.FindByIdentity(ctx, identity, key.OwnerID)
	switch {
	case err == nil:
		if !allowExisting {
			return nil, false, duplicateGood(existing)
		}
		return existing, false, nil
	case !db.IsNotFound(err):
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find good")
	}

	good := &models.Good{
		Type:           key.Type,
		Brand:          key.Brand,
		Model:          key.Model,
		OwnerID:        key.OwnerID,
		RegisteredByID: attrs.RegisteredByID,
		Description:    attrs.Description,
		Price:          attrs.Price,
		Photos:         attrs.Photos,
	}
	if good.RegisteredByID == uuid.Nil {
		good.RegisteredByID = key.OwnerID
	}
	if err := txRepo.Create(ctx, good); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "good already registered for owner").
				WithDetails(map[string]any{"tipo": key.Type, "marca": key.Brand, "modelo": key.Model})
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert good")
	}
	return good, true, nil
}

// LoadForUpdate locks a good on the caller's transaction.
func (s *service) LoadForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Good, error) {
	good, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, notFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load good")
	}
	return good, nil
}

// Create registers a good, optionally seeding stock and unique items in the
// same unit of work.
func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*GoodDTO, error) {
	if input.Key.OwnerID == uuid.Nil {
		input.Key.OwnerID = actor.UserID
	}
	if !actor.CanManage(input.Key.OwnerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot register goods for another owner")
	}
	input.Attrs.RegisteredByID = actor.UserID

	identifiers, err := uniqueitems.NormalizeIdentifiers(input.Identifiers)
	if err != nil {
		return nil, err
	}
	quantity := input.Quantity
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative").
			WithDetails(map[string]any{"field": "cantidad"})
	}
	if quantity == 0 {
		quantity = len(identifiers)
	}
	serialized := s.registry.IsSerialized(input.Key.Type)
	if serialized && len(identifiers) != quantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier count must match quantity").
			WithDetails(map[string]any{"cantidad": quantity, "imeis": len(identifiers)})
	}
	if !serialized && len(identifiers) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifiers are only accepted for serialized goods").
			WithDetails(map[string]any{"field": "imeis", "tipo": input.Key.Type})
	}

	var (
		good    *models.Good
		created bool
	)
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.EnsureActiveIn(ctx, tx, users.Ref{Role: "propietario", ID: input.Key.OwnerID}); err != nil {
			return err
		}

		var err error
		good, created, err = s.FindOrCreate(ctx, tx, input.Key, input.Attrs, input.Override)
		if err != nil {
			return err
		}
		if quantity == 0 {
			return nil
		}

		attrs := uniqueitems.Attrs{Price: decimal.NewNullDecimal(good.Price)}
		if !serialized {
			if _, err := s.ledger.Adjust(ctx, tx, good.ID, good.OwnerID, quantity, stock.OpIncrement); err != nil {
				return err
			}
			_, err := s.registry.CreateSynthetic(ctx, tx, good, quantity, attrs)
			return err
		}

		// Identifiers the owner already holds are reused and already counted.
		added := 0
		for _, identifier := range identifiers {
			if err := s.registry.ValidateOwnership(ctx, tx, identifier, good.OwnerID); err != nil {
				return err
			}
			_, isNew, err := s.registry.CreateOrReuse(ctx, tx, identifier, good, attrs)
			if err != nil {
				return err
			}
			if isNew {
				added++
			}
		}
		if added == 0 {
			return nil
		}
		_, err = s.ledger.Adjust(ctx, tx, good.ID, good.OwnerID, added, stock.OpIncrement)
		return err
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create good")
	}

	dto := NewGoodDTO(good)
	dto.Created = &created
	if qty, err := s.ledger.Get(ctx, good.ID, good.OwnerID); err == nil {
		dto.Stock = &qty
	}
	return dto, nil
}

// Update merges the provided fields into a good owned by the actor.
func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*GoodDTO, error) {
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative").
			WithDetails(map[string]any{"field": "precio"})
	}

	var good *models.Good
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		good, err = s.LoadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(good.OwnerID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "good belongs to another owner")
		}

		if err := applyUpdate(good, input); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Save(ctx, good); err != nil {
			if db.IsUniqueViolation(err) {
				return duplicateGood(good)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update good")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update good")
	}
	return NewGoodDTO(good), nil
}

func applyUpdate(good *models.Good, input UpdateInput) error {
	for field, value := range map[string]*string{"tipo": input.Type, "marca": input.Brand, "modelo": input.Model} {
		if value != nil && strings.TrimSpace(*value) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" cannot be empty").
				WithDetails(map[string]any{"field": field})
		}
	}
	if input.Type != nil {
		good.Type = strings.ToLower(strings.TrimSpace(*input.Type))
	}
	if input.Brand != nil {
		good.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Model != nil {
		good.Model = strings.TrimSpace(*input.Model)
	}
	if input.Description != nil {
		good.Description = input.Description
	}
	if input.Price != nil {
		good.Price = *input.Price
	}
	if input.KeepPhotos != nil || len(input.NewPhotos) > 0 {
		good.Photos = mergePhotos(good.Photos, input.KeepPhotos, input.NewPhotos)
	}
	return nil
}

// Get returns a good with the actor's stock of it.
func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*GoodDTO, error) {
	good, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewGoodDTO(good)
	qty, err := s.ledger.Get(ctx, good.ID, good.OwnerID)
	if err != nil {
		return nil, err
	}
	if actor.CanManage(good.OwnerID) {
		dto.Stock = &qty
	}
	return dto, nil
}

// List pages through the goods of an owner.
func (s *service) List(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*ListResult, error) {
	cursor, err := params.Decode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list goods")
	}
	page, next := pagination.Trim(rows, params.Limit, func(g models.Good) pagination.Cursor {
		return pagination.Cursor{CreatedAt: g.CreatedAt, ID: g.ID}
	})

	result := &ListResult{Items: make([]GoodDTO, 0, len(page)), NextCursor: next}
	for i := range page {
		result.Items = append(result.Items, *NewGoodDTO(&page[i]))
	}
	return result, nil
}

// Delete removes a good and its stock and unique items. Transactions survive
// with their good reference cleared. Admin only.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.LoadForUpdate(ctx, tx, id); err != nil {
			return err
		}
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DetachHistory(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: detach transactions")
		}
		if err := s.registry.DeleteByGood(ctx, tx, id); err != nil {
			return err
		}
		if err := s.ledger.DeleteByGood(ctx, tx, id); err != nil {
			return err
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete good")
		}
		return nil
	})
	if err != nil && pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete good")
	}
	return err
}

// Stock returns the quantity an owner holds of a good. Non-admins may only
// read their own stock.
func (s *service) Stock(ctx context.Context, actor auth.Actor, id uuid.UUID, ownerID *uuid.UUID) (int, error) {
	owner := actor.UserID
	if ownerID != nil {
		owner = *ownerID
	}
	if !actor.CanManage(owner) {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another owner's stock")
	}
	if _, err := s.load(ctx, id); err != nil {
		return 0, err
	}
	return s.ledger.Get(ctx, id, owner)
}

// Items lists the unique items of a good the actor can manage.
func (s *service) Items(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]UniqueItemDTO, error) {
	good, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(good.OwnerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "good belongs to another owner")
	}
	items, err := s.registry.ListByGood(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]UniqueItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, NewUniqueItemDTO(item))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Good, error) {
	good, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, notFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load good")
	}
	return good, nil
}

func normalizeKey(key Key) (Key, error) {
	key.Type = strings.ToLower(strings.TrimSpace(key.Type))
	key.Brand = strings.TrimSpace(key.Brand)
	key.Model = strings.TrimSpace(key.Model)
	missing := []string{}
	if key.Type == "" {
		missing = append(missing, "tipo")
	}
	if key.Brand == "" {
		missing = append(missing, "marca")
	}
	if key.Model == "" {
		missing = append(missing, "modelo")
	}
	if key.OwnerID == uuid.Nil {
		missing = append(missing, "propietario_id")
	}
	if len(missing) > 0 {
		return key, pkgerrors.New(pkgerrors.CodeValidation, "good identity is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return key, nil
}

func duplicateGood(g *models.Good) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "good already registered for owner").
		WithDetails(map[string]any{
			"bien_id": g.ID,
			"tipo":    g.Type,
			"marca":   g.Brand,
			"modelo":  g.Model,
		})
}

func notFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "good not found").
		WithDetails(map[string]any{"bien_id": id})
}
