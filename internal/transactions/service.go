package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/internal/goods"
	"github.com/angelmondragon/registro-bienes-backend/internal/stock"
	"github.com/angelmondragon/registro-bienes-backend/internal/uniqueitems"
	"github.com/angelmondragon/registro-bienes-backend/internal/users"
	"github.com/angelmondragon/registro-bienes-backend/pkg/auth"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/logger"
	"github.com/angelmondragon/registro-bienes-backend/pkg/metrics"
)

// Service records transfers of goods between users.
type Service interface {
	Purchase(ctx context.Context, actor auth.Actor, input Input) (*TransactionDTO, error)
	Sale(ctx context.Context, actor auth.Actor, input Input) (*TransactionDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransactionDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactionStore interface {
	Insert(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

type userDirectory interface {
	EnsureActiveIn(ctx context.Context, tx *gorm.DB, refs ...users.Ref) error
}

type goodCatalog interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, key goods.Key, attrs goods.Attrs, allowExisting bool) (*models.Good, bool, error)
	LoadForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Good, error)
}

type stockLedger interface {
	Adjust(ctx context.Context, tx *gorm.DB, goodID, ownerID uuid.UUID, delta int, op stock.Op) (*models.Stock, error)
}

type itemRegistry interface {
	IsSerialized(goodType string) bool
	Find(ctx context.Context, tx *gorm.DB, identifier string) (*uniqueitems.Lookup, error)
	ValidateOwnership(ctx context.Context, tx *gorm.DB, identifier string, ownerID uuid.UUID) error
	CreateOrReuse(ctx context.Context, tx *gorm.DB, identifier string, good *models.Good, attrs uniqueitems.Attrs) (*models.UniqueItem, bool, error)
	CreateSynthetic(ctx context.Context, tx *gorm.DB, good *models.Good, n int, attrs uniqueitems.Attrs) ([]models.UniqueItem, error)
	Reassign(ctx context.Context, tx *gorm.DB, identifier string, fromOwner uuid.UUID, good *models.Good) (*models.UniqueItem, error)
	MarkSold(ctx context.Context, tx *gorm.DB, identifier string, photo *string) (*models.UniqueItem, error)
	SellAvailable(ctx context.Context, tx *gorm.DB, goodID uuid.UUID, n int) ([]models.UniqueItem, error)
}

type service struct {
	store    transactionStore
	tx       txRunner
	users    userDirectory
	catalog  goodCatalog
	ledger   stockLedger
	registry itemRegistry
	metrics  *metrics.TransferMetrics
	logg     *logger.Logger
}

// NewService builds the transaction recorder. metrics and logg may be nil.
func NewService(
	store transactionStore,
	tx txRunner,
	users userDirectory,
	catalog goodCatalog,
	ledger stockLedger,
	registry itemRegistry,
	transferMetrics *metrics.TransferMetrics,
	logg *logger.Logger,
) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("transaction store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("good catalog required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if registry == nil {
		return nil, fmt.Errorf("unique item registry required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:    store,
		tx:       tx,
		users:    users,
		catalog:  catalog,
		ledger:   ledger,
		registry: registry,
		metrics:  transferMetrics,
		logg:     logg,
	}, nil
}

// transfer is the resolved shape of one unit of work.
type transfer struct {
	kind        enums.TransactionKind
	actor       auth.Actor
	input       Input
	identifiers []string
	sellerID    uuid.UUID
	buyerID     uuid.UUID
}

// owner is the party whose good and stock the transfer touches.
func (t transfer) owner() uuid.UUID {
	if t.kind == enums.TransactionKindPurchase {
		return t.buyerID
	}
	return t.sellerID
}

// Purchase records the actor buying from input.CounterpartyID.
func (s *service) Purchase(ctx context.Context, actor auth.Actor, input Input) (*TransactionDTO, error) {
	return s.record(ctx, transfer{
		kind:     enums.TransactionKindPurchase,
		actor:    actor,
		input:    input,
		buyerID:  actor.UserID,
		sellerID: input.CounterpartyID,
	})
}

// Sale records the actor selling to input.CounterpartyID.
func (s *service) Sale(ctx context.Context, actor auth.Actor, input Input) (*TransactionDTO, error) {
	return s.record(ctx, transfer{
		kind:     enums.TransactionKindSale,
		actor:    actor,
		input:    input,
		sellerID: actor.UserID,
		buyerID:  input.CounterpartyID,
	})
}

func (s *service) record(ctx context.Context, t transfer) (dto *TransactionDTO, err error) {
	start := time.Now()
	defer func() {
		s.metrics.Observe(t.kind.String(), outcomeOf(err), t.input.Quantity, time.Since(start))
	}()

	if err := s.validate(&t); err != nil {
		return nil, err
	}

	var (
		txn     *models.Transaction
		created bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.EnsureActiveIn(ctx, tx,
			users.Ref{Role: "comprador", ID: t.buyerID},
			users.Ref{Role: "vendedor", ID: t.sellerID},
		); err != nil {
			return err
		}

		good, isNew, err := s.resolveGood(ctx, tx, t)
		if err != nil {
			return err
		}
		created = isNew
		if err := requirePrice(t, good, isNew); err != nil {
			return err
		}

		serialized := s.registry.IsSerialized(good.Type)
		if err := checkIdentifiers(serialized, t); err != nil {
			return err
		}

		if err := s.resolveStock(ctx, tx, t, good); err != nil {
			return err
		}

		items, err := s.resolveItems(ctx, tx, t, good, serialized)
		if err != nil {
			return err
		}

		txn = buildTransaction(t, good, items)
		if err := s.store.Insert(ctx, tx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert transaction")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
		}
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txn.ID,
		"kind":           txn.Kind,
		"bien_id":        txn.GoodID,
		"quantity":       txn.Quantity,
	})
	s.logg.Info(logCtx, "transfer.recorded")

	dto = NewTransactionDTO(txn)
	dto.GoodCreated = &created
	return dto, nil
}

func (s *service) validate(t *transfer) error {
	in := t.input
	if in.Quantity <= 0 {
		return fieldError("quantity must be greater than zero", "cantidad")
	}
	if in.Price != nil && in.Price.IsNegative() {
		return fieldError("price cannot be negative", "precio")
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return fieldError("amount cannot be negative", "monto")
	}
	if !in.PaymentMethod.IsValid() {
		return fieldError("invalid payment method", "metodo_pago")
	}
	if t.actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated user required")
	}
	if in.CounterpartyID == uuid.Nil {
		field := "vendedor_id"
		if t.kind == enums.TransactionKindSale {
			field = "comprador_id"
		}
		return fieldError("counterparty is required", field)
	}
	if t.buyerID == t.sellerID {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller must differ").
			WithDetails(map[string]any{"comprador_id": t.buyerID, "vendedor_id": t.sellerID})
	}
	if in.GoodID == nil && t.kind == enums.TransactionKindSale && in.Type == "" {
		return fieldError("bien_id or good identity is required", "bien_id")
	}

	identifiers, err := uniqueitems.NormalizeIdentifiers(in.Identifiers)
	if err != nil {
		return err
	}
	t.identifiers = identifiers
	return nil
}

// resolveGood is step one: the good the transfer moves, owned by the side
// whose stock changes.
func (s *service) resolveGood(ctx context.Context, tx *gorm.DB, t transfer) (*models.Good, bool, error) {
	in := t.input
	if in.GoodID != nil {
		good, err := s.catalog.LoadForUpdate(ctx, tx, *in.GoodID)
		if err != nil {
			return nil, false, err
		}
		if good.OwnerID != t.owner() {
			return nil, false, pkgerrors.New(pkgerrors.CodeForbidden, "good belongs to another owner").
				WithDetails(map[string]any{"bien_id": good.ID})
		}
		return good, false, nil
	}

	price := decimal.Zero
	if in.Price != nil {
		price = *in.Price
	}
	return s.catalog.FindOrCreate(ctx, tx,
		goods.Key{Type: in.Type, Brand: in.Brand, Model: in.Model, OwnerID: t.owner()},
		goods.Attrs{
			Description:    in.Description,
			Price:          price,
			Photos:         in.Photos,
			RegisteredByID: t.actor.UserID,
		},
		in.allowExisting(),
	)
}

// requirePrice rejects transfers that would be recorded at zero value: a new
// good has no catalog price to fall back to, and a zero-priced one needs an
// explicit precio or monto.
func requirePrice(t transfer, good *models.Good, isNew bool) error {
	in := t.input
	if in.Price != nil {
		return nil
	}
	if isNew || (good.Price.IsZero() && in.Amount == nil) {
		return fieldError("price is required", "precio")
	}
	return nil
}

func checkIdentifiers(serialized bool, t transfer) error {
	if serialized && len(t.identifiers) != t.input.Quantity {
		return pkgerrors.New(pkgerrors.CodeValidation, "identifier count must match quantity").
			WithDetails(map[string]any{"cantidad": t.input.Quantity, "imeis": len(t.identifiers)})
	}
	if !serialized && len(t.identifiers) > 0 {
		return fieldError("identifiers are only accepted for serialized goods", "imeis")
	}
	return nil
}

// resolveStock is step two.
func (s *service) resolveStock(ctx context.Context, tx *gorm.DB, t transfer, good *models.Good) error {
	op := stock.OpIncrement
	if t.kind == enums.TransactionKindSale {
		op = stock.OpDecrement
	}
	_, err := s.ledger.Adjust(ctx, tx, good.ID, good.OwnerID, t.input.Quantity, op)
	return err
}

// resolveItems is step three. It returns the unique items the transfer moved.
func (s *service) resolveItems(ctx context.Context, tx *gorm.DB, t transfer, good *models.Good, serialized bool) ([]models.UniqueItem, error) {
	n := t.input.Quantity
	if !serialized {
		if t.kind == enums.TransactionKindSale {
			return s.registry.SellAvailable(ctx, tx, good.ID, n)
		}
		return s.registry.CreateSynthetic(ctx, tx, good, n, uniqueitems.Attrs{Price: nullPrice(t.input.Price)})
	}

	items := make([]models.UniqueItem, 0, n)
	for _, identifier := range t.identifiers {
		var (
			item *models.UniqueItem
			err  error
		)
		if t.kind == enums.TransactionKindSale {
			item, err = s.sellIdentifier(ctx, tx, identifier, good)
		} else {
			item, err = s.buyIdentifier(ctx, tx, identifier, good, t)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// buyIdentifier registers an identifier for the buyer: new identifiers are
// created and ones the declared seller has sold move to the buyer's good.
// An identifier the buyer already holds cannot be bought again, since the
// stock increment would have no unit behind it.
func (s *service) buyIdentifier(ctx context.Context, tx *gorm.DB, identifier string, good *models.Good, t transfer) (*models.UniqueItem, error) {
	found, err := s.registry.Find(ctx, tx, identifier)
	if err != nil {
		return nil, err
	}
	if found != nil && found.OwnerID == t.sellerID && found.Item.Status == enums.UniqueItemStatusSold {
		return s.registry.Reassign(ctx, tx, identifier, t.sellerID, good)
	}
	if err := s.registry.ValidateOwnership(ctx, tx, identifier, t.buyerID); err != nil {
		return nil, err
	}
	if found != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "identifier already held by buyer").
			WithDetails(map[string]any{"identificador": identifier, "bien_id": found.Item.GoodID})
	}
	item, _, err := s.registry.CreateOrReuse(ctx, tx, identifier, good, uniqueitems.Attrs{Price: nullPrice(t.input.Price)})
	return item, err
}

func (s *service) sellIdentifier(ctx context.Context, tx *gorm.DB, identifier string, good *models.Good) (*models.UniqueItem, error) {
	found, err := s.registry.Find(ctx, tx, identifier)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identifier not registered").
			WithDetails(map[string]any{"identificador": identifier})
	}
	if found.Item.GoodID != good.ID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "identifier does not belong to this good").
			WithDetails(map[string]any{
				"identificador": identifier,
				"bien_id":       found.Item.GoodID,
				"estado":        found.Item.Status,
			})
	}
	return s.registry.MarkSold(ctx, tx, identifier, nil)
}

// buildTransaction is step four.
func buildTransaction(t transfer, good *models.Good, items []models.UniqueItem) *models.Transaction {
	in := t.input
	unitPrice := good.Price
	if in.Price != nil {
		unitPrice = *in.Price
	}
	amount := unitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
	if in.Amount != nil {
		amount = *in.Amount
	}
	photos := in.Photos
	if len(photos) == 0 {
		photos = good.Photos
	}

	goodID := good.ID
	txn := &models.Transaction{
		Kind:           t.kind,
		GoodID:         &goodID,
		SellerID:       t.sellerID,
		BuyerID:        t.buyerID,
		RegisteredByID: t.actor.UserID,
		PaymentMethod:  in.PaymentMethod,
		Quantity:       in.Quantity,
		UnitPrice:      unitPrice,
		Amount:         amount,
		Photos:         photos,
		Items:          make([]models.TransactionItem, 0, len(items)),
	}
	for _, item := range items {
		itemID := item.ID
		txn.Items = append(txn.Items, models.TransactionItem{
			UniqueItemID: &itemID,
			Identifier:   item.Identifier,
		})
	}
	return txn
}

// Get returns a transaction to one of its parties or an admin.
func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransactionDTO, error) {
	txn, err := s.store.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found").
				WithDetails(map[string]any{"transaccion_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load transaction")
	}
	if !actor.IsAdmin() && actor.UserID != txn.BuyerID && actor.UserID != txn.SellerID && actor.UserID != txn.RegisteredByID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to other users")
	}
	return NewTransactionDTO(txn), nil
}

func nullPrice(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*p)
}

func fieldError(msg, field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).
		WithDetails(map[string]any{"field": field})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case pkgerrors.CodeOf(err).Internal():
		return metrics.OutcomeFailure
	default:
		return metrics.OutcomeRejected
	}
}
