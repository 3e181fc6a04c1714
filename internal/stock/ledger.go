package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
)

// Op selects the direction of a stock adjustment.
type Op string

const (
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
)

// Ledger keeps per-owner quantities non-negative.
type Ledger struct {
	repo *Repository
}

// NewLedger constructs a stock ledger.
func NewLedger(repo *Repository) (*Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &Ledger{repo: repo}, nil
}

// Adjust applies delta on the caller's transaction. Decrements that would go
// below zero fail with INSUFFICIENT_STOCK and leave the row untouched.
func (l *Ledger) Adjust(ctx context.Context, tx *gorm.DB, goodID, ownerID uuid.UUID, delta int, op Op) (*models.Stock, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock adjustment requires a transaction")
	}
	if delta <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithDetails(map[string]any{"cantidad": delta})
	}

	txRepo := l.repo.WithTx(tx)
	switch op {
	case OpIncrement:
		if err := txRepo.Increment(ctx, goodID, ownerID, delta); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: increment stock")
		}
	case OpDecrement:
		row, err := txRepo.FindForUpdate(ctx, goodID, ownerID)
		if err != nil && !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock stock")
		}
		available := 0
		if row != nil {
			available = row.Quantity
		}
		if row == nil || available < delta {
			return nil, insufficient(goodID, available, delta)
		}
		affected, err := txRepo.Decrement(ctx, row.ID, delta)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
		}
		if affected == 0 {
			return nil, insufficient(goodID, available, delta)
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown stock operation %q", op))
	}

	row, err := txRepo.Find(ctx, goodID, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload stock")
	}
	return row, nil
}

// Get returns the quantity held by owner, zero when no row exists.
func (l *Ledger) Get(ctx context.Context, goodID, ownerID uuid.UUID) (int, error) {
	row, err := l.repo.Find(ctx, goodID, ownerID)
	if err != nil {
		if db.IsNotFound(err) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock")
	}
	return row.Quantity, nil
}

// DeleteByGood removes stock rows on the caller's transaction.
func (l *Ledger) DeleteByGood(ctx context.Context, tx *gorm.DB, goodID uuid.UUID) error {
	if err := l.repo.WithTx(tx).DeleteByGood(ctx, goodID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete stock")
	}
	return nil
}

func insufficient(goodID uuid.UUID, available, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"bien_id":    goodID,
			"disponible": available,
			"solicitado": requested,
		})
}
