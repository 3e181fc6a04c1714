package traceability

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/registro-bienes-backend/internal/goods"
	"github.com/angelmondragon/registro-bienes-backend/internal/transactions"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/pagination"
)

// Service answers ownership history queries. It never writes.
type Service interface {
	ByGood(ctx context.Context, goodID uuid.UUID, params pagination.Params) (*GoodHistory, error)
	ByIdentifier(ctx context.Context, identifier string, params pagination.Params) (*IdentifierHistory, error)
}

// GoodHistory is the transaction history of a good.
type GoodHistory struct {
	Good         *goods.GoodDTO                `json:"bien"`
	Transactions []transactions.TransactionDTO `json:"transacciones"`
	NextCursor   string                        `json:"next_cursor,omitempty"`
}

// IdentifierHistory is the transaction history of one IMEI or serial.
type IdentifierHistory struct {
	Identifier     string                        `json:"identificador"`
	Status         string                        `json:"estado"`
	CurrentGoodID  uuid.UUID                     `json:"bien_id"`
	CurrentOwnerID *uuid.UUID                    `json:"propietario_id,omitempty"`
	Transactions   []transactions.TransactionDTO `json:"transacciones"`
	NextCursor     string                        `json:"next_cursor,omitempty"`
}

type historyReader interface {
	FindGood(ctx context.Context, id uuid.UUID) (*models.Good, error)
	FindItem(ctx context.Context, identifier string) (*models.UniqueItem, error)
	ListByGood(ctx context.Context, goodID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Transaction, error)
	ListByIdentifier(ctx context.Context, identifier string, cursor *pagination.Cursor, limit int) ([]models.Transaction, error)
}

type service struct {
	repo historyReader
}

// NewService builds the traceability reader.
func NewService(repo historyReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("traceability repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ByGood(ctx context.Context, goodID uuid.UUID, params pagination.Params) (*GoodHistory, error) {
	cursor, err := decodeCursor(params)
	if err != nil {
		return nil, err
	}
	good, err := s.repo.FindGood(ctx, goodID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "good not found").
				WithDetails(map[string]any{"bien_id": goodID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load good")
	}

	rows, err := s.repo.ListByGood(ctx, goodID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list good history")
	}
	page, next := trim(rows, params.Limit)
	return &GoodHistory{
		Good:         goods.NewGoodDTO(good),
		Transactions: page,
		NextCursor:   next,
	}, nil
}

func (s *service) ByIdentifier(ctx context.Context, identifier string, params pagination.Params) (*IdentifierHistory, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier is required").
			WithDetails(map[string]any{"field": "identificador"})
	}
	cursor, err := decodeCursor(params)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindItem(ctx, identifier)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "identifier not registered").
				WithDetails(map[string]any{"identificador": identifier})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load unique item")
	}

	rows, err := s.repo.ListByIdentifier(ctx, identifier, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list identifier history")
	}
	page, next := trim(rows, params.Limit)

	history := &IdentifierHistory{
		Identifier:    item.Identifier,
		Status:        item.Status.String(),
		CurrentGoodID: item.GoodID,
		Transactions:  page,
		NextCursor:    next,
	}
	if item.Good != nil {
		owner := item.Good.OwnerID
		history.CurrentOwnerID = &owner
	}
	return history, nil
}

func decodeCursor(params pagination.Params) (*pagination.Cursor, error) {
	cursor, err := params.Decode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
			WithDetails(map[string]any{"field": "cursor"})
	}
	return cursor, nil
}

func trim(rows []models.Transaction, limit int) ([]transactions.TransactionDTO, string) {
	page, next := pagination.Trim(rows, limit, func(t models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	out := make([]transactions.TransactionDTO, 0, len(page))
	for i := range page {
		out = append(out, *transactions.NewTransactionDTO(&page[i]))
	}
	return out, next
}
