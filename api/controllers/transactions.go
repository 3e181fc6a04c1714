package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/registro-bienes-backend/api/responses"
	"github.com/angelmondragon/registro-bienes-backend/api/validators"
	"github.com/angelmondragon/registro-bienes-backend/internal/transactions"
	"github.com/angelmondragon/registro-bienes-backend/pkg/auth"
	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/logger"
	"github.com/angelmondragon/registro-bienes-backend/pkg/types"
)

// transferRequest is the body shared by purchases and sales. Numbers may be
// sent as JSON numbers or numeric strings; list fields must be JSON arrays.
type transferRequest struct {
	GoodID        *uuid.UUID         `json:"bien_id,omitempty"`
	Type          string             `json:"tipo,omitempty"`
	Brand         string             `json:"marca,omitempty"`
	Model         string             `json:"modelo,omitempty"`
	Description   *string            `json:"descripcion,omitempty"`
	Price         *types.FlexDecimal `json:"precio,omitempty"`
	Quantity      *types.FlexInt     `json:"cantidad,omitempty"`
	Amount        *types.FlexDecimal `json:"monto,omitempty"`
	PaymentMethod string             `json:"metodo_pago" validate:"required"`
	SellerID      *uuid.UUID         `json:"vendedor_id,omitempty"`
	BuyerID       *uuid.UUID         `json:"comprador_id,omitempty"`
	Identifiers   []string           `json:"imeis,omitempty" validate:"omitempty,dive,required"`
	Photos        []string           `json:"fotos,omitempty" validate:"omitempty,dive,required,uri"`
	Override      *bool              `json:"override,omitempty"`
}

// toInput maps the body for the given side. The actor is always the buyer of
// a purchase and the seller of a sale; the other party comes from the body.
func (r transferRequest) toInput(kind enums.TransactionKind, actor auth.Actor) (transactions.Input, error) {
	method, err := enums.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return transactions.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]any{"field": "metodo_pago"})
	}

	counterparty, self, counterField, selfField := r.SellerID, r.BuyerID, "vendedor_id", "comprador_id"
	if kind == enums.TransactionKindSale {
		counterparty, self, counterField, selfField = r.BuyerID, r.SellerID, "comprador_id", "vendedor_id"
	}
	if counterparty == nil || *counterparty == uuid.Nil {
		return transactions.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "counterparty is required").
			WithDetails(map[string]any{"field": counterField})
	}
	if self != nil && *self != actor.UserID {
		return transactions.Input{}, pkgerrors.New(pkgerrors.CodeForbidden, "transfers are registered by the acting party").
			WithDetails(map[string]any{"field": selfField})
	}

	input := transactions.Input{
		GoodID:         r.GoodID,
		Type:           validators.SanitizeString(r.Type, validators.LabelMaxLen),
		Brand:          validators.SanitizeString(r.Brand, validators.LabelMaxLen),
		Model:          validators.SanitizeString(r.Model, validators.LabelMaxLen),
		Description:    r.Description,
		PaymentMethod:  method,
		CounterpartyID: *counterparty,
		Identifiers:    r.Identifiers,
		Photos:         validators.SanitizeList(r.Photos),
		Override:       r.Override,
	}
	if r.Price != nil {
		p := r.Price.Decimal
		input.Price = &p
	}
	if r.Amount != nil {
		a := r.Amount.Decimal
		input.Amount = &a
	}
	input.Quantity = len(r.Identifiers)
	if r.Quantity != nil {
		input.Quantity = r.Quantity.Int()
	}
	return input, nil
}

func RegisterPurchase(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return transferHandler(enums.TransactionKindPurchase, svc.Purchase, logg)
}

func RegisterSale(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return transferHandler(enums.TransactionKindSale, svc.Sale, logg)
}

type transferFunc func(ctx context.Context, actor auth.Actor, input transactions.Input) (*transactions.TransactionDTO, error)

func transferHandler(kind enums.TransactionKind, record transferFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(kind, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := record(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func GetTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
