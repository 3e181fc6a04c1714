package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/registro-bienes-backend/api/responses"
	"github.com/angelmondragon/registro-bienes-backend/api/validators"
	"github.com/angelmondragon/registro-bienes-backend/internal/goods"
	"github.com/angelmondragon/registro-bienes-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/logger"
	"github.com/angelmondragon/registro-bienes-backend/pkg/types"
)

type createGoodRequest struct {
	Type        string             `json:"tipo" validate:"required"`
	Brand       string             `json:"marca" validate:"required"`
	Model       string             `json:"modelo" validate:"required"`
	Description *string            `json:"descripcion,omitempty"`
	Price       *types.FlexDecimal `json:"precio,omitempty"`
	Quantity    *types.FlexInt     `json:"cantidad,omitempty"`
	OwnerID     *uuid.UUID         `json:"propietario_id,omitempty"`
	Identifiers []string           `json:"imeis,omitempty" validate:"omitempty,dive,required"`
	Photos      []string           `json:"fotos,omitempty" validate:"omitempty,dive,required,uri"`
	Override    bool               `json:"override,omitempty"`
}

func (r createGoodRequest) toInput(actorID uuid.UUID) goods.CreateInput {
	owner := actorID
	if r.OwnerID != nil {
		owner = *r.OwnerID
	}
	price := decimal.Zero
	if r.Price != nil {
		price = r.Price.Decimal
	}
	qty := 0
	if r.Quantity != nil {
		qty = r.Quantity.Int()
	}
	return goods.CreateInput{
		Key: goods.Key{
			Type:    validators.SanitizeString(r.Type, validators.LabelMaxLen),
			Brand:   validators.SanitizeString(r.Brand, validators.LabelMaxLen),
			Model:   validators.SanitizeString(r.Model, validators.LabelMaxLen),
			OwnerID: owner,
		},
		Attrs: goods.Attrs{
			Description:    r.Description,
			Price:          price,
			Photos:         validators.SanitizeList(r.Photos),
			RegisteredByID: actorID,
		},
		Quantity:    qty,
		Identifiers: r.Identifiers,
		Override:    r.Override,
	}
}

type updateGoodRequest struct {
	Type        *string            `json:"tipo,omitempty"`
	Brand       *string            `json:"marca,omitempty"`
	Model       *string            `json:"modelo,omitempty"`
	Description *string            `json:"descripcion,omitempty"`
	Price       *types.FlexDecimal `json:"precio,omitempty"`
	KeepPhotos  *[]string          `json:"keep_photos,omitempty"`
	NewPhotos   []string           `json:"new_photos,omitempty" validate:"omitempty,dive,required,uri"`
}

func (r updateGoodRequest) toInput() goods.UpdateInput {
	input := goods.UpdateInput{
		Type:        r.Type,
		Brand:       r.Brand,
		Model:       r.Model,
		Description: r.Description,
		NewPhotos:   validators.SanitizeList(r.NewPhotos),
	}
	if r.Price != nil {
		p := r.Price.Decimal
		input.Price = &p
	}
	if r.KeepPhotos != nil {
		keep := validators.SanitizeList(*r.KeepPhotos)
		if keep == nil {
			keep = []string{}
		}
		input.KeepPhotos = &keep
	}
	return input
}

// CreateGood registers a good, optionally with initial stock and identifiers.
func CreateGood(svc goods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createGoodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		good, err := svc.Create(r.Context(), actor, payload.toInput(actor.UserID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, good)
	}
}

// ListGoods pages the caller's goods. Admins may pass owner_id.
func ListGoods(svc goods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := validators.ParseQueryUUID(r, "owner_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ownerID := actor.UserID
		if owner != nil {
			if !actor.CanManage(*owner) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another owner's goods"))
				return
			}
			ownerID = *owner
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), ownerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetGood(svc goods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndGood(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		good, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, good)
	}
}

func UpdateGood(svc goods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndGood(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateGoodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		good, err := svc.Update(r.Context(), actor, id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, good)
	}
}

func DeleteGood(svc goods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndGood(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

func GetGoodStock(svc goods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndGood(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		owner, err := validators.ParseQueryUUID(r, "owner_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := svc.Stock(r.Context(), actor, id, owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ownerID := actor.UserID
		if owner != nil {
			ownerID = *owner
		}
		responses.WriteSuccess(w, map[string]any{"bien_id": id, "propietario_id": ownerID, "cantidad": qty})
	}
}

func ListGoodItems(svc goods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, err := actorAndGood(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Items(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func actorAndGood(r *http.Request) (actor auth.Actor, id uuid.UUID, err error) {
	actor, err = requireActor(r)
	if err != nil {
		return actor, uuid.Nil, err
	}
	id, err = validators.ParseUUIDParam(r, "id")
	return actor, id, err
}
