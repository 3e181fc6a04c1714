package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/registro-bienes-backend/api/responses"
	"github.com/angelmondragon/registro-bienes-backend/api/validators"
	"github.com/angelmondragon/registro-bienes-backend/internal/traceability"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/logger"
)

// GoodHistory returns the transactions that moved a good, newest first.
func GoodHistory(svc traceability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := requireActor(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.ByGood(r.Context(), id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// IdentifierHistory follows one IMEI or serial across owners.
func IdentifierHistory(svc traceability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := requireActor(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		identifier := strings.TrimSpace(chi.URLParam(r, "identifier"))
		if identifier == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "path parameter is required").
				WithDetails(map[string]any{"field": "identifier"}))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.ByIdentifier(r.Context(), identifier, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
