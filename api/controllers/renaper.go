package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/registro-bienes-backend/api/responses"
	"github.com/angelmondragon/registro-bienes-backend/internal/renaper"
	"github.com/angelmondragon/registro-bienes-backend/pkg/logger"
)

// PersonLookup is the identity gateway used by the RENAPER proxy.
type PersonLookup interface {
	LookupPerson(ctx context.Context, documentNumber string) (*renaper.PersonRecord, error)
}

// LookupPerson proxies a document lookup to the identity gateway.
func LookupPerson(gateway PersonLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := requireActor(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		person, err := gateway.LookupPerson(r.Context(), chi.URLParam(r, "nroDoc"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, person)
	}
}
