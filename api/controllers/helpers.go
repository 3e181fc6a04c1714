package controllers

import (
	"net/http"

	"github.com/angelmondragon/registro-bienes-backend/api/middleware"
	"github.com/angelmondragon/registro-bienes-backend/api/validators"
	"github.com/angelmondragon/registro-bienes-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/pagination"
)

func requireActor(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: validators.QueryString(r, "cursor", 0)}, nil
}
