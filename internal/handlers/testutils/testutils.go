package testutils

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rfqmarket/internal/access"
	"rfqmarket/internal/auth"
	"rfqmarket/models"
)

// WithChiURLParams puts path parameters into the chi route context of a test request.
func WithChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for k, v := range params {
		chiCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

// AsUser authenticates a test request as the given user.
func AsUser(req *http.Request, id uuid.UUID, role models.Role) *http.Request {
	return req.WithContext(auth.WithActor(req.Context(), access.Actor{ID: id, Role: role}))
}
