package handlers

import (
	"errors"
	"net/http"

	"rfqmarket/db"
	"rfqmarket/internal/search"
	"rfqmarket/models"
)

type profileView struct {
	*models.User
	ProfileCompleteness int `json:"profileCompleteness"`
}

// GetProfileHandler handles GET /users/profile.
func (h *Handler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	u, err := h.Store.GetUser(r.Context(), actor.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, profileView{User: u, ProfileCompleteness: u.ProfileCompleteness()})
}

// UpdateProfileHandler handles PUT /users/profile. The first call creates the
// profile for the token's subject; identity and role always come from the token.
func (h *Handler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	u, err := h.Store.GetUser(r.Context(), actor.ID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		u = &models.User{}
	case err != nil:
		respondError(w, r, err)
		return
	}

	reviewStatus := u.ManufacturerStatus
	if err := decodeJSON(w, r, u); err != nil {
		respondError(w, r, err)
		return
	}
	u.ID = actor.ID
	u.Role = actor.Role
	// review status is set by moderators, not by the profile owner
	u.ManufacturerStatus = reviewStatus
	if err := u.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Store.UpsertUser(r.Context(), u); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, profileView{User: u, ProfileCompleteness: u.ProfileCompleteness()})
}

// SearchRFQsHandler handles GET /search/rfqs over RFQs still taking requests.
func (h *Handler) SearchRFQsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	q := r.URL.Query()
	f := search.ParseRFQFilter(q)
	f.Statuses = openStatuses()
	h.listRFQs(w, r, f, search.ParsePage(q, search.DefaultLimit))
}

// SearchManufacturersHandler handles GET /search/manufacturers.
func (h *Handler) SearchManufacturersHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(w, r); !ok {
		return
	}
	q := r.URL.Query()
	p := search.ParsePage(q, search.DefaultLimit)
	users, total, err := h.Store.SearchManufacturers(r.Context(), search.ParseManufacturerFilter(q), p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondPage(w, users, p.Result(total))
}
