package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rfqmarket/db"
	"rfqmarket/internal/access"
	"rfqmarket/internal/lifecycle"
	"rfqmarket/internal/matching"
	"rfqmarket/internal/metrics"
	"rfqmarket/internal/notify"
	"rfqmarket/internal/search"
	"rfqmarket/models"
)

const myRFQsLimit = 10

// rfqInput is the buyer-editable part of an RFQ. Requirements arrive nested.
type rfqInput struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Workpieces   models.Workpieces   `json:"workpieces"`
	Requirements models.Requirements `json:"requirements"`
	NDAFile      string              `json:"ndaFile"`
	Status       models.RFQStatus    `json:"status"`
}

func inputFrom(r *models.RFQ) rfqInput {
	return rfqInput{
		Title:        r.Title,
		Description:  r.Description,
		Workpieces:   r.Workpieces,
		Requirements: r.Requirements,
		NDAFile:      r.NDAFile,
		Status:       r.Status,
	}
}

func (in rfqInput) apply(r *models.RFQ) {
	r.Title = in.Title
	r.Description = in.Description
	r.Workpieces = in.Workpieces
	r.Requirements = in.Requirements
	r.NDAFile = in.NDAFile
	if r.Workpieces == nil {
		r.Workpieces = models.Workpieces{}
	}
	r.Requirements.ApplyDefaults()
}

// CreateRFQHandler handles POST /rfqs.
func (h *Handler) CreateRFQHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := access.Authorize(actor, access.CreateRFQ, nil); err != nil {
		respondMessage(w, http.StatusForbidden, "Only buyers can create RFQs")
		return
	}

	var in rfqInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if !lifecycle.InitialAllowed(in.Status) {
		respondError(w, r, fmt.Errorf("%w: an RFQ cannot be created as %s", lifecycle.ErrInvalidTransition, in.Status))
		return
	}

	rfq := &models.RFQ{BuyerID: actor.ID, Status: in.Status}
	in.apply(rfq)
	if err := rfq.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Store.CreateRFQ(r.Context(), rfq); err != nil {
		respondError(w, r, err)
		return
	}
	log.Info().Str("rfq_id", rfq.ID.String()).Str("status", string(rfq.Status)).Msg("rfq created")
	respond(w, http.StatusCreated, rfq)
}

// MyRFQsHandler handles GET /rfqs/my-rfqs: RFQs the caller owns, requested
// or was selected for. Hybrid users get both sides.
func (h *Handler) MyRFQsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	parsed := search.ParseRFQFilter(q)
	f := search.RFQFilter{
		Technologies: parsed.Technologies,
		Material:     parsed.Material,
		Country:      parsed.Country,
		Statuses:     parsed.Statuses,
	}
	if actor.Role.CanBuy() {
		f.InvolvedBuyer = actor.ID
	}
	if actor.Role.CanManufacture() {
		f.InvolvedManufacturer = actor.ID
	}
	h.listRFQs(w, r, f, search.ParsePage(q, myRFQsLimit))
}

// AcceptedRFQsHandler handles GET /rfqs/accepted: work won by the caller.
func (h *Handler) AcceptedRFQsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := access.Authorize(actor, access.BrowsePool, nil); err != nil {
		respondError(w, r, err)
		return
	}
	q := r.URL.Query()
	f := search.RFQFilter{
		SelectedManufacturer: actor.ID,
		RecentlyUpdated:      true,
		Statuses: []string{
			string(models.StatusSupplierSelected),
			string(models.StatusInProduction),
			string(models.StatusShipped),
			string(models.StatusDelivered),
		},
	}
	if s := q.Get("status"); s != "" {
		f.Statuses = []string{s}
	}
	h.listRFQs(w, r, f, search.ParsePage(q, myRFQsLimit))
}

func (h *Handler) listRFQs(w http.ResponseWriter, r *http.Request, f search.RFQFilter, p search.Page) {
	rfqs, total, err := h.Store.ListRFQs(r.Context(), f, p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondPage(w, rfqs, p.Result(total))
}

// scoredRFQ is a pool entry with the caller's match score.
type scoredRFQ struct {
	*models.RFQ
	MatchScore int `json:"matchScore"`
}

// PoolHandler handles GET /rfqs/pool: open RFQs the manufacturer has not bid
// on yet, each scored against the caller's profile.
func (h *Handler) PoolHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := access.Authorize(actor, access.BrowsePool, nil); err != nil {
		respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	f := search.ParseRFQFilter(q)
	f.Statuses = openStatuses()
	f.ExcludeRequestedBy = actor.ID
	f.ExcludeBuyer = actor.ID
	p := search.ParsePage(q, search.DefaultLimit)

	profile, err := h.profileOf(r, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rfqs, total, err := h.Store.ListRFQs(r.Context(), f, p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]scoredRFQ, 0, len(rfqs))
	for i := range rfqs {
		out = append(out, scoredRFQ{RFQ: &rfqs[i], MatchScore: matching.Score(profile, &rfqs[i])})
	}
	respondPage(w, out, p.Result(total))
}

func openStatuses() []string {
	return []string{string(models.StatusOpenForRequests), string(models.StatusRequestsPending)}
}

// profileOf loads the caller's profile. A caller who never saved one is
// scored as having no declared capabilities.
func (h *Handler) profileOf(r *http.Request, actor access.Actor) (*models.User, error) {
	u, err := h.Store.GetUser(r.Context(), actor.ID)
	if errors.Is(err, db.ErrNotFound) {
		return &models.User{ID: actor.ID, Role: actor.Role}, nil
	}
	return u, err
}

// loadRFQ fetches the RFQ named in the path together with its bidders, which
// the access policy needs to recognise requesters and invitees.
func (h *Handler) loadRFQ(r *http.Request) (access.RFQ, error) {
	id, err := uuidParam(r, "id")
	if err != nil {
		return access.RFQ{}, err
	}
	rfq, err := h.Store.GetRFQ(r.Context(), id)
	if err != nil {
		return access.RFQ{}, err
	}
	reqs, err := h.Store.ListRequestsForRFQ(r.Context(), id)
	if err != nil {
		return access.RFQ{}, err
	}
	invs, err := h.Store.ListInvitationsForRFQ(r.Context(), id)
	if err != nil {
		return access.RFQ{}, err
	}
	return access.RFQ{RFQ: rfq, Requests: reqs, Invitations: invs}, nil
}

type rfqDetail struct {
	*models.RFQ
	ManufacturerRequests []models.ManufacturerRequest `json:"manufacturerRequests"`
	AllowedTransitions   []models.RFQStatus           `json:"allowedTransitions"`
}

// GetRFQHandler handles GET /rfqs/{id}. The buyer also sees every request.
func (h *Handler) GetRFQHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, err := h.loadRFQ(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := access.Authorize(actor, access.ViewRFQ, res); err != nil {
		respondMessage(w, http.StatusForbidden, "Access denied")
		return
	}

	detail := rfqDetail{
		RFQ:                  res.RFQ,
		ManufacturerRequests: []models.ManufacturerRequest{},
		AllowedTransitions:   lifecycle.Next(res.RFQ.Status, access.LifecycleParty(actor, res)),
	}
	if access.BuyerOf(actor, res.Parties()) {
		detail.ManufacturerRequests = res.Requests
	}
	respond(w, http.StatusOK, detail)
}

// UpdateRFQHandler handles PUT /rfqs/{id}. Omitted fields keep their values.
func (h *Handler) UpdateRFQHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, err := h.loadRFQ(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := access.Authorize(actor, access.EditRFQ, res); err != nil {
		respondMessage(w, http.StatusForbidden, "Not authorized to update this RFQ")
		return
	}
	rfq := res.RFQ
	if !lifecycle.Editable(rfq.Status) {
		respondMessage(w, http.StatusBadRequest, "Cannot update RFQ after supplier selection")
		return
	}

	// Workpieces are replaced as a whole. Decoding into the stored slice would
	// keep fields the client left out of each element.
	in := inputFrom(rfq)
	in.Workpieces = nil
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if in.Workpieces == nil {
		in.Workpieces = rfq.Workpieces
	}
	if in.Status != rfq.Status {
		respondError(w, r, fmt.Errorf("%w: status is changed through the status endpoint", errBadRequest))
		return
	}
	in.apply(rfq)
	if err := rfq.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Store.UpdateRFQ(r.Context(), rfq); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, rfq)
}

// DeleteRFQHandler handles DELETE /rfqs/{id}; only drafts go.
func (h *Handler) DeleteRFQHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, err := h.loadRFQ(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := access.Authorize(actor, access.DeleteRFQ, res); err != nil {
		respondMessage(w, http.StatusForbidden, "Not authorized to delete this RFQ")
		return
	}
	if !lifecycle.Deletable(res.RFQ.Status) {
		respondMessage(w, http.StatusBadRequest, "Only draft RFQs can be deleted")
		return
	}
	if err := h.Store.DeleteRFQ(r.Context(), res.RFQ.ID); err != nil {
		respondError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "RFQ removed")
}

type statusInput struct {
	Status           *models.RFQStatus        `json:"status"`
	ProductionStatus *models.ProductionStatus `json:"productionStatus"`
	TrackingInfo     *models.TrackingInfo     `json:"trackingInfo"`
	ShippingDocs     *models.ShippingDocs     `json:"shippingDocs"`
}

func (in statusInput) fulfilment() bool {
	return in.ProductionStatus != nil || in.TrackingInfo != nil || in.ShippingDocs != nil
}

// UpdateStatusHandler handles PUT /rfqs/{id}/status. A status change must be
// an edge the caller's side may take; fulfilment fields may be updated by
// either party once a supplier is selected.
func (h *Handler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, err := h.loadRFQ(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := access.Authorize(actor, access.ChangeStatus, res); err != nil {
		respondMessage(w, http.StatusForbidden, "Not authorized")
		return
	}
	rfq := res.RFQ

	var in statusInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if in.Status != nil && *in.Status == rfq.Status {
		in.Status = nil
	}
	if in.Status == nil && !in.fulfilment() {
		respondError(w, r, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}
	if in.Status != nil {
		if err := lifecycle.Check(rfq.Status, *in.Status, access.LifecycleParty(actor, res)); err != nil {
			respondMessage(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid status transition from %s to %s", rfq.Status, *in.Status))
			return
		}
	}
	if in.fulfilment() && !lifecycle.SupplierSelected(rfq.Status) {
		respondError(w, r, fmt.Errorf("%w: fulfilment details require a selected supplier", errBadRequest))
		return
	}
	if in.ProductionStatus != nil && !in.ProductionStatus.Valid() {
		respondError(w, r, fmt.Errorf("%w: unknown productionStatus %q", models.ErrValidation, *in.ProductionStatus))
		return
	}

	updated, err := h.Store.TransitionRFQ(r.Context(), rfq.ID, db.StatusChange{
		From:             rfq.Status,
		To:               in.Status,
		ProductionStatus: in.ProductionStatus,
		TrackingInfo:     in.TrackingInfo,
		ShippingDocs:     in.ShippingDocs,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	if in.Status != nil {
		metrics.RecordTransition(string(rfq.Status), string(updated.Status))
		log.Info().Str("rfq_id", rfq.ID.String()).Str("from", string(rfq.Status)).
			Str("to", string(updated.Status)).Str("actor", actor.ID.String()).Msg("rfq status changed")
	}
	h.notifyAsync(notify.RFQStatusChanged, counterparty(actor, updated), updated.ID, map[string]string{
		"from": string(rfq.Status),
		"to":   string(updated.Status),
	})
	respond(w, http.StatusOK, updated)
}

// counterparty is the other side of a supplier-selected RFQ.
func counterparty(actor access.Actor, rfq *models.RFQ) uuid.UUID {
	if actor.ID == rfq.BuyerID {
		if rfq.SelectedManufacturerID.Valid {
			return rfq.SelectedManufacturerID.UUID
		}
		return uuid.Nil
	}
	return rfq.BuyerID
}
