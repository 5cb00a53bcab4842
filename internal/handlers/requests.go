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
	"rfqmarket/models"
)

type requestInput struct {
	Message          string `json:"message"`
	ProposedLeadTime int    `json:"proposedLeadTime"`
	TechnologyMatch  bool   `json:"technologyMatch"`
	MaterialMatch    bool   `json:"materialMatch"`
}

// RequestRFQHandler handles POST /rfqs/{id}/request. The match score is
// computed here from the caller's profile, never taken from the body.
func (h *Handler) RequestRFQHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := access.Authorize(actor, access.RequestRFQ, nil); err != nil {
		respondMessage(w, http.StatusForbidden, "Only manufacturers can request RFQs")
		return
	}
	res, err := h.loadRFQ(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rfq := res.RFQ
	if access.BuyerOf(actor, res.Parties()) {
		respondMessage(w, http.StatusBadRequest, "You cannot request your own RFQ")
		return
	}
	if !lifecycle.AcceptingRequests(rfq.Status) {
		respondMessage(w, http.StatusBadRequest, "RFQ is not accepting requests")
		return
	}
	if access.RequesterOf(actor, res.Parties()) {
		respondMessage(w, http.StatusBadRequest, "You have already requested this RFQ")
		return
	}

	var in requestInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	profile, err := h.profileOf(r, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}

	req := &models.ManufacturerRequest{
		RFQID:            rfq.ID,
		ManufacturerID:   actor.ID,
		Message:          in.Message,
		ProposedLeadTime: in.ProposedLeadTime,
		TechnologyMatch:  in.TechnologyMatch,
		MaterialMatch:    in.MaterialMatch,
		MatchScore:       matching.Score(profile, rfq),
	}
	if err := req.Validate(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Store.CreateManufacturerRequest(r.Context(), req); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			respondMessage(w, http.StatusBadRequest, "You have already requested this RFQ")
			return
		}
		respondError(w, r, err)
		return
	}
	if rfq.Status == models.StatusOpenForRequests {
		metrics.RecordTransition(string(models.StatusOpenForRequests), string(models.StatusRequestsPending))
	}
	log.Info().Str("rfq_id", rfq.ID.String()).Str("manufacturer_id", actor.ID.String()).
		Int("match_score", req.MatchScore).Msg("manufacturer request created")
	h.notifyAsync(notify.RequestCreated, rfq.BuyerID, rfq.ID, map[string]string{
		"requestId":  req.ID.String(),
		"matchScore": fmt.Sprint(req.MatchScore),
	})
	respond(w, http.StatusCreated, req)
}

type decisionInput struct {
	ManufacturerRequestID string `json:"manufacturerRequestId"`
	RejectionReason       string `json:"rejectionReason"`
}

// decisionTarget loads the RFQ and the request the buyer is deciding on and
// checks that the request belongs to that RFQ.
func (h *Handler) decisionTarget(w http.ResponseWriter, r *http.Request, actor access.Actor) (access.RFQ, *models.ManufacturerRequest, decisionInput, error) {
	var in decisionInput
	res, err := h.loadRFQ(r)
	if err != nil {
		return res, nil, in, err
	}
	if err := access.Authorize(actor, access.DecideRequest, res); err != nil {
		return res, nil, in, err
	}
	if err := decodeJSON(w, r, &in); err != nil {
		return res, nil, in, err
	}
	reqID, err := parseUUID(in.ManufacturerRequestID, "manufacturerRequestId")
	if err != nil {
		return res, nil, in, err
	}
	req, err := h.Store.GetManufacturerRequest(r.Context(), reqID)
	if err != nil {
		return res, nil, in, err
	}
	if req.RFQID != res.RFQ.ID {
		return res, nil, in, fmt.Errorf("%w: request does not belong to this RFQ", errBadRequest)
	}
	return res, req, in, nil
}

// AcceptManufacturerHandler handles POST /rfqs/{id}/accept-manufacturer.
// Selection, acceptance and the rejection of every other pending request
// happen in one storage transaction.
func (h *Handler) AcceptManufacturerHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, req, _, err := h.decisionTarget(w, r, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if res.RFQ.Status != models.StatusRequestsPending {
		respondMessage(w, http.StatusBadRequest, "RFQ is not awaiting a supplier decision")
		return
	}

	rfq, err := h.Store.AcceptManufacturerRequest(r.Context(), res.RFQ.ID, req.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.RecordTransition(string(models.StatusRequestsPending), string(rfq.Status))
	log.Info().Str("rfq_id", rfq.ID.String()).Str("manufacturer_id", req.ManufacturerID.String()).
		Msg("supplier selected")

	h.notifyAsync(notify.SupplierSelected, req.ManufacturerID, rfq.ID, map[string]string{"requestId": req.ID.String()})
	for _, other := range res.Requests {
		if other.ID != req.ID && other.Status == models.RequestPending {
			h.notifyAsync(notify.RequestRejected, other.ManufacturerID, rfq.ID, map[string]string{"requestId": other.ID.String()})
		}
	}
	respond(w, http.StatusOK, rfq)
}

// RejectManufacturerHandler handles POST /rfqs/{id}/reject-manufacturer.
func (h *Handler) RejectManufacturerHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, req, in, err := h.decisionTarget(w, r, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rejected, err := h.Store.RejectManufacturerRequest(r.Context(), res.RFQ.ID, req.ID, in.RejectionReason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.notifyAsync(notify.RequestRejected, rejected.ManufacturerID, res.RFQ.ID, map[string]string{
		"requestId": rejected.ID.String(),
		"reason":    in.RejectionReason,
	})
	respond(w, http.StatusOK, rejected)
}

// ListRFQRequestsHandler handles GET /rfqs/{id}/requests for the buyer.
func (h *Handler) ListRFQRequestsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	res, err := h.loadRFQ(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := access.Authorize(actor, access.ViewRequestsForRFQ, res); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nonNilRequests(res.Requests))
}

func nonNilRequests(in []models.ManufacturerRequest) []models.ManufacturerRequest {
	if in == nil {
		return []models.ManufacturerRequest{}
	}
	return in
}

// requestFromInvitation builds the request a manufacturer implicitly submits
// by accepting an invitation.
func requestFromInvitation(profile *models.User, rfq *models.RFQ, manufacturerID uuid.UUID) *models.ManufacturerRequest {
	b := matching.Evaluate(profile, rfq)
	return &models.ManufacturerRequest{
		RFQID:            rfq.ID,
		ManufacturerID:   manufacturerID,
		Message:          "Accepted invitation",
		ProposedLeadTime: models.DefaultLeadTimeDays,
		TechnologyMatch:  b.Technology,
		MaterialMatch:    b.Material,
		MatchScore:       b.Score,
	}
}
