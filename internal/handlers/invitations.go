package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"rfqmarket/db"
	"rfqmarket/internal/access"
	"rfqmarket/internal/lifecycle"
	"rfqmarket/internal/metrics"
	"rfqmarket/internal/notify"
	"rfqmarket/models"
)

// ListInvitationsHandler handles GET /invitations: invitations addressed to the caller.
func (h *Handler) ListInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	invs, err := h.Store.ListInvitationsForManufacturer(r.Context(), actor.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if invs == nil {
		invs = []models.Invitation{}
	}
	respond(w, http.StatusOK, invs)
}

type invitationInput struct {
	RFQID          string `json:"rfqId"`
	ManufacturerID string `json:"manufacturerId"`
	Message        string `json:"message"`
}

// CreateInvitationHandler handles POST /invitations.
func (h *Handler) CreateInvitationHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in invitationInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	rfqID, err := parseUUID(in.RFQID, "rfqId")
	if err != nil {
		respondError(w, r, err)
		return
	}
	manufacturerID, err := parseUUID(in.ManufacturerID, "manufacturerId")
	if err != nil {
		respondError(w, r, err)
		return
	}

	rfq, err := h.Store.GetRFQ(r.Context(), rfqID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := access.Authorize(actor, access.Invite, access.RFQ{RFQ: rfq}); err != nil {
		respondMessage(w, http.StatusForbidden, "Not authorized")
		return
	}
	if !lifecycle.AcceptingRequests(rfq.Status) {
		respondMessage(w, http.StatusBadRequest, "RFQ is not accepting invitations")
		return
	}
	if manufacturerID == actor.ID {
		respondMessage(w, http.StatusBadRequest, "You cannot invite yourself")
		return
	}
	invitee, err := h.Store.GetUser(r.Context(), manufacturerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !invitee.Role.CanManufacture() {
		respondMessage(w, http.StatusBadRequest, "Only manufacturers can be invited")
		return
	}

	inv := &models.Invitation{
		RFQID:          rfq.ID,
		BuyerID:        actor.ID,
		ManufacturerID: manufacturerID,
		Message:        in.Message,
	}
	if err := h.Store.CreateInvitation(r.Context(), inv); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			respondMessage(w, http.StatusBadRequest, "Manufacturer already invited")
			return
		}
		respondError(w, r, err)
		return
	}
	h.notifyAsync(notify.InvitationCreated, manufacturerID, rfq.ID, map[string]string{"invitationId": inv.ID.String()})
	respond(w, http.StatusCreated, inv)
}

func (h *Handler) loadInvitation(r *http.Request, actor access.Actor) (*models.Invitation, error) {
	id, err := uuidParam(r, "id")
	if err != nil {
		return nil, err
	}
	inv, err := h.Store.GetInvitation(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, access.RespondInvitation, access.Invitation{Invitation: inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

type acceptedInvitation struct {
	Invitation *models.Invitation          `json:"invitation"`
	Request    *models.ManufacturerRequest `json:"manufacturerRequest"`
}

// AcceptInvitationHandler handles POST /invitations/{id}/accept. The invitee
// joins the RFQ's requests; an existing request of theirs is kept.
func (h *Handler) AcceptInvitationHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	inv, err := h.loadInvitation(r, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if inv.Status != models.InvitationPending {
		respondMessage(w, http.StatusBadRequest, "Invitation has already been answered")
		return
	}
	rfq, err := h.Store.GetRFQ(r.Context(), inv.RFQID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	profile, err := h.profileOf(r, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}

	req := requestFromInvitation(profile, rfq, actor.ID)
	accepted, err := h.Store.AcceptInvitation(r.Context(), inv.ID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rfq.Status == models.StatusOpenForRequests {
		metrics.RecordTransition(string(models.StatusOpenForRequests), string(models.StatusRequestsPending))
	}
	log.Info().Str("invitation_id", inv.ID.String()).Str("rfq_id", rfq.ID.String()).Msg("invitation accepted")
	h.notifyAsync(notify.InvitationAccepted, inv.BuyerID, rfq.ID, map[string]string{"invitationId": inv.ID.String()})
	respond(w, http.StatusOK, acceptedInvitation{Invitation: accepted, Request: req})
}

type declineInput struct {
	DeclineReason string `json:"declineReason"`
}

// DeclineInvitationHandler handles POST /invitations/{id}/decline.
func (h *Handler) DeclineInvitationHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	inv, err := h.loadInvitation(r, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var in declineInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	declined, err := h.Store.DeclineInvitation(r.Context(), inv.ID, in.DeclineReason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.notifyAsync(notify.InvitationDeclined, inv.BuyerID, inv.RFQID, map[string]string{
		"invitationId": inv.ID.String(),
		"reason":       in.DeclineReason,
	})
	respond(w, http.StatusOK, declined)
}
