package access

import (
	"github.com/google/uuid"

	"rfqmarket/internal/lifecycle"
	"rfqmarket/models"
)

// RFQ adapts an RFQ and its known bidders to a Resource.
type RFQ struct {
	RFQ         *models.RFQ
	Requests    []models.ManufacturerRequest
	Invitations []models.Invitation
}

func (r RFQ) Parties() Parties {
	p := Parties{Buyer: r.RFQ.BuyerID, Open: lifecycle.AcceptingRequests(r.RFQ.Status)}
	if r.RFQ.SelectedManufacturerID.Valid {
		p.SelectedManufacturer = r.RFQ.SelectedManufacturerID.UUID
	}
	for _, req := range r.Requests {
		p.Requesters = append(p.Requesters, req.ManufacturerID)
	}
	for _, inv := range r.Invitations {
		p.Invitees = append(p.Invitees, inv.ManufacturerID)
	}
	return p
}

type Invitation struct {
	Invitation *models.Invitation
}

func (i Invitation) Parties() Parties {
	return Parties{
		Buyer:    i.Invitation.BuyerID,
		Invitees: []uuid.UUID{i.Invitation.ManufacturerID},
	}
}
