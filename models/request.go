package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestAccepted  RequestStatus = "ACCEPTED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestWithdrawn RequestStatus = "WITHDRAWN"
)

// DefaultLeadTimeDays is proposed on behalf of a manufacturer who accepts an invitation.
const DefaultLeadTimeDays = 30

// ManufacturerRequest is a manufacturer's bid to fulfil an RFQ.
type ManufacturerRequest struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	RFQID            uuid.UUID     `db:"rfq_id" json:"rfqId"`
	ManufacturerID   uuid.UUID     `db:"manufacturer_id" json:"manufacturerId"`
	Status           RequestStatus `db:"status" json:"status"`
	Message          string        `db:"message" json:"message"`
	ProposedLeadTime int           `db:"proposed_lead_time" json:"proposedLeadTime"`
	TechnologyMatch  bool          `db:"technology_match" json:"technologyMatch"`
	MaterialMatch    bool          `db:"material_match" json:"materialMatch"`
	MatchScore       int           `db:"match_score" json:"matchScore"`
	RejectionReason  string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	RequestedAt      time.Time     `db:"requested_at" json:"requestedAt"`
	RespondedAt      *time.Time    `db:"responded_at" json:"respondedAt,omitempty"`
}

func (m *ManufacturerRequest) Validate() error {
	if m.ProposedLeadTime <= 0 {
		return validationErr("proposedLeadTime must be a positive number of days")
	}
	if len(m.Message) > 2000 {
		return validationErr("message max length 2000")
	}
	return nil
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
)

// Invitation is buyer-initiated outreach to one manufacturer for one RFQ.
type Invitation struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	RFQID          uuid.UUID        `db:"rfq_id" json:"rfqId"`
	BuyerID        uuid.UUID        `db:"buyer_id" json:"buyerId"`
	ManufacturerID uuid.UUID        `db:"manufacturer_id" json:"manufacturerId"`
	Status         InvitationStatus `db:"status" json:"status"`
	Message        string           `db:"message" json:"message"`
	DeclineReason  string           `db:"decline_reason" json:"declineReason,omitempty"`
	InvitedAt      time.Time        `db:"invited_at" json:"invitedAt"`
	RespondedAt    *time.Time       `db:"responded_at" json:"respondedAt,omitempty"`
}

type RatingCategories struct {
	Quality        int `json:"quality,omitempty"`
	OnTimeDelivery int `json:"onTimeDelivery,omitempty"`
	Communication  int `json:"communication,omitempty"`
	Price          int `json:"price,omitempty"`
}

// Rating is the buyer's verdict on a delivered RFQ. One per RFQ.
type Rating struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	RFQID          uuid.UUID        `db:"rfq_id" json:"rfqId"`
	BuyerID        uuid.UUID        `db:"buyer_id" json:"buyerId"`
	ManufacturerID uuid.UUID        `db:"manufacturer_id" json:"manufacturerId"`
	Rating         int              `db:"rating" json:"rating"`
	Comment        string           `db:"comment" json:"comment"`
	Categories     RatingCategories `db:"categories" json:"categories"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
}

func (r *Rating) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return validationErr("rating must be between 1 and 5")
	}
	c := r.Categories
	for _, v := range []int{c.Quality, c.OnTimeDelivery, c.Communication, c.Price} {
		if v != 0 && (v < 1 || v > 5) {
			return validationErr("category ratings must be between 1 and 5")
		}
	}
	if len(r.Comment) > 2000 {
		return validationErr("comment max length 2000")
	}
	return nil
}

// RatingSummary aggregates every rating a manufacturer received.
type RatingSummary struct {
	ManufacturerID uuid.UUID `json:"manufacturerId"`
	Average        float64   `json:"averageRating"`
	Total          int       `json:"totalRatings"`
}
