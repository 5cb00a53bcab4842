package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type RFQStatus string

const (
	StatusDraft            RFQStatus = "DRAFT"
	StatusOpenForRequests  RFQStatus = "OPEN_FOR_REQUESTS"
	StatusRequestsPending  RFQStatus = "REQUESTS_PENDING"
	StatusSupplierSelected RFQStatus = "SUPPLIER_SELECTED"
	StatusInProduction     RFQStatus = "IN_PRODUCTION"
	StatusShipped          RFQStatus = "SHIPPED"
	StatusDelivered        RFQStatus = "DELIVERED"
	StatusClosed           RFQStatus = "CLOSED"
	StatusExpired          RFQStatus = "EXPIRED"
	StatusCancelled        RFQStatus = "CANCELLED"
)

var rfqStatuses = []RFQStatus{
	StatusDraft, StatusOpenForRequests, StatusRequestsPending, StatusSupplierSelected,
	StatusInProduction, StatusShipped, StatusDelivered, StatusClosed, StatusExpired, StatusCancelled,
}

func (s RFQStatus) Valid() bool {
	for _, v := range rfqStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type ProductionStatus string

const (
	ProductionNotStarted   ProductionStatus = "NOT_STARTED"
	ProductionQualityCheck ProductionStatus = "QUALITY_CHECK"
	ProductionReadyToShip  ProductionStatus = "READY_TO_SHIP"
	ProductionShipped      ProductionStatus = "SHIPPED"
)

func (p ProductionStatus) Valid() bool {
	switch p {
	case ProductionNotStarted, ProductionQualityCheck, ProductionReadyToShip, ProductionShipped:
		return true
	}
	return false
}

type Workpiece struct {
	MainFile   string     `json:"mainFile"`
	ExtraFiles []string   `json:"extraFiles,omitempty"`
	PartType   string     `json:"partType,omitempty"`
	Dimensions Dimensions `json:"dimensions"`
	Technology Technology `json:"technology"`
	Material   string     `json:"material"`
	Quantity   int        `json:"quantity"`
}

type Workpieces []Workpiece

type TrackingInfo struct {
	TrackingID   string     `json:"trackingId,omitempty"`
	Carrier      string     `json:"carrier,omitempty"`
	ShippingDate *time.Time `json:"shippingDate,omitempty"`
}

type ShippingDoc struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type ShippingDocs []ShippingDoc

// Requirements are the commercial terms a buyer attaches to an RFQ.
type Requirements struct {
	PreferredCurrency     string         `db:"preferred_currency" json:"preferredCurrency"`
	RFQDeadline           time.Time      `db:"rfq_deadline" json:"rfqDeadline"`
	AcceptanceDeadline    *time.Time     `db:"acceptance_deadline" json:"acceptanceDeadline,omitempty"`
	TargetDeliveryDate    *time.Time     `db:"target_delivery_date" json:"targetDeliveryDate,omitempty"`
	PartTrackingID        string         `db:"part_tracking_id" json:"partTrackingId"`
	RequestJustification  string         `db:"request_justification" json:"requestJustification"`
	ShippingTerms         string         `db:"shipping_terms" json:"shippingTerms"`
	Country               string         `db:"country" json:"country"`
	Region                string         `db:"region" json:"region"`
	CommunicationLanguage string         `db:"communication_language" json:"communicationLanguage"`
	RequiredCertificates  pq.StringArray `db:"required_certificates" json:"requiredCertificates"`
	Notes                 string         `db:"notes" json:"notes"`
}

// ApplyDefaults fills the terms a buyer usually leaves blank.
func (r *Requirements) ApplyDefaults() {
	if r.PreferredCurrency == "" {
		r.PreferredCurrency = "USD"
	}
	if r.ShippingTerms == "" {
		r.ShippingTerms = "FOB"
	}
	if r.CommunicationLanguage == "" {
		r.CommunicationLanguage = "English"
	}
	if r.RequiredCertificates == nil {
		r.RequiredCertificates = pq.StringArray{}
	}
}

type RFQ struct {
	ID                            uuid.UUID        `db:"id" json:"id"`
	Title                         string           `db:"title" json:"title"`
	Description                   string           `db:"description" json:"description"`
	BuyerID                       uuid.UUID        `db:"buyer_id" json:"buyerId"`
	Status                        RFQStatus        `db:"status" json:"status"`
	Workpieces                    Workpieces       `db:"workpieces" json:"workpieces"`
	Requirements                                   // flattened into the document
	NDAFile                       string           `db:"nda_file" json:"ndaFile,omitempty"`
	SelectedManufacturerID        uuid.NullUUID    `db:"selected_manufacturer_id" json:"selectedManufacturerId"`
	SelectedManufacturerRequestID uuid.NullUUID    `db:"selected_manufacturer_request_id" json:"selectedManufacturerRequestId"`
	ProductionStatus              ProductionStatus `db:"production_status" json:"productionStatus"`
	TrackingInfo                  TrackingInfo     `db:"tracking_info" json:"trackingInfo"`
	ShippingDocs                  ShippingDocs     `db:"shipping_docs" json:"shippingDocs"`
	ClosedAt                      *time.Time       `db:"closed_at" json:"closedAt,omitempty"`
	CreatedAt                     time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt                     time.Time        `db:"updated_at" json:"updatedAt"`
}

// FirstWorkpiece returns the workpiece used for matching, if any.
func (r *RFQ) FirstWorkpiece() (Workpiece, bool) {
	if len(r.Workpieces) == 0 {
		return Workpiece{}, false
	}
	return r.Workpieces[0], true
}

// IsSelectedManufacturer reports whether id is the RFQ's chosen supplier.
func (r *RFQ) IsSelectedManufacturer(id uuid.UUID) bool {
	return r.SelectedManufacturerID.Valid && r.SelectedManufacturerID.UUID == id
}

var ErrValidation = errors.New("validation failed")

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Validate checks the fields a buyer controls.
func (r *RFQ) Validate() error {
	if strings.TrimSpace(r.Title) == "" || len(r.Title) > 200 {
		return validationErr("title is required and max length 200")
	}
	if len(r.Description) > 5000 {
		return validationErr("description max length 5000")
	}
	for i, w := range r.Workpieces {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("workpiece %d: %w", i, err)
		}
	}
	if strings.TrimSpace(r.Country) == "" {
		return validationErr("country is required")
	}
	if r.RFQDeadline.IsZero() {
		return validationErr("rfqDeadline is required")
	}
	for _, c := range r.RequiredCertificates {
		if !Certificate(c).Valid() {
			return validationErr("unknown certificate %q", c)
		}
	}
	return nil
}

func (w *Workpiece) Validate() error {
	if w.MainFile == "" {
		return validationErr("mainFile is required")
	}
	if !w.Technology.Valid() {
		return validationErr("unknown technology %q", w.Technology)
	}
	if strings.TrimSpace(w.Material) == "" {
		return validationErr("material is required")
	}
	if w.Quantity < 1 {
		return validationErr("quantity must be at least 1")
	}
	d := w.Dimensions
	if d.Length < 0 || d.Width < 0 || d.Height < 0 || d.Diameter < 0 {
		return validationErr("dimensions must not be negative")
	}
	return nil
}
