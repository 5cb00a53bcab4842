package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RFQFilter narrows RFQ listings. Zero values are ignored.
type RFQFilter struct {
	Keyword        string
	PartType       string
	Technologies   []string
	Material       string
	Country        string
	Region         string
	Certifications []string
	MinQuantity    int

	MaxLength   *float64
	MaxWidth    *float64
	MaxHeight   *float64
	MaxDiameter *float64

	Statuses []string

	BuyerID uuid.UUID
	// ExcludeRequestedBy hides RFQs the manufacturer already bid on.
	ExcludeRequestedBy uuid.UUID
	// ExcludeBuyer hides a hybrid user's own RFQs from the pool.
	ExcludeBuyer         uuid.UUID
	SelectedManufacturer uuid.UUID
	// InvolvedBuyer and InvolvedManufacturer select RFQs the user owns, bid on
	// or was selected for. When both are set the result is their union.
	InvolvedBuyer        uuid.UUID
	InvolvedManufacturer uuid.UUID

	RecentlyUpdated bool
}

func ParseRFQFilter(q url.Values) RFQFilter {
	f := RFQFilter{
		Keyword:        strings.TrimSpace(q.Get("keyword")),
		PartType:       strings.TrimSpace(q.Get("partType")),
		Technologies:   list(q, "technologies"),
		Material:       strings.TrimSpace(q.Get("material")),
		Country:        strings.TrimSpace(q.Get("country")),
		Region:         strings.TrimSpace(q.Get("region")),
		Certifications: list(q, "certifications"),
		MaxLength:      ceiling(q, "length"),
		MaxWidth:       ceiling(q, "width"),
		MaxHeight:      ceiling(q, "height"),
		MaxDiameter:    ceiling(q, "diameter"),
	}
	if t := strings.TrimSpace(q.Get("technology")); t != "" {
		f.Technologies = append(f.Technologies, t)
	}
	if n, err := strconv.Atoi(q.Get("quantity")); err == nil && n > 0 {
		f.MinQuantity = n
	}
	if s := strings.TrimSpace(q.Get("status")); s != "" {
		f.Statuses = []string{s}
	}
	return f
}

func (f RFQFilter) hasDimensions() bool {
	return f.MaxLength != nil || f.MaxWidth != nil || f.MaxHeight != nil || f.MaxDiameter != nil
}

// Apply adds the filter's predicates to w. Column names assume the rfqs table
// is unaliased.
func (f RFQFilter) Apply(w *Where) {
	if len(f.Statuses) > 0 {
		w.Add("status = ANY(?)", textArray(f.Statuses))
	}
	if f.BuyerID != uuid.Nil {
		w.Add("buyer_id = ?", f.BuyerID)
	}
	if f.ExcludeBuyer != uuid.Nil {
		w.Add("buyer_id <> ?", f.ExcludeBuyer)
	}
	if f.SelectedManufacturer != uuid.Nil {
		w.Add("selected_manufacturer_id = ?", f.SelectedManufacturer)
	}
	f.applyInvolvement(w)
	if f.ExcludeRequestedBy != uuid.Nil {
		w.Add("NOT EXISTS (SELECT 1 FROM manufacturer_requests mr WHERE mr.rfq_id = rfqs.id AND mr.manufacturer_id = ?)", f.ExcludeRequestedBy)
	}
	if f.Keyword != "" {
		p := Contains(f.Keyword)
		w.Add("(title ILIKE ? OR description ILIKE ? OR request_justification ILIKE ?)", p, p, p)
	}
	if f.Country != "" {
		w.Add("country ILIKE ?", Contains(f.Country))
	}
	if f.Region != "" {
		w.Add("region ILIKE ?", Contains(f.Region))
	}
	if len(f.Certifications) > 0 {
		w.Add("required_certificates && ?", textArray(f.Certifications))
	}
	if len(f.Technologies) > 0 {
		w.Add("EXISTS (SELECT 1 FROM jsonb_array_elements(workpieces) wp WHERE wp->>'technology' = ANY(?))", textArray(f.Technologies))
	}
	if f.PartType != "" {
		w.Add("EXISTS (SELECT 1 FROM jsonb_array_elements(workpieces) wp WHERE wp->>'partType' ILIKE ?)", Contains(f.PartType))
	}
	if f.Material != "" {
		w.Add("EXISTS (SELECT 1 FROM jsonb_array_elements(workpieces) wp WHERE wp->>'material' ILIKE ?)", Contains(f.Material))
	}
	if f.MinQuantity > 0 {
		w.Add("EXISTS (SELECT 1 FROM jsonb_array_elements(workpieces) wp WHERE (wp->>'quantity')::int >= ?)", f.MinQuantity)
	}
	if f.hasDimensions() {
		// all ceilings must hold for the same workpiece; a missing dimension fails
		var conds []string
		var args []interface{}
		add := func(field string, v *float64) {
			if v != nil {
				conds = append(conds, "(wp->'dimensions'->>'"+field+"')::float8 <= ?")
				args = append(args, *v)
			}
		}
		add("length", f.MaxLength)
		add("width", f.MaxWidth)
		add("height", f.MaxHeight)
		add("diameter", f.MaxDiameter)
		w.Add("EXISTS (SELECT 1 FROM jsonb_array_elements(workpieces) wp WHERE "+strings.Join(conds, " AND ")+")", args...)
	}
}

func (f RFQFilter) applyInvolvement(w *Where) {
	var alts []string
	var args []interface{}
	if f.InvolvedBuyer != uuid.Nil {
		alts = append(alts, "buyer_id = ?")
		args = append(args, f.InvolvedBuyer)
	}
	if f.InvolvedManufacturer != uuid.Nil {
		alts = append(alts,
			"selected_manufacturer_id = ?",
			"EXISTS (SELECT 1 FROM manufacturer_requests mr WHERE mr.rfq_id = rfqs.id AND mr.manufacturer_id = ?)")
		args = append(args, f.InvolvedManufacturer, f.InvolvedManufacturer)
	}
	if len(alts) > 0 {
		w.Add("("+strings.Join(alts, " OR ")+")", args...)
	}
}

// OrderBy returns the ORDER BY clause for the listing.
func (f RFQFilter) OrderBy() string {
	if f.RecentlyUpdated {
		return "ORDER BY updated_at DESC"
	}
	return "ORDER BY created_at DESC"
}
