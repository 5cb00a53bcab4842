package search

import (
	"net/url"
	"strings"
)

// ManufacturerFilter narrows the manufacturer directory.
type ManufacturerFilter struct {
	Keyword        string
	PartType       string
	Technologies   []string
	Country        string
	Region         string
	Certifications []string
	CompanySize    string
	Material       string
	Machinery      string
}

func ParseManufacturerFilter(q url.Values) ManufacturerFilter {
	return ManufacturerFilter{
		Keyword:        strings.TrimSpace(q.Get("keyword")),
		PartType:       strings.TrimSpace(q.Get("partType")),
		Technologies:   list(q, "technologies"),
		Country:        strings.TrimSpace(q.Get("country")),
		Region:         strings.TrimSpace(q.Get("region")),
		Certifications: list(q, "certifications"),
		CompanySize:    strings.TrimSpace(q.Get("companySize")),
		Material:       strings.TrimSpace(q.Get("material")),
		Machinery:      strings.TrimSpace(q.Get("machinery")),
	}
}

func settingsElementILike(key string) string {
	return "EXISTS (SELECT 1 FROM jsonb_array_elements_text(COALESCE(manufacturer_settings->'" + key + "', '[]'::jsonb)) e WHERE e ILIKE ?)"
}

// Apply restricts to active manufacturers and hybrids, then adds the filter.
func (f ManufacturerFilter) Apply(w *Where) {
	w.Add("role IN ('MANUFACTURER', 'HYBRID')")
	w.Add("manufacturer_status = 'ACTIVE'")
	if f.Keyword != "" {
		p := Contains(f.Keyword)
		w.Add("(company_name ILIKE ? OR full_name ILIKE ?)", p, p)
	}
	if f.PartType != "" {
		w.Add(settingsElementILike("partTypes"), Contains(f.PartType))
	}
	if len(f.Technologies) > 0 {
		w.Add("jsonb_exists_any(COALESCE(manufacturer_settings->'technologies', '[]'::jsonb), ?)", textArray(f.Technologies))
	}
	if f.Country != "" {
		w.Add("country ILIKE ?", Contains(f.Country))
	}
	if f.Region != "" {
		w.Add("region ILIKE ?", Contains(f.Region))
	}
	if len(f.Certifications) > 0 {
		w.Add("certifications && ?", textArray(f.Certifications))
	}
	if f.CompanySize != "" {
		w.Add("company_size ILIKE ?", Contains(f.CompanySize))
	}
	if f.Material != "" {
		w.Add(settingsElementILike("materials"), Contains(f.Material))
	}
	if f.Machinery != "" {
		w.Add(settingsElementILike("machinery"), Contains(f.Machinery))
	}
}
