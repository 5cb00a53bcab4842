// Package matching scores how well a manufacturer fits an RFQ.
package matching

import "rfqmarket/models"

const (
	technologyWeight  = 30
	materialWeight    = 20
	certificateWeight = 10
	dimensionsWeight  = 20
	regionWeight      = 10
	maxScore          = 100
)

// Breakdown records which signals contributed to a score.
type Breakdown struct {
	Technology   bool `json:"technology"`
	Material     bool `json:"material"`
	Certificates int  `json:"certificates"`
	Dimensions   bool `json:"dimensions"`
	Region       bool `json:"region"`
	Score        int  `json:"score"`
}

// Score returns a 0..100 compatibility score between a manufacturer profile and an RFQ.
func Score(m *models.User, rfq *models.RFQ) int {
	return Evaluate(m, rfq).Score
}

func Evaluate(m *models.User, rfq *models.RFQ) Breakdown {
	var b Breakdown
	if m == nil || rfq == nil {
		return b
	}

	if w, ok := rfq.FirstWorkpiece(); ok {
		b.Technology = containsExact(m.ManufacturingTypes, string(w.Technology))
		b.Material = containsExact(m.PrimaryMaterials, w.Material)
		b.Dimensions = fits(w.Dimensions, m.MaxDimensions)
	}
	for _, c := range rfq.RequiredCertificates {
		if containsExact(m.Certifications, c) {
			b.Certificates++
		}
	}
	b.Region = rfq.Region != "" && containsExact(m.ManufacturerSettings.RegionsServed, rfq.Region)

	score := b.Certificates * certificateWeight
	if b.Technology {
		score += technologyWeight
	}
	if b.Material {
		score += materialWeight
	}
	if b.Dimensions {
		score += dimensionsWeight
	}
	if b.Region {
		score += regionWeight
	}
	if score > maxScore {
		score = maxScore
	}
	b.Score = score
	return b
}

// fits requires the manufacturer to have declared a size envelope at all;
// an undeclared envelope is not a match.
func fits(part, envelope models.Dimensions) bool {
	if envelope.Length <= 0 && envelope.Width <= 0 && envelope.Height <= 0 {
		return false
	}
	return part.Length <= envelope.Length && part.Width <= envelope.Width && part.Height <= envelope.Height
}

func containsExact(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
