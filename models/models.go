package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Role string

const (
	RoleBuyer        Role = "BUYER"
	RoleManufacturer Role = "MANUFACTURER"
	RoleHybrid       Role = "HYBRID"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleManufacturer, RoleHybrid:
		return true
	}
	return false
}

// CanBuy reports whether the role may author RFQs.
func (r Role) CanBuy() bool { return r == RoleBuyer || r == RoleHybrid }

// CanManufacture reports whether the role may bid on RFQs.
func (r Role) CanManufacture() bool { return r == RoleManufacturer || r == RoleHybrid }

type ManufacturerStatus string

const (
	ManufacturerPendingReview ManufacturerStatus = "PENDING_REVIEW"
	ManufacturerActive        ManufacturerStatus = "ACTIVE"
	ManufacturerSuspended     ManufacturerStatus = "SUSPENDED"
)

type Technology string

const (
	TechCNC              Technology = "CNC"
	TechTurning          Technology = "TURNING"
	TechMilling          Technology = "MILLING"
	Tech3DPrinting       Technology = "3D_PRINTING"
	TechSheetMetal       Technology = "SHEET_METAL"
	TechDieCasting       Technology = "DIE_CASTING"
	TechInjectionMolding Technology = "INJECTION_MOLDING"
	TechStamping         Technology = "STAMPING"
	TechWelding          Technology = "WELDING"
	TechAssembly         Technology = "ASSEMBLY"
	TechOther            Technology = "OTHER"
)

var technologies = map[Technology]bool{
	TechCNC: true, TechTurning: true, TechMilling: true, Tech3DPrinting: true,
	TechSheetMetal: true, TechDieCasting: true, TechInjectionMolding: true,
	TechStamping: true, TechWelding: true, TechAssembly: true, TechOther: true,
}

func (t Technology) Valid() bool { return technologies[t] }

type Certificate string

const (
	CertISO9001   Certificate = "ISO_9001"
	CertISO13485  Certificate = "ISO_13485"
	CertAS9100    Certificate = "AS9100"
	CertIATF16949 Certificate = "IATF_16949"
	CertROHS      Certificate = "ROHS"
	CertOther     Certificate = "OTHER"
)

func (c Certificate) Valid() bool {
	switch c {
	case CertISO9001, CertISO13485, CertAS9100, CertIATF16949, CertROHS, CertOther:
		return true
	}
	return false
}

// Dimensions are in millimetres.
type Dimensions struct {
	Length   float64 `json:"length"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Diameter float64 `json:"diameter,omitempty"`
}

type ManufacturerSettings struct {
	Technologies  []string `json:"technologies"`
	Materials     []string `json:"materials"`
	PartTypes     []string `json:"partTypes"`
	Machinery     []string `json:"machinery"`
	RegionsServed []string `json:"regionsServed"`
	Languages     []string `json:"languages"`
}

type BuyerSettings struct {
	DefaultCountry        string `json:"defaultCountry"`
	DefaultRegion         string `json:"defaultRegion"`
	PreferredCurrency     string `json:"preferredCurrency"`
	DefaultIncoterms      string `json:"defaultIncoterms"`
	CommunicationLanguage string `json:"communicationLanguage"`
}

// User is a marketplace participant together with its capability profile.
type User struct {
	ID                   uuid.UUID            `db:"id" json:"id"`
	Email                string               `db:"email" json:"email"`
	FullName             string               `db:"full_name" json:"fullName"`
	Role                 Role                 `db:"role" json:"userType"`
	CompanyName          string               `db:"company_name" json:"companyName"`
	PhoneNumber          string               `db:"phone_number" json:"phoneNumber"`
	Website              string               `db:"website" json:"website"`
	GSTNumber            string               `db:"gst_number" json:"gstNumber"`
	Address              string               `db:"address" json:"address"`
	City                 string               `db:"city" json:"city"`
	State                string               `db:"state" json:"state"`
	ZipCode              string               `db:"zip_code" json:"zipCode"`
	Country              string               `db:"country" json:"country"`
	Region               string               `db:"region" json:"region"`
	CompanySize          string               `db:"company_size" json:"companySize"`
	YearsInBusiness      int                  `db:"years_in_business" json:"yearsInBusiness"`
	IndustryVertical     string               `db:"industry_vertical" json:"industryVertical"`
	ManufacturingTypes   pq.StringArray       `db:"manufacturing_types" json:"manufacturingTypes"`
	PrimaryMaterials     pq.StringArray       `db:"primary_materials" json:"primaryMaterials"`
	Certifications       pq.StringArray       `db:"certifications" json:"certifications"`
	FacilityPhotos       pq.StringArray       `db:"facility_photos" json:"facilityPhotos"`
	MaxDimensions        Dimensions           `db:"max_dimensions" json:"maxDimensions"`
	ManufacturerSettings ManufacturerSettings `db:"manufacturer_settings" json:"manufacturerSettings"`
	BuyerSettings        BuyerSettings        `db:"buyer_settings" json:"buyerSettings"`
	ManufacturerStatus   ManufacturerStatus   `db:"manufacturer_status" json:"manufacturerStatus,omitempty"`
	RatingAverage        float64              `db:"rating_average" json:"ratingAverage"`
	RatingCount          int                  `db:"rating_count" json:"ratingCount"`
	CreatedAt            time.Time            `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time            `db:"updated_at" json:"updatedAt"`
}

// ProfileCompleteness scores how much of the manufacturer profile is filled in.
// Buyers have nothing to complete.
func (u *User) ProfileCompleteness() int {
	if !u.Role.CanManufacture() {
		return 100
	}
	score := 0
	if len(u.ManufacturingTypes) > 0 {
		score += 20
	}
	if u.MaxDimensions.Length > 0 || u.MaxDimensions.Width > 0 || u.MaxDimensions.Height > 0 {
		score += 20
	}
	if len(u.FacilityPhotos) > 0 {
		score += 15
	}
	if len(u.PrimaryMaterials) > 0 {
		score += 15
	}
	if len(u.Certifications) > 0 {
		score += 15
	}
	if u.GSTNumber != "" {
		score += 15
	}
	return score
}

// Validate checks the profile fields a user edits.
func (u *User) Validate() error {
	if !u.Role.Valid() {
		return validationErr("unknown userType %q", u.Role)
	}
	if len(u.FullName) > 200 || len(u.CompanyName) > 200 {
		return validationErr("names max length 200")
	}
	for _, t := range u.ManufacturingTypes {
		if !Technology(t).Valid() {
			return validationErr("unknown manufacturing type %q", t)
		}
	}
	for _, c := range u.Certifications {
		if !Certificate(c).Valid() {
			return validationErr("unknown certificate %q", c)
		}
	}
	d := u.MaxDimensions
	if d.Length < 0 || d.Width < 0 || d.Height < 0 || d.Diameter < 0 {
		return validationErr("maxDimensions must not be negative")
	}
	if u.YearsInBusiness < 0 {
		return validationErr("yearsInBusiness must not be negative")
	}
	return nil
}
