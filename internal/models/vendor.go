package models

import "time"

type VendorStatus string

const (
	VendorNew        VendorStatus = "New"
	VendorPotential  VendorStatus = "Potential"
	VendorActive     VendorStatus = "Active"
	VendorProhibited VendorStatus = "Prohibited"
	VendorOffboarded VendorStatus = "Offboarded"
)

func (s VendorStatus) Valid() bool {
	switch s {
	case VendorNew, VendorPotential, VendorActive, VendorProhibited, VendorOffboarded:
		return true
	}
	return false
}

type AssessmentKind string

const (
	KindStandard AssessmentKind = "standard"
	KindCloud    AssessmentKind = "cloud"
)

// Answers maps a question (or criterion) id to the recorded maturity level.
type Answers map[uint]int

// OSINTTarget describes what the OSINT scan looks at for a vendor.
type OSINTTarget struct {
	PrimaryDomain   string            `json:"primary_domain"`
	DMARCSubdomains []string          `json:"dmarc_subdomains,omitempty"`
	URLs            map[string]string `json:"urls,omitempty"` // auxiliary links (trust center, status page)
}

// VendorAssessment is the stored record. Impact, Likelihood, Vulnerability and
// CloudStatus are derived from the inputs on every save and never edited directly.
type VendorAssessment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name               string         `gorm:"size:255;not null" json:"name"`
	Status             VendorStatus   `gorm:"type:varchar(32);not null" json:"status"`
	DataClassification *int           `json:"data_classification"` // tier 1..5, nil on legacy records
	Kind               AssessmentKind `gorm:"type:varchar(16);not null;default:standard" json:"assessment_type"`
	Weakness           string         `gorm:"type:text" json:"weakness"`
	Strength           string         `gorm:"type:text" json:"strength"`

	Answers     Answers         `gorm:"serializer:json;type:text" json:"answers"`
	CloudScores Answers         `gorm:"serializer:json;type:text" json:"cloud_scores"`
	Target      OSINTTarget     `gorm:"serializer:json;type:text" json:"osint_target"`
	Evidence    *EvidenceBundle `gorm:"serializer:json;type:text" json:"evidence"`

	Impact        float64 `gorm:"not null" json:"impact"`
	Likelihood    float64 `gorm:"not null" json:"likelihood"`
	Vulnerability int     `gorm:"not null" json:"vulnerability"`
	CloudStatus   string  `gorm:"size:32" json:"cloud_status,omitempty"`
}
