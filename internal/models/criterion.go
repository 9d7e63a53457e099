package models

// CloudCriterion is one row of the cloud provider scorecard.
// A Critical criterion scored 0 (or not scored) knocks the whole assessment out.
type CloudCriterion struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Category       string         `gorm:"size:100" json:"category"`
	Criterion      string         `gorm:"type:text;not null" json:"criterion"`
	Description    string         `gorm:"type:text" json:"description"`
	Criticality    Importance     `gorm:"type:varchar(16)" json:"criticality"`
	Points         int            `gorm:"not null;default:0" json:"points"`
	OSINTSource    string         `gorm:"size:100" json:"osint_source"`
	MaturityLevels MaturityLevels `gorm:"serializer:json;type:text" json:"maturity_levels"` // 0..5
	Notes          string         `gorm:"type:text" json:"notes"`
}
