package models

type Importance string

const (
	ImportanceCritical Importance = "Critical"
	ImportanceHigh     Importance = "High"
	ImportanceMedium   Importance = "Medium"
	ImportanceLow      Importance = "Low"
)

func (i Importance) Valid() bool {
	switch i {
	case ImportanceCritical, ImportanceHigh, ImportanceMedium, ImportanceLow:
		return true
	}
	return false
}

// MaturityLevels maps a maturity level to the text describing it.
type MaturityLevels map[int]string

// Question of the standard assessment (NIST CSF aligned).
type Question struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	NISTControl    string         `gorm:"size:32" json:"nist_control"`
	Category       string         `gorm:"size:100" json:"category"`
	PolicyRef      string         `gorm:"size:100" json:"policy_ref"`
	Prompt         string         `gorm:"type:text;not null" json:"question"`
	Weight         Importance     `gorm:"type:varchar(16)" json:"weight"`
	MaturityLevels MaturityLevels `gorm:"serializer:json;type:text" json:"maturity_levels"` // 1..5
	Notes          string         `gorm:"type:text" json:"notes"`
}
