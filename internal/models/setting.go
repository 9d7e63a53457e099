package models

const (
	SettingOrgName = "orgName"

	DefaultOrgName = "Your Organisation"
)

type Setting struct {
	Key   string `gorm:"primaryKey;size:64" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}
