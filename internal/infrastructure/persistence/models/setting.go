package models

import "time"

// Setting keys
const (
	SettingTimeOffsetDays = "time_offset_days"
)

// SettingModel stores a single durable integer setting.
// It lives outside the entity tables so wiping records leaves the slot in place.
type SettingModel struct {
	Key       string    `gorm:"type:varchar(64);primaryKey"`
	IntValue  int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "ledger_settings"
}
