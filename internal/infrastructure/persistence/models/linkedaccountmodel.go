package models

import "time"

// LinkedAccountModel represents the database persistence model for account keys.
type LinkedAccountModel struct {
	ID                  uint   `gorm:"primarykey"`
	Provider            string `gorm:"not null;size:32;uniqueIndex:idx_provider_username"`
	Username            string `gorm:"not null;size:255;uniqueIndex:idx_provider_username"`
	AccountKey          string `gorm:"not null;size:512"`
	NumberOfAccountKeys int    `gorm:"not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName specifies the table name for GORM
func (LinkedAccountModel) TableName() string {
	return "account_keys"
}
