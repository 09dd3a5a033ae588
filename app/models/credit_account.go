package models

import "time"

// CreditAccount holds the authoritative credit balance for a user. The user id
// is the opaque subject issued by the external auth provider, so there is no
// local users table to join against.
type CreditAccount struct {
	UserID    string    `gorm:"primaryKey;type:varchar(191)" json:"user_id"`
	Credits   int64     `gorm:"not null;default:0" json:"credits"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CreditAccount) TableName() string {
	return "user_credits"
}
