package models

import "time"

// ProcessedPaymentEvent records a payment event whose credits were already
// applied. The primary key on EventID is the deduplication guard: a row exists
// iff the corresponding balance increment was committed, and rows are never
// updated or deleted.
type ProcessedPaymentEvent struct {
	EventID     string    `gorm:"primaryKey;type:varchar(191)" json:"event_id"`
	UserID      string    `gorm:"type:varchar(191);not null;index" json:"user_id"`
	Credits     int64     `gorm:"not null" json:"credits"`
	ProcessedAt time.Time `gorm:"autoCreateTime" json:"processed_at"`
}

func (ProcessedPaymentEvent) TableName() string {
	return "processed_payment_events"
}
