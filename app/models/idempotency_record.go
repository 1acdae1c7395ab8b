package models

import "time"

// Aggregate type discriminators stored on idempotency records.
const (
	AggregateTypeSubscription = "subscription"
	AggregateTypeMerchant     = "merchant"
)

// IdempotencyRecord marks a provider event id as applied. The primary key on
// EventID is the engine-level uniqueness constraint that serializes racing
// claims for the same event: the insert either wins or affects zero rows,
// never both. At most one record per event id ever exists.
type IdempotencyRecord struct {
	EventID       string    `gorm:"type:varchar(191);primaryKey" json:"event_id"`
	AggregateType string    `gorm:"type:varchar(32);not null;index" json:"aggregate_type"`
	AggregateID   string    `gorm:"type:varchar(191);not null;index" json:"aggregate_id"`
	AppliedAt     time.Time `gorm:"type:datetime(6);not null" json:"applied_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
