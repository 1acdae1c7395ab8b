package models

import "time"

// Audit actions written by the payment core.
const (
	AuditActionSubscriptionCreated = "subscription_created"
	AuditActionStateChange         = "subscription_state_change"
	AuditActionRetailersUnlisted   = "retailers_unlisted"
)

// AuditLogEntry is the append-only trail of applied payment events. Exactly
// one entry is written per successfully applied event, inside the same
// transaction as the aggregate mutation. Entries are never updated or deleted.
type AuditLogEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AggregateID string    `gorm:"type:varchar(191);not null;index" json:"aggregate_id"`
	EventID     string    `gorm:"type:varchar(191);not null;index" json:"event_id"`
	Action      string    `gorm:"type:varchar(64);not null;index" json:"action"`
	OldValue    string    `gorm:"type:varchar(191);default:''" json:"old_value"`
	NewValue    string    `gorm:"type:varchar(191);default:''" json:"new_value"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
