package models

import "time"

// SubscriptionState is the lifecycle state of a subscription aggregate.
type SubscriptionState string

const (
	SubscriptionStateActive    SubscriptionState = "active"
	SubscriptionStateExpired   SubscriptionState = "expired"
	SubscriptionStateCancelled SubscriptionState = "cancelled"
)

// Payment provider constants used across payment-related models.
const (
	PaymentProviderStripe = "stripe"
)

// Subscription mirrors a provider subscription and carries the per-aggregate
// ordering high-water mark. Cancelled is terminal: once reached no event may
// move the aggregate to another state. LastEventAt stores the provider-assigned
// creation timestamp of the last applied event and is monotonically
// non-decreasing over the row's lifetime.
type Subscription struct {
	ID                     uint              `gorm:"primaryKey" json:"id"`
	UserID                 uint              `gorm:"not null;index" json:"user_id"`
	Provider               string            `gorm:"type:varchar(20);not null;index:ux_subscriptions_provider_subid,unique,priority:1" json:"provider"`
	ExternalSubscriptionID string            `gorm:"type:varchar(191);not null;index:ux_subscriptions_provider_subid,unique,priority:2" json:"external_subscription_id"`
	State                  SubscriptionState `gorm:"type:varchar(32);not null;default:'active';index" json:"state"`
	Tier                   string            `gorm:"type:varchar(50);not null;default:'free'" json:"tier"`
	LastEventAt            *time.Time        `gorm:"type:datetime(6);default:null" json:"last_event_at,omitempty"`
	CreatedAt              time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the state admits no further transitions.
func (s SubscriptionState) IsTerminal() bool {
	return s == SubscriptionStateCancelled
}
