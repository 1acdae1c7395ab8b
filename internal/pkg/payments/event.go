package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BenKrueger/DealerDesk/app/models"
)

// EventType is the closed set of provider webhook event kinds this core
// understands. Anything outside the set is still claimed and acknowledged,
// but produces no state change.
type EventType string

const (
	EventCheckoutCompleted     EventType = "checkout.completed"
	EventInvoicePaid           EventType = "invoice.paid"
	EventInvoicePaymentFailed  EventType = "invoice.payment_failed"
	EventSubscriptionDeleted   EventType = "subscription.deleted"
	EventSubscriptionUpdated   EventType = "subscription.updated"
	EventMerchantPaymentFailed EventType = "merchant.payment_failed"
)

// KnownEventType reports whether t belongs to the closed event taxonomy.
func KnownEventType(t EventType) bool {
	switch t {
	case EventCheckoutCompleted, EventInvoicePaid, EventInvoicePaymentFailed,
		EventSubscriptionDeleted, EventSubscriptionUpdated, EventMerchantPaymentFailed:
		return true
	default:
		return false
	}
}

// IsMerchantEvent reports whether t targets the merchant aggregate rather
// than a subscription.
func (t EventType) IsMerchantEvent() bool {
	return t == EventMerchantPaymentFailed
}

// WebhookEvent is the transient, provider-supplied event after signature
// verification and deserialization. CreatedAt is the provider-assigned
// creation timestamp and is the basis for causal ordering; it is distinct
// from the time the event was received.
type WebhookEvent struct {
	ID             string
	Type           EventType
	CreatedAt      time.Time
	SubscriptionID string
	UserID         uint
	MerchantID     string
	Status         string
}

// provider names the payment provider the event originated from. The portal
// currently integrates a single provider.
func (e WebhookEvent) provider() string {
	return models.PaymentProviderStripe
}

type webhookEnvelope struct {
	ID      string `json:"id" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Created int64  `json:"created" validate:"required,gt=0"`
	Data    struct {
		SubscriptionID string `json:"subscription_id"`
		UserID         uint   `json:"user_id"`
		MerchantID     string `json:"merchant_id"`
		Status         string `json:"status"`
	} `json:"data"`
}

// ParseWebhookEvent decodes and validates the provider webhook envelope.
// The created field carries unix seconds assigned by the provider.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw webhookEnvelope
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if err := validator.New().Struct(&raw); err != nil {
		return nil, fmt.Errorf("invalid webhook envelope: %w", err)
	}

	ev := &WebhookEvent{
		ID:             strings.TrimSpace(raw.ID),
		Type:           EventType(strings.ToLower(strings.TrimSpace(raw.Type))),
		CreatedAt:      time.Unix(raw.Created, 0).UTC(),
		SubscriptionID: strings.TrimSpace(raw.Data.SubscriptionID),
		UserID:         raw.Data.UserID,
		MerchantID:     strings.TrimSpace(raw.Data.MerchantID),
		Status:         strings.TrimSpace(raw.Data.Status),
	}

	if ev.Type.IsMerchantEvent() {
		if ev.MerchantID == "" {
			return nil, errors.New("merchant webhook payload missing merchant id")
		}
		return ev, nil
	}
	if ev.SubscriptionID == "" {
		return nil, errors.New("webhook payload missing subscription id")
	}
	return ev, nil
}
