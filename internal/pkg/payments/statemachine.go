package payments

import (
	"time"

	"github.com/BenKrueger/DealerDesk/app/models"
)

// NextState is the pure transition function for the subscription aggregate.
// It consults nothing but its arguments: no clock, no I/O. Cancelled is
// terminal and absorbs every event. Event types with no row in the table
// leave the state unchanged; they are still claimed and recorded upstream so
// the provider never redelivers them.
func NextState(current models.SubscriptionState, event EventType) models.SubscriptionState {
	if current.IsTerminal() {
		return current
	}

	switch event {
	case EventCheckoutCompleted, EventInvoicePaid:
		// Covers first activation and expired -> active recovery.
		return models.SubscriptionStateActive
	case EventInvoicePaymentFailed:
		if current == models.SubscriptionStateActive {
			return models.SubscriptionStateExpired
		}
		return current
	case EventSubscriptionDeleted:
		return models.SubscriptionStateCancelled
	case EventSubscriptionUpdated, EventMerchantPaymentFailed:
		return current
	default:
		return current
	}
}

// acceptEventTime is the ordering guard: an event is accepted only if its
// provider-assigned timestamp is not older than the aggregate's high-water
// mark. Equal timestamps are accepted (first processed wins); the terminal
// state rule is the safety net for ties.
func acceptEventTime(lastApplied *time.Time, eventAt time.Time) bool {
	if lastApplied == nil {
		return true
	}
	return !eventAt.Before(*lastApplied)
}
