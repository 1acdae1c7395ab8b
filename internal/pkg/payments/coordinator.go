package payments

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/BenKrueger/DealerDesk/app/models"
	"github.com/BenKrueger/DealerDesk/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// Coordinator applies a claimed, order-accepted event and its dependent
// mutations atomically. Every code path runs inside a single repository
// transaction: the idempotency claim, the aggregate write, the tier change
// and the audit entry commit together or not at all.
type Coordinator struct {
	repo Repository
}

// NewCoordinator creates a coordinator from an injected repository.
func NewCoordinator(repo Repository) *Coordinator {
	return &Coordinator{repo: repo}
}

// ApplySubscriptionEvent processes one subscription-scoped webhook event.
// Duplicates and stale events come back as acknowledged no-ops; only storage
// failures return a non-nil error, and those leave the event unclaimed.
func (c *Coordinator) ApplySubscriptionEvent(ctx context.Context, ev WebhookEvent) (*ProcessingResult, error) {
	res := &ProcessingResult{
		Outcome:       OutcomeApplied,
		EventID:       ev.ID,
		AggregateType: models.AggregateTypeSubscription,
		AggregateID:   ev.SubscriptionID,
	}

	err := c.repo.Transaction(ctx, func(tx Repository) error {
		claimed, err := tx.ClaimEvent(&models.IdempotencyRecord{
			EventID:       ev.ID,
			AggregateType: models.AggregateTypeSubscription,
			AggregateID:   ev.SubscriptionID,
			AppliedAt:     time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if !claimed {
			res.Outcome = OutcomeDuplicate
			return nil
		}

		sub, err := tx.GetSubscriptionForUpdate(ev.provider(), ev.SubscriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if canCreateAggregate(ev) {
					return c.createSubscription(tx, ev, res)
				}
				// Retries cannot manufacture a missing aggregate; claim the
				// event and acknowledge so the provider stops redelivering.
				res.NoOp = true
				res.MissingAggregate = true
				return nil
			}
			return err
		}

		if !acceptEventTime(sub.LastEventAt, ev.CreatedAt) {
			res.Outcome = OutcomeStaleIgnored
			return nil
		}

		oldState := sub.State
		newState := NextState(oldState, ev.Type)
		if oldState.IsTerminal() {
			// Second guard against transition-table mistakes.
			newState = oldState
		}

		eventAt := ev.CreatedAt
		sub.State = newState
		sub.LastEventAt = &eventAt
		sub.Tier = string(entitlements.PlanForSubscriptionState(newState))
		if err := tx.SaveSubscription(sub); err != nil {
			return err
		}

		if err := reconcileUserTier(tx, sub.UserID, newState); err != nil {
			return err
		}

		if err := tx.CreateAuditLogEntry(&models.AuditLogEntry{
			AggregateID: ev.SubscriptionID,
			EventID:     ev.ID,
			Action:      models.AuditActionStateChange,
			OldValue:    string(oldState),
			NewValue:    string(newState),
		}); err != nil {
			return err
		}

		res.OldState = oldState
		res.NewState = newState
		res.CancellationApplied = !oldState.IsTerminal() && newState.IsTerminal()
		return nil
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res, err
	}
	return res, nil
}

// canCreateAggregate reports whether a subscription event may create the
// aggregate it references. Lifecycle events arriving out of causal order may
// reach us before the checkout that logically created the subscription, so
// any lifecycle event with a user linkage materializes the aggregate; the
// ordering guard then rejects the late-arriving earlier events as stale.
func canCreateAggregate(ev WebhookEvent) bool {
	if ev.UserID == 0 {
		return false
	}
	switch ev.Type {
	case EventCheckoutCompleted, EventInvoicePaid, EventInvoicePaymentFailed, EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

func (c *Coordinator) createSubscription(tx Repository, ev WebhookEvent, res *ProcessingResult) error {
	// A fresh subscription starts from the active baseline; the creating
	// event's transition decides the initial durable state.
	state := NextState(models.SubscriptionStateActive, ev.Type)
	eventAt := ev.CreatedAt
	sub := &models.Subscription{
		UserID:                 ev.UserID,
		Provider:               ev.provider(),
		ExternalSubscriptionID: ev.SubscriptionID,
		State:                  state,
		Tier:                   string(entitlements.PlanForSubscriptionState(state)),
		LastEventAt:            &eventAt,
	}
	if err := tx.CreateSubscription(sub); err != nil {
		return err
	}
	if err := reconcileUserTier(tx, ev.UserID, state); err != nil {
		return err
	}
	if err := tx.CreateAuditLogEntry(&models.AuditLogEntry{
		AggregateID: ev.SubscriptionID,
		EventID:     ev.ID,
		Action:      models.AuditActionSubscriptionCreated,
		OldValue:    "",
		NewValue:    string(state),
	}); err != nil {
		return err
	}
	res.OldState = ""
	res.NewState = state
	res.CancellationApplied = state.IsTerminal()
	return nil
}

// ApplyMerchantEvent processes a merchant payment failure: unlist every
// currently listed retailer for the merchant, once per event id. Redelivery
// short-circuits at the ledger and reports zero affected listings instead of
// re-querying and re-unlisting.
func (c *Coordinator) ApplyMerchantEvent(ctx context.Context, ev WebhookEvent) (*ProcessingResult, error) {
	res := &ProcessingResult{
		Outcome:       OutcomeApplied,
		EventID:       ev.ID,
		AggregateType: models.AggregateTypeMerchant,
		AggregateID:   ev.MerchantID,
	}

	err := c.repo.Transaction(ctx, func(tx Repository) error {
		claimed, err := tx.ClaimEvent(&models.IdempotencyRecord{
			EventID:       ev.ID,
			AggregateType: models.AggregateTypeMerchant,
			AggregateID:   ev.MerchantID,
			AppliedAt:     time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if !claimed {
			res.Outcome = OutcomeDuplicate
			return nil
		}

		m, err := tx.GetMerchantForUpdate(ev.MerchantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res.NoOp = true
				res.MissingAggregate = true
				return nil
			}
			return err
		}

		if !acceptEventTime(m.LastEventAt, ev.CreatedAt) {
			res.Outcome = OutcomeStaleIgnored
			return nil
		}

		count, err := tx.UnlistRetailers(ev.MerchantID)
		if err != nil {
			return err
		}

		eventAt := ev.CreatedAt
		m.LastEventAt = &eventAt
		if err := tx.SaveMerchant(m); err != nil {
			return err
		}

		if err := tx.CreateAuditLogEntry(&models.AuditLogEntry{
			AggregateID: ev.MerchantID,
			EventID:     ev.ID,
			Action:      models.AuditActionRetailersUnlisted,
			OldValue:    "",
			NewValue:    strconv.FormatInt(count, 10),
		}); err != nil {
			return err
		}

		res.UnlistedCount = count
		return nil
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res, err
	}
	return res, nil
}

// reconcileUserTier mirrors the subscription state onto the user's
// entitlement plan inside the enclosing transaction.
func reconcileUserTier(tx Repository, userID uint, state models.SubscriptionState) error {
	if userID == 0 {
		return nil
	}
	us, err := tx.GetOrCreateUserSettings(userID)
	if err != nil {
		return err
	}
	plan := entitlements.PlanForSubscriptionState(state)
	if entitlements.Normalize(us.Plan) == plan {
		return nil
	}
	us.Plan = string(plan)
	return tx.SaveUserSettings(us)
}
