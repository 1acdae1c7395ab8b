package payments

import (
	"context"
	"errors"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/BenKrueger/DealerDesk/app/models"
)

// Outcome is the dispatcher's terminal state for one delivery. Applied,
// duplicate and stale are all success from the provider's perspective (ack,
// do not redeliver); failed asks the provider to retry later.
type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeStaleIgnored Outcome = "stale_ignored"
	OutcomeFailed       Outcome = "failed"
)

// ProcessingResult reports what one delivery did.
type ProcessingResult struct {
	Outcome       Outcome
	EventID       string
	AggregateType string
	AggregateID   string

	OldState models.SubscriptionState
	NewState models.SubscriptionState

	// UnlistedCount is the number of retailer listings removed by a merchant
	// payment failure; zero on redelivery.
	UnlistedCount int64

	// NoOp marks acknowledged events that changed nothing (unknown aggregate).
	NoOp             bool
	MissingAggregate bool

	// CancellationApplied marks the transition into the terminal state, which
	// triggers the outbound price-correction job.
	CancellationApplied bool

	Err error
}

// Ack reports whether the provider should treat the delivery as done.
func (r *ProcessingResult) Ack() bool {
	return r.Outcome != OutcomeFailed
}

// JobEmitter hands follow-up work to the platform job queue. The queue
// deduplicates by job id and is fire-and-forget: it is never part of the
// core's consistency guarantees.
type JobEmitter interface {
	EnqueuePriceCorrection(ctx context.Context, scope, correlationID string) error
}

// Dispatcher routes a verified, deserialized webhook event to the right
// aggregate handler and runs ledger check, ordering guard, transition and
// side effects as one logical unit per aggregate.
type Dispatcher struct {
	coordinator *Coordinator
	jobs        JobEmitter
}

// NewDispatcher creates a dispatcher over an injected repository. jobs may be
// nil when no queue is wired (tests, migration tooling).
func NewDispatcher(repo Repository, jobs JobEmitter) *Dispatcher {
	return &Dispatcher{coordinator: NewCoordinator(repo), jobs: jobs}
}

var errEmptyEventID = errors.New("webhook event has no id")

// Handle processes one delivery end to end and never panics across the
// boundary; the caller maps the outcome onto an HTTP status.
func (d *Dispatcher) Handle(ctx context.Context, ev WebhookEvent) *ProcessingResult {
	if ev.ID == "" {
		return &ProcessingResult{Outcome: OutcomeFailed, Err: errEmptyEventID}
	}

	var res *ProcessingResult
	var err error
	if ev.Type.IsMerchantEvent() {
		res, err = d.coordinator.ApplyMerchantEvent(ctx, ev)
	} else {
		res, err = d.coordinator.ApplySubscriptionEvent(ctx, ev)
	}
	if err != nil {
		fiberlog.Errorf("[Payments] event %s failed: %v", ev.ID, err)
		return res
	}

	switch res.Outcome {
	case OutcomeDuplicate:
		fiberlog.Infof("[Payments] event %s already applied, skipping", ev.ID)
	case OutcomeStaleIgnored:
		fiberlog.Infof("[Payments] event %s ignored, superseded by newer event on %s %s",
			ev.ID, res.AggregateType, res.AggregateID)
	case OutcomeApplied:
		if res.MissingAggregate {
			fiberlog.Warnf("[Payments] event %s references unknown %s %s, acknowledged as no-op",
				ev.ID, res.AggregateType, res.AggregateID)
			break
		}
		fiberlog.Infof("[Payments] event %s applied to %s %s (%s -> %s)",
			ev.ID, res.AggregateType, res.AggregateID, res.OldState, res.NewState)
		d.emitFollowUps(ctx, ev, res)
	}
	return res
}

func (d *Dispatcher) emitFollowUps(ctx context.Context, ev WebhookEvent, res *ProcessingResult) {
	if d.jobs == nil || !res.CancellationApplied {
		return
	}
	// A cancellation can change visible pricing; the pricing worker dedupes
	// by job id, so a lost enqueue is corrected on the next reconciliation.
	scope := "pricing:subscription:" + ev.SubscriptionID
	if err := d.jobs.EnqueuePriceCorrection(ctx, scope, uuid.NewString()); err != nil {
		fiberlog.Errorf("[Payments] price correction enqueue failed for %s: %v", scope, err)
	}
}
