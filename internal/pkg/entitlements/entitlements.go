package entitlements

import (
	"strings"

	"github.com/BenKrueger/DealerDesk/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Normalize maps arbitrary plan strings onto the closed plan set, falling
// back to free for anything unknown.
func Normalize(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPremium):
		return PlanPremium
	default:
		return PlanFree
	}
}

// Rank orders plans so reconciliation can pick the best entitling plan.
func Rank(plan Plan) int {
	switch plan {
	case PlanPremium:
		return 1
	default:
		return 0
	}
}

// PlanForSubscriptionState derives the entitlement tier from a subscription
// aggregate state: only an active subscription entitles premium.
func PlanForSubscriptionState(state models.SubscriptionState) Plan {
	if state == models.SubscriptionStateActive {
		return PlanPremium
	}
	return PlanFree
}
