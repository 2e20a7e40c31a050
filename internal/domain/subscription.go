package domain

import "time"

// Plan names as stored in subscriptions.plan.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

const SubscriptionActive = "active"

// Subscriber is a membership row for a channel joined with the profile's
// email and plan usage. Email may be empty.
type Subscriber struct {
	ProfileID   string
	Email       string
	Plan        string
	UsageCount  int
	PeriodLimit int
}

// NeedsUpgradePrompt reports whether the rendered email should carry the
// upgrade call-to-action.
func (s Subscriber) NeedsUpgradePrompt() bool {
	if s.Plan == "" || s.Plan == PlanFree {
		return true
	}
	return s.PeriodLimit > 0 && s.UsageCount >= s.PeriodLimit
}

// Subscription is the usage-period state of a profile.
type Subscription struct {
	ProfileID   string
	Plan        string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
	UsageCount  int
	PeriodLimit int
}
