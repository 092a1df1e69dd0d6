package models

// PlanTier is the subscription tier attached to a session.
type PlanTier string

const (
	PlanFree     PlanTier = "free"
	PlanStarter  PlanTier = "starter"
	PlanPremium  PlanTier = "premium"
	PlanBusiness PlanTier = "business"
)

// Unlimited reports whether the tier renders the unlimited credit sentinel
// regardless of the numeric balance the backend keeps for bookkeeping.
func (p PlanTier) Unlimited() bool {
	return p == PlanPremium || p == PlanBusiness
}

// CreditBalance is the authoritative balance as reported by the backend.
type CreditBalance struct {
	Credits int      `json:"credits"`
	Plan    PlanTier `json:"plan"`
}
