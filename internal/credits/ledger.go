// Package credits is the read model over the account's credit balance. The
// backend is the only authority: credits are charged server-side on
// successful completion, never simulated locally into the authoritative
// value.
package credits

import (
	"context"
	"fmt"
	"sync"

	"github.com/gitpusher/pushkit/internal/models"
)

// Source is the origin of a credit value. The tagged variant keeps a QA
// simulation from ever being mistaken for backend state or transmitted as
// such.
type Source int

const (
	SourceAuthoritative Source = iota
	SourceSimulated
)

// UnlimitedSentinel is rendered for plan tiers with unmetered usage.
const UnlimitedSentinel = "unlimited"

// Fetcher is the slice of the API the ledger depends on.
type Fetcher interface {
	CreditBalance(ctx context.Context) (models.CreditBalance, error)
}

// Display is what the view layer renders.
type Display struct {
	Text      string
	Simulated bool // true → must carry a visible test-mode marker
}

func (d Display) String() string {
	if d.Simulated {
		return d.Text + " [test mode]"
	}
	return d.Text
}

// Ledger reconciles the authoritative balance with an optional,
// display-only simulation override.
type Ledger struct {
	fetcher Fetcher

	mu        sync.Mutex
	balance   models.CreditBalance
	loaded    bool
	simulated *int
}

// NewLedger builds a ledger over fetcher.
func NewLedger(fetcher Fetcher) *Ledger {
	return &Ledger{fetcher: fetcher}
}

// Refresh loads the authoritative balance from the backend.
func (l *Ledger) Refresh(ctx context.Context) error {
	balance, err := l.fetcher.CreditBalance(ctx)
	if err != nil {
		return fmt.Errorf("refresh credit balance: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = balance
	l.loaded = true
	return nil
}

// OnWorkflowCompleted is wired to the workflow controller's completion
// callback. Completion may have charged a credit server-side, so the
// authoritative value is re-fetched; nothing is decremented locally.
func (l *Ledger) OnWorkflowCompleted(ctx context.Context) func(models.Project) {
	return func(models.Project) {
		if err := l.Refresh(ctx); err != nil {
			// Display keeps the previous value until the next refresh.
			return
		}
	}
}

// Simulate overrides the rendered value for QA/demo purposes. The override
// shadows rendering only; Value and the backend never see it.
func (l *Ledger) Simulate(credits int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.simulated = &credits
}

// ClearSimulation removes the override.
func (l *Ledger) ClearSimulation() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.simulated = nil
}

// Value returns the authoritative balance and its source tag. Always
// SourceAuthoritative: the simulation is reachable only through Render.
func (l *Ledger) Value() (models.CreditBalance, Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance, SourceAuthoritative
}

// Render produces the display value. Premium and business tiers always
// render the unlimited sentinel regardless of the numeric field, which the
// backend may still populate for internal bookkeeping. An active simulation
// fully shadows the authoritative value and is flagged for the test-mode
// marker.
func (l *Ledger) Render() Display {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.simulated != nil {
		return Display{Text: fmt.Sprintf("%d", *l.simulated), Simulated: true}
	}
	if l.balance.Plan.Unlimited() {
		return Display{Text: UnlimitedSentinel}
	}
	if !l.loaded {
		return Display{Text: "-"}
	}
	return Display{Text: fmt.Sprintf("%d", l.balance.Credits)}
}
