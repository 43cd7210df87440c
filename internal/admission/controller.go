// Package admission decides whether a generation request may proceed to
// expensive work. The per-user cooldown is checked first, then an advisory
// read of the shared daily quota; the authoritative quota commit happens
// later, only after a successful generation.
package admission

import (
	"context"
	"time"

	"akelarre/internal/cooldown"
	"akelarre/internal/quota"
)

type Decision int

const (
	Admitted Decision = iota
	DeniedCooldown
	DeniedQuotaExhausted
)

// Result carries the decision plus, for cooldown denials, the remaining wait.
type Result struct {
	Decision   Decision
	RetryAfter time.Duration
}

// Controller orchestrates the cooldown guard and the quota ledger into a
// single admit/reject decision.
type Controller struct {
	guard  *cooldown.Guard
	ledger quota.Ledger
}

func NewController(guard *cooldown.Guard, ledger quota.Ledger) *Controller {
	return &Controller{guard: guard, ledger: ledger}
}

// Admit runs the cheap per-user check before touching the shared ledger.
// A cooldown denial returns immediately with no other state change. A quota
// denial does not release the cooldown slot reserved in step one: the user
// did trigger an attempt. Ledger read errors fail closed as quota denials.
func (c *Controller) Admit(ctx context.Context, userID string, now time.Time, day string) (Result, error) {
	if remaining, ok := c.guard.CheckAndReserve(userID, now); !ok {
		return Result{Decision: DeniedCooldown, RetryAfter: remaining}, nil
	}
	count, err := c.ledger.Count(ctx, day)
	if err != nil {
		return Result{Decision: DeniedQuotaExhausted}, err
	}
	if count >= c.ledger.Ceiling() {
		return Result{Decision: DeniedQuotaExhausted}, nil
	}
	return Result{Decision: Admitted}, nil
}
