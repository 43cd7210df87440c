package admission

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"akelarre/internal/cooldown"
	"akelarre/internal/quota"
)

func newController(t *testing.T, window time.Duration, ceiling int) (*Controller, quota.Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	ledger, err := quota.NewRedisLedger(mr.Addr(), "", "test:quota", ceiling)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return NewController(cooldown.NewGuard(window), ledger), ledger, mr
}

func TestAdmitHappyPath(t *testing.T) {
	ctrl, _, _ := newController(t, 15*time.Second, 10)
	res, err := ctrl.Admit(context.Background(), "u1", time.Now(), "2024-01-01")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if res.Decision != Admitted {
		t.Fatalf("decision = %v, want Admitted", res.Decision)
	}
}

func TestAdmitCooldownScenario(t *testing.T) {
	ctrl, _, _ := newController(t, 15*time.Second, 10)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	day := "2024-01-01"

	res, err := ctrl.Admit(ctx, "u1", t0, day)
	if err != nil || res.Decision != Admitted {
		t.Fatalf("t=0: res=%+v err=%v", res, err)
	}
	res, err = ctrl.Admit(ctx, "u1", t0.Add(10*time.Second), day)
	if err != nil {
		t.Fatalf("t=10: %v", err)
	}
	if res.Decision != DeniedCooldown {
		t.Fatalf("t=10: decision = %v, want DeniedCooldown", res.Decision)
	}
	if res.RetryAfter != 5*time.Second {
		t.Fatalf("t=10: retryAfter = %v, want 5s", res.RetryAfter)
	}
	res, err = ctrl.Admit(ctx, "u1", t0.Add(16*time.Second), day)
	if err != nil || res.Decision != Admitted {
		t.Fatalf("t=16: res=%+v err=%v", res, err)
	}
}

func TestAdmitTwiceRapidlyAdmitsAtMostOnce(t *testing.T) {
	ctrl, _, _ := newController(t, 15*time.Second, 10)
	ctx := context.Background()
	now := time.Now()
	admitted := 0
	for i := 0; i < 2; i++ {
		res, err := ctrl.Admit(ctx, "u1", now, "2024-01-01")
		if err != nil {
			t.Fatalf("admit: %v", err)
		}
		if res.Decision == Admitted {
			admitted++
		}
	}
	if admitted != 1 {
		t.Fatalf("admitted %d times, want 1", admitted)
	}
}

func TestAdmitQuotaExhausted(t *testing.T) {
	ctrl, ledger, _ := newController(t, 15*time.Second, 1)
	ctx := context.Background()
	day := "2024-01-01"
	if committed, _ := ledger.TryIncrement(ctx, day); !committed {
		t.Fatalf("seed increment should commit")
	}
	res, err := ctrl.Admit(ctx, "u1", time.Now(), day)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if res.Decision != DeniedQuotaExhausted {
		t.Fatalf("decision = %v, want DeniedQuotaExhausted", res.Decision)
	}
}

func TestAdmitQuotaDenialKeepsCooldownSlot(t *testing.T) {
	ctrl, ledger, _ := newController(t, 15*time.Second, 1)
	ctx := context.Background()
	day := "2024-01-01"
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if committed, _ := ledger.TryIncrement(ctx, day); !committed {
		t.Fatalf("seed increment should commit")
	}

	res, _ := ctrl.Admit(ctx, "u1", now, day)
	if res.Decision != DeniedQuotaExhausted {
		t.Fatalf("decision = %v, want DeniedQuotaExhausted", res.Decision)
	}
	// The attempt consumed the cooldown slot even though quota denied it.
	res, _ = ctrl.Admit(ctx, "u1", now.Add(2*time.Second), day)
	if res.Decision != DeniedCooldown {
		t.Fatalf("decision = %v, want DeniedCooldown after quota denial", res.Decision)
	}
}

func TestAdmitCooldownCheckedBeforeQuota(t *testing.T) {
	ctrl, mrLedger, mr := newController(t, 15*time.Second, 1)
	_ = mrLedger
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	day := "2024-01-01"
	if res, _ := ctrl.Admit(ctx, "u1", now, day); res.Decision != Admitted {
		t.Fatalf("seed admit failed")
	}
	// Even with the ledger unreachable, a cooldown denial returns first and
	// never touches the store.
	mr.Close()
	res, err := ctrl.Admit(ctx, "u1", now.Add(time.Second), day)
	if err != nil {
		t.Fatalf("cooldown denial must not consult the ledger: %v", err)
	}
	if res.Decision != DeniedCooldown {
		t.Fatalf("decision = %v, want DeniedCooldown", res.Decision)
	}
}

func TestAdmitLedgerErrorFailsClosed(t *testing.T) {
	ctrl, _, mr := newController(t, 15*time.Second, 5)
	mr.Close()
	res, err := ctrl.Admit(context.Background(), "u1", time.Now(), "2024-01-01")
	if err == nil {
		t.Fatalf("expected ledger error")
	}
	if res.Decision != DeniedQuotaExhausted {
		t.Fatalf("decision = %v, want fail-closed quota denial", res.Decision)
	}
}
