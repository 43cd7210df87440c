package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestLedger(t *testing.T, ceiling int) (*RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	ledger, err := NewRedisLedger(mr.Addr(), "", "test:quota", ceiling)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return ledger, mr
}

func TestTryIncrementUpToCeiling(t *testing.T) {
	ledger, _ := newTestLedger(t, 3)
	ctx := context.Background()
	day := "2024-01-01"
	for i := 0; i < 3; i++ {
		committed, err := ledger.TryIncrement(ctx, day)
		if err != nil || !committed {
			t.Fatalf("increment %d: committed=%v err=%v", i, committed, err)
		}
	}
	committed, err := ledger.TryIncrement(ctx, day)
	if err != nil {
		t.Fatalf("increment past ceiling errored: %v", err)
	}
	if committed {
		t.Fatalf("increment past ceiling committed")
	}
	count, err := ledger.Count(ctx, day)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestTryIncrementSeparateDays(t *testing.T) {
	ledger, _ := newTestLedger(t, 1)
	ctx := context.Background()
	if committed, _ := ledger.TryIncrement(ctx, "2024-01-01"); !committed {
		t.Fatalf("first day should commit")
	}
	if committed, _ := ledger.TryIncrement(ctx, "2024-01-02"); !committed {
		t.Fatalf("next day has its own counter")
	}
}

func TestTryIncrementNeverExceedsCeilingConcurrently(t *testing.T) {
	const ceiling = 5
	const callers = 40
	ledger, _ := newTestLedger(t, ceiling)
	day := "2024-01-01"

	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			committed, err := ledger.TryIncrement(context.Background(), day)
			if err != nil {
				t.Errorf("try increment: %v", err)
				return
			}
			results <- committed
		}()
	}
	wg.Wait()
	close(results)

	committed := 0
	for ok := range results {
		if ok {
			committed++
		}
	}
	if committed != ceiling {
		t.Fatalf("committed %d increments, want exactly %d", committed, ceiling)
	}
	count, err := ledger.Count(context.Background(), day)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != ceiling {
		t.Fatalf("final count = %d, want %d", count, ceiling)
	}
}

func TestTryIncrementFailsClosed(t *testing.T) {
	ledger, mr := newTestLedger(t, 10)
	mr.Close()
	committed, err := ledger.TryIncrement(context.Background(), "2024-01-01")
	if err == nil {
		t.Fatalf("expected error with redis down")
	}
	if committed {
		t.Fatalf("unreachable store must never report committed")
	}
}

func TestCountMissingDayIsZero(t *testing.T) {
	ledger, _ := newTestLedger(t, 10)
	count, err := ledger.Count(context.Background(), "2030-06-15")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 03:00 on Jan 2 in UTC+9 is still Jan 1 in UTC.
	local := time.Date(2024, 1, 2, 3, 0, 0, 0, loc)
	if got := DayKey(local); got != "2024-01-01" {
		t.Fatalf("DayKey = %q, want 2024-01-01", got)
	}
}

func TestNewRedisLedgerValidation(t *testing.T) {
	if _, err := NewRedisLedger("", "", "p", 1); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := NewRedisLedger("localhost:6379", "", "p", 0); err == nil {
		t.Fatalf("expected error for non-positive ceiling")
	}
}
