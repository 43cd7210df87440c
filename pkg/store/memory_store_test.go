package store

import (
	"strings"
	"testing"
	"time"

	"akelarre/pkg/domain"
)

func TestMemoryStoreGetOrCreateUserStableID(t *testing.T) {
	m := NewMemoryStore()
	first, err := m.GetOrCreateUserByName("ELLoko")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	again, err := m.GetOrCreateUserByName("ELLoko")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("same name produced different ids: %q vs %q", first.ID, again.ID)
	}
	count, _ := m.UserCount()
	if count != 1 {
		t.Fatalf("user count = %d, want 1", count)
	}
}

func TestMemoryStoreRejectsBadNames(t *testing.T) {
	m := NewMemoryStore()
	if _, err := m.GetOrCreateUserByName("   "); err == nil {
		t.Fatalf("expected error for blank name")
	}
	if _, err := m.GetOrCreateUserByName(strings.Repeat("x", MaxNameLength+1)); err == nil {
		t.Fatalf("expected error for oversized name")
	}
}

func TestMemoryStoreRecordsNewestFirst(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := m.SaveRecord(domain.GenerationRecord{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	_ = m.SaveRecord(domain.GenerationRecord{ID: "other", UserID: "u2", CreatedAt: base})

	records, err := m.ListRecordsByUser("u1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].ID != "c" || records[1].ID != "b" {
		t.Fatalf("order wrong: %q, %q", records[0].ID, records[1].ID)
	}
	total, _ := m.RecordCount()
	if total != 4 {
		t.Fatalf("record count = %d, want 4", total)
	}
}
