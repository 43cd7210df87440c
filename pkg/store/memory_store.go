package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"akelarre/pkg/domain"
)

// MemoryStore keeps users and records in-process. Used by tests and local
// runs without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User // key: user ID
	names   map[string]string      // name -> user ID
	records []domain.GenerationRecord
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		names: make(map[string]string),
	}
}

// GetOrCreateUserByName resolves or registers a display name.
func (m *MemoryStore) GetOrCreateUserByName(name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, errors.New("name required")
	}
	if len(name) > MaxNameLength {
		return domain.User{}, fmt.Errorf("name exceeds %d characters", MaxNameLength)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.names[name]; ok {
		return m.users[id], nil
	}
	user := domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	m.users[user.ID] = user
	m.names[name] = user.ID
	return user, nil
}

// GetUserByID fetches a user by id.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	return user, ok, nil
}

// UserCount returns the number of registered users.
func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// SaveRecord appends a generation record.
func (m *MemoryStore) SaveRecord(rec domain.GenerationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// ListRecordsByUser returns the user's records, newest first.
func (m *MemoryStore) ListRecordsByUser(userID string, limit int) ([]domain.GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.GenerationRecord, 0)
	for _, rec := range m.records {
		if rec.UserID == userID {
			res = append(res, rec)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// RecordCount returns the total number of records.
func (m *MemoryStore) RecordCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}
