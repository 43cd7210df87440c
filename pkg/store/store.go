package store

import "akelarre/pkg/domain"

// Store defines persistence for users and generation records.
type Store interface {
	// users
	GetOrCreateUserByName(name string) (domain.User, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)

	// generation records (append-only)
	SaveRecord(rec domain.GenerationRecord) error
	ListRecordsByUser(userID string, limit int) ([]domain.GenerationRecord, error)
	RecordCount() (int, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
