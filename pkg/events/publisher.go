// Package events publishes generation lifecycle events for capacity
// planning. Publishing is best-effort: a broker outage never blocks or fails
// a generation.
package events

import (
	"context"
	"time"
)

const (
	TypeGenerationCompleted = "generation.completed"
	TypeQuotaExhausted      = "quota.exhausted"
	TypeLedgerCommitLost    = "ledger.commit_rejected"
)

// Event is the JSON payload put on the wire.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId,omitempty"`
	Day        string    `json:"day,omitempty"`
	IsModified bool      `json:"isModified,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
