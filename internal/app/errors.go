package app

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuotaExhausted indicates the shared daily ceiling was reached.
	ErrQuotaExhausted = errors.New("daily generation quota exhausted")
	// ErrBackendEmpty indicates the model answered without a usable image.
	// Resubmitting the same request may succeed.
	ErrBackendEmpty = errors.New("model returned no image")
	// ErrBackendUnavailable is the redacted client-facing failure for
	// transport or API errors; the full error is logged server-side.
	ErrBackendUnavailable = errors.New("image backend unavailable")
	// ErrSourceNotFound indicates a transmutation referenced a record the
	// caller does not own or whose asset is gone.
	ErrSourceNotFound = errors.New("source image not found")
)

// CooldownActiveError reports a denial with the remaining wait, rounded up to
// whole seconds by the guard.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("cooldown active: retry in %ds", int(e.Remaining.Seconds()))
}
