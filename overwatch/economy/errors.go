// Package economy holds the balance ledger error taxonomy shared by the
// gambling commands, the shop coordinator and the cooldown tracker.
package economy

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientFunds is terminal for the current action; nothing has
	// been debited when it surfaces.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrItemNotFound means the requested shop item does not (or no longer)
	// exist.
	ErrItemNotFound = errors.New("shop item not found")

	// ErrRoleUnavailable means a role item references a role that cannot be
	// resolved in the guild anymore.
	ErrRoleUnavailable = errors.New("role unavailable")

	// ErrRoleActive rejects buying a timed role the user already holds an
	// unexpired grant for; nothing has been debited when it surfaces.
	ErrRoleActive = errors.New("temporary role still active")

	// ErrInvalidConfiguration marks an admin-configured record pointing at
	// platform state that no longer exists (e.g. a deleted category).
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// OnCooldownError is returned by the cooldown tracker while an action is
// still gated.
type OnCooldownError struct {
	Action    string
	Remaining time.Duration
}

func (e *OnCooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %s", e.Action, e.Remaining.Round(time.Second))
}

// ExternalErrorKind classifies gateway failures so callers can distinguish
// permission denials from transient API errors.
type ExternalErrorKind string

const (
	ExternalPermission ExternalErrorKind = "permission"
	ExternalTransient  ExternalErrorKind = "transient"
)

// ExternalError wraps a failed platform API call during a grant step.
type ExternalError struct {
	Kind ExternalErrorKind
	Op   string
	Err  error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }
