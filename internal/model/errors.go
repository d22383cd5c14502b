package model

import (
	"errors"
	"fmt"
)

// ValidationError reports a violated invariant: a booking both confirmed and
// cancelled, two options for the same choice, a payment recorded on a booking
// that owes nothing, inconsistent close dates.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Message
}

// CapacityError reports that an event or session has no slot left at the
// moment a booking tries to take one.
type CapacityError struct {
	// Scope is "event" or "session".
	Scope string
	// Title names the full event or session.
	Title string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity: %s %q is fully booked", e.Scope, e.Title)
}

// AuthorizationError reports that the acting person may not perform an
// action. The rules never raise it themselves; callers raise it after
// consulting the UserCan* predicates.
type AuthorizationError struct {
	Action string
	Actor  string
}

func (e *AuthorizationError) Error() string {
	if e.Actor == "" {
		return fmt.Sprintf("authorization: anonymous user may not %s", e.Action)
	}
	return fmt.Sprintf("authorization: %s may not %s", e.Actor, e.Action)
}

// NotFoundError reports a referenced entity that does not exist, or does not
// belong to the expected event.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, e.ID)
}

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func notFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCapacity reports whether err wraps a *CapacityError.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// IsAuthorization reports whether err wraps an *AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
