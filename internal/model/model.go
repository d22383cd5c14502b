// Package model defines the booking domain and its rules engine: who may see
// and book an event, what each booker owes, and how bookings move between
// confirmed and cancelled while staying consistent.
//
// Nothing here performs I/O. Callers load an Event aggregate, call the rules
// and operations on it, then persist the result. Operations that consume
// capacity must run while the caller holds a lock on the event.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// DefaultTimezone is used when an event does not name one.
const DefaultTimezone = "Europe/London"

// PubStatus controls who can see and book an event.
type PubStatus string

const (
	// StatusPublic: visible and bookable by everyone signed in.
	StatusPublic PubStatus = "PUBLIC"
	// StatusRestricted: visible and bookable by invited groups.
	StatusRestricted PubStatus = "RESTRICTED"
	// StatusPrivate: visible by participants, bookable by everyone signed in.
	StatusPrivate PubStatus = "PRIVATE"
	// StatusUnpublished: visible by organisers, not bookable.
	StatusUnpublished PubStatus = "UNPUBLISHED"
	// StatusArchived: hidden unless archives are requested, not bookable.
	StatusArchived PubStatus = "ARCHIVED"
)

// ParsePubStatus accepts a status name in any case.
func ParsePubStatus(s string) (PubStatus, error) {
	switch st := PubStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPublic, StatusRestricted, StatusPrivate, StatusUnpublished, StatusArchived:
		return st, nil
	case "":
		return StatusUnpublished, nil
	default:
		return "", invalidf("unknown publication status %q", s)
	}
}

// isOpenForBooking reports whether the status lets bookings and choices change.
func (s PubStatus) isOpenForBooking() bool {
	return s == StatusPublic || s == StatusRestricted || s == StatusPrivate
}

// Person is a signed-in user (or the anonymous user when ID is empty) together
// with the groups they belong to.
type Person struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email,omitempty"`
	Superuser bool     `json:"superuser,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

// IsAnonymous reports whether p is the anonymous user.
func (p Person) IsAnonymous() bool {
	return p.ID == ""
}

// Event is the aggregate root: categories, sessions, choices and bookings are
// only reached and mutated through it.
type Event struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	Timezone        string     `json:"timezone"`
	PubStatus       PubStatus  `json:"pub_status"`
	LocationName    string     `json:"location_name,omitempty"`
	LocationAddress string     `json:"location_address,omitempty"`
	BookingClose    *time.Time `json:"booking_close,omitempty"`
	ChoicesClose    *time.Time `json:"choices_close,omitempty"`
	// MaxParticipants of 0 means unlimited.
	MaxParticipants int       `json:"max_participants"`
	PriceCurrency   string    `json:"price_currency,omitempty"`
	Owner           Person    `json:"owner"`
	Organisers      []Person  `json:"organisers"`
	CreatedAt       time.Time `json:"created_at"`

	// Categories are kept sorted by Order; the first match wins.
	Categories []Category `json:"categories"`
	Sessions   []Session  `json:"sessions"`
	Choices    []Choice   `json:"choices"`
	Bookings   []*Booking `json:"-"`
}

func (e *Event) String() string {
	s := fmt.Sprintf("%s - %s", e.Title, e.Start.Format("2006-01-02 15:04"))
	if e.End != nil {
		s += " to " + e.End.Format("2006-01-02 15:04")
	}
	return s
}

// Category is an ordered pricing rule matched on group membership: a person
// matches when they belong to any group of Groups1 and to any group of
// Groups2, an empty set matching everyone.
type Category struct {
	ID      string      `json:"id"`
	Order   int         `json:"order"`
	Name    string      `json:"name"`
	Price   apd.Decimal `json:"price"`
	Groups1 []string    `json:"groups1,omitempty"`
	Groups2 []string    `json:"groups2,omitempty"`
}

// Session is a sub-slot of an event with its own capacity.
type Session struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	// MaxParticipants of 0 means unlimited.
	MaxParticipants int `json:"max_participants"`
}

// Choice is a decision every booker makes, such as a meal. Exactly one of its
// options is the default.
type Choice struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Options []Option `json:"options"`
}

// Option is one answer to a Choice.
type Option struct {
	ID       string `json:"id"`
	ChoiceID string `json:"choice_id"`
	Title    string `json:"title"`
	Default  bool   `json:"default"`
}

// Booking is a person's registration to an event.
type Booking struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Person    Person    `json:"person"`
	SessionID string    `json:"session_id,omitempty"`
	Lifecycle Lifecycle `json:"lifecycle"`
	// Payment is nil until an organiser records money (or an exemption).
	Payment         *Payment        `json:"payment,omitempty"`
	ExemptOfPayment bool            `json:"exempt_of_payment"`
	Options         []BookingOption `json:"options"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Payment records who collected the money and when. Both halves always travel
// together.
type Payment struct {
	PaidTo   string    `json:"paid_to"`
	DatePaid time.Time `json:"date_paid"`
}

// BookingOption is the option a booking picked for one choice.
type BookingOption struct {
	ID       string `json:"id"`
	OptionID string `json:"option_id"`
	ChoiceID string `json:"choice_id"`
}

// ─── Request payloads ────────────────────────────────────────────────────────

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title           string     `json:"title" validate:"required,max=64"`
	Description     string     `json:"description"`
	Start           time.Time  `json:"start" validate:"required"`
	End             *time.Time `json:"end"`
	Timezone        string     `json:"timezone"`
	PubStatus       string     `json:"pub_status" validate:"omitempty,oneof=PUBLIC RESTRICTED PRIVATE UNPUBLISHED ARCHIVED"`
	LocationName    string     `json:"location_name" validate:"max=64"`
	LocationAddress string     `json:"location_address"`
	BookingClose    *time.Time `json:"booking_close"`
	ChoicesClose    *time.Time `json:"choices_close"`
	MaxParticipants int        `json:"max_participants" validate:"gte=0,lte=32767"`
	PriceCurrency   string     `json:"price_currency" validate:"omitempty,len=3"`
	OrganiserIDs    []string   `json:"organiser_ids"`
}

// CategoryInput describes one category in a categories update.
type CategoryInput struct {
	Order   int      `json:"order"`
	Name    string   `json:"name" validate:"required,max=64"`
	Price   string   `json:"price" validate:"required,numeric"`
	Groups1 []string `json:"groups1"`
	Groups2 []string `json:"groups2"`
}

// SessionInput describes a new session.
type SessionInput struct {
	Title           string     `json:"title" validate:"required,max=64"`
	Start           *time.Time `json:"start"`
	End             *time.Time `json:"end"`
	MaxParticipants int        `json:"max_participants" validate:"gte=0"`
}

// ChoiceInput describes a new choice and its options.
type ChoiceInput struct {
	Title   string   `json:"title" validate:"required,max=64"`
	Options []string `json:"options" validate:"required,min=1,dive,required,max=256"`
	// Default indexes Options.
	Default int `json:"default" validate:"gte=0"`
}

// OptionInput is the payload adding an option to a choice.
type OptionInput struct {
	Title   string `json:"title" validate:"required,max=256"`
	Default bool   `json:"default"`
}

// BookRequest creates a booking for the caller, or for PersonID when an
// organiser books on someone's behalf.
type BookRequest struct {
	PersonID string `json:"person_id"`
}

// ConfirmRequest confirms a booking, optionally selecting a session and options.
type ConfirmRequest struct {
	SessionID string   `json:"session_id"`
	OptionIDs []string `json:"option_ids"`
}

// OptionsRequest replaces the options picked by a booking.
type OptionsRequest struct {
	OptionIDs []string `json:"option_ids" validate:"required,min=1"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
