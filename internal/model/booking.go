package model

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// BookingState is the lifecycle position of a booking.
type BookingState int

const (
	// StateUnconfirmed: active, waiting for the booker to confirm.
	StateUnconfirmed BookingState = iota
	// StateConfirmed: active and confirmed.
	StateConfirmed
	// StateCancelled: not holding a slot. Fresh placeholders start here.
	StateCancelled
)

func (s BookingState) String() string {
	switch s {
	case StateUnconfirmed:
		return "unconfirmed"
	case StateConfirmed:
		return "confirmed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name.
func (s BookingState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Lifecycle holds a booking state with the data that only exists in that
// state. A booking cannot be confirmed and cancelled at once because there
// is a single state.
type Lifecycle struct {
	State BookingState `json:"state"`
	// At is the confirmation or cancellation instant; zero when unconfirmed.
	At time.Time `json:"at,omitzero"`
	// CancelledBy is the person who cancelled. It may be empty for a
	// cancellation whose author was deleted.
	CancelledBy string `json:"cancelled_by,omitempty"`
}

// Unconfirmed is the lifecycle of an active, not yet confirmed booking.
func Unconfirmed() Lifecycle {
	return Lifecycle{State: StateUnconfirmed}
}

// Confirmed is the lifecycle of a booking confirmed at at.
func Confirmed(at time.Time) Lifecycle {
	return Lifecycle{State: StateConfirmed, At: at.UTC()}
}

// Cancelled is the lifecycle of a booking cancelled by personID at at.
func Cancelled(personID string, at time.Time) Lifecycle {
	return Lifecycle{State: StateCancelled, At: at.UTC(), CancelledBy: personID}
}

// LifecycleFromColumns rebuilds a lifecycle from the stored
// (confirmed_on, cancelled_on, cancelled_by) columns.
func LifecycleFromColumns(confirmedOn, cancelledOn *time.Time, cancelledBy *string) (Lifecycle, error) {
	switch {
	case confirmedOn != nil && cancelledOn != nil:
		return Lifecycle{}, invalidf("booking can not be both cancelled and confirmed")
	case cancelledOn != nil:
		by := ""
		if cancelledBy != nil {
			by = *cancelledBy
		}
		return Cancelled(by, *cancelledOn), nil
	case confirmedOn != nil:
		return Confirmed(*confirmedOn), nil
	default:
		return Unconfirmed(), nil
	}
}

// ConfirmedOn is the confirmed_on column: set only when confirmed.
func (l Lifecycle) ConfirmedOn() *time.Time {
	if l.State != StateConfirmed {
		return nil
	}
	at := l.At
	return &at
}

// CancelledOn is the cancelled_on column: set only when cancelled.
func (l Lifecycle) CancelledOn() *time.Time {
	if l.State != StateCancelled {
		return nil
	}
	at := l.At
	return &at
}

// CancelledByColumn is the cancelled_by column.
func (l Lifecycle) CancelledByColumn() *string {
	if l.State != StateCancelled || l.CancelledBy == "" {
		return nil
	}
	by := l.CancelledBy
	return &by
}

// IsCancelled reports whether the booking holds no slot.
func (b *Booking) IsCancelled() bool {
	return b.Lifecycle.State == StateCancelled
}

// IsConfirmed reports whether the booking was confirmed.
func (b *Booking) IsConfirmed() bool {
	return b.Lifecycle.State == StateConfirmed
}

// OptionFor returns the booking's pick for a choice, or nil.
func (b *Booking) OptionFor(choiceID string) *BookingOption {
	for i := range b.Options {
		if b.Options[i].ChoiceID == choiceID {
			return &b.Options[i]
		}
	}
	return nil
}

// PaymentStatus buckets a booking for display.
type PaymentStatus string

const (
	// PaymentRefundNeeded: money was collected but the booking is cancelled.
	PaymentRefundNeeded PaymentStatus = "paid-but-cancelled"
	// PaymentSettled: paid, exempted, or nothing owed.
	PaymentSettled PaymentStatus = "settled"
	// PaymentNotApplicable: cancelled and nothing collected.
	PaymentNotApplicable PaymentStatus = "not-applicable"
	// PaymentAwaiting: active and owing money.
	PaymentAwaiting PaymentStatus = "awaiting-payment"
)

// ─── Queries ─────────────────────────────────────────────────────────────────

// BookingFor returns the booking of a person, or nil.
func (e *Event) BookingFor(personID string) *Booking {
	for _, b := range e.Bookings {
		if b.Person.ID == personID {
			return b
		}
	}
	return nil
}

// FindBooking returns the booking with the given ID.
func (e *Event) FindBooking(id string) (*Booking, error) {
	for _, b := range e.Bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, notFound("booking", id)
}

// MustPay returns what the booker owes: zero when exempt or when the event
// has no categories, UnassignedAmount when no category matches, else the
// category price.
func (e *Event) MustPay(b *Booking) apd.Decimal {
	return mustPay(e, b, e.UserCategory(b.Person))
}

func mustPay(e *Event, b *Booking, cat *Category) apd.Decimal {
	if b.ExemptOfPayment || len(e.Categories) == 0 {
		return ZeroAmount()
	}
	if cat == nil {
		return UnassignedAmount()
	}
	return copyAmount(&cat.Price)
}

// CategoryName returns the booker's category name or UnknownCategory.
func (e *Event) CategoryName(b *Booking) string {
	if cat := e.UserCategory(b.Person); cat != nil {
		return cat.Name
	}
	return UnknownCategory
}

// PaymentStatus classifies the booking's payment state.
func (e *Event) PaymentStatus(b *Booking) PaymentStatus {
	if b.Payment != nil {
		if b.IsCancelled() {
			return PaymentRefundNeeded
		}
		return PaymentSettled
	}
	if b.IsCancelled() {
		return PaymentNotApplicable
	}
	due := e.MustPay(b)
	if due.IsZero() {
		return PaymentSettled
	}
	return PaymentAwaiting
}

// ValidateBooking checks the invariants that cross booking and event: a
// payment on a booking that owes nothing must be an exemption, the session
// and options must belong to the event.
func (e *Event) ValidateBooking(b *Booking) error {
	if b.Payment != nil && !b.ExemptOfPayment {
		due := e.MustPay(b)
		if due.IsZero() {
			return invalidf("%s does not have to pay for %s", b.Person.FullName, e.Title)
		}
	}
	if b.Payment != nil && b.Payment.PaidTo == "" {
		return invalidf("payment without a collecting organiser")
	}
	if b.SessionID != "" {
		if _, err := e.FindSession(b.SessionID); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(b.Options))
	for _, bo := range b.Options {
		choice, _, err := e.FindOption(bo.OptionID)
		if err != nil {
			return err
		}
		if seen[choice.ID] {
			return invalidf("%s already has a choice for %s", b.Person.FullName, choice.Title)
		}
		seen[choice.ID] = true
	}
	return nil
}

// ─── Permissions ─────────────────────────────────────────────────────────────

// UserCanUpdateBooking reports whether actor may change b (session, choices,
// confirmation). Updating a cancelled booking counts as booking again.
func (e *Event) UserCanUpdateBooking(actor Person, b *Booking, now time.Time) bool {
	if e.UserIsOrganiser(actor) {
		return true
	}
	if actor.IsAnonymous() || actor.ID != b.Person.ID {
		return false
	}
	if b.IsCancelled() {
		return e.UserCanBook(actor)
	}
	return e.IsChoicesOpen(now)
}

// UserCanCancel reports whether actor may cancel b.
func (e *Event) UserCanCancel(actor Person, b *Booking, now time.Time) bool {
	isOwnOpen := !actor.IsAnonymous() && actor.ID == b.Person.ID && e.IsBookingOpen(now)
	return isOwnOpen || e.UserIsOrganiser(actor)
}

// UserCanUpdatePayment reports whether actor may record payments.
func (e *Event) UserCanUpdatePayment(actor Person) bool {
	return e.UserIsOrganiser(actor)
}

// ─── Transitions ─────────────────────────────────────────────────────────────

// CreateBooking returns person's booking, creating a cancelled placeholder
// stamped by actor when none exists. created reports which happened.
//
// A booking that would have to take a slot later fails with a CapacityError
// when the event is already full, and no placeholder is created.
func (e *Event) CreateBooking(person, actor Person, now time.Time) (b *Booking, created bool, err error) {
	if person.IsAnonymous() {
		return nil, false, invalidf("anonymous users cannot hold bookings")
	}
	if existing := e.BookingFor(person.ID); existing != nil {
		if existing.IsCancelled() && e.IsFullyBooked() {
			return existing, false, &CapacityError{Scope: "event", Title: e.Title}
		}
		return existing, false, nil
	}
	if e.IsFullyBooked() {
		return nil, false, &CapacityError{Scope: "event", Title: e.Title}
	}
	b = &Booking{
		ID:        newID(),
		EventID:   e.ID,
		Person:    person,
		Lifecycle: Cancelled(actor.ID, now),
		CreatedAt: now.UTC(),
	}
	e.Bookings = append(e.Bookings, b)
	return b, true, nil
}

// ConfirmBooking confirms b at now, optionally moving it to sessionID.
//
// When the event has sessions one must be selected: sessionID, or the session
// the booking already holds. Capacity is checked here, at the moment the
// slot is taken: a cancelled booking needs a free event slot, and a booking
// entering a session it does not already hold needs a free session slot.
// Choices the booking has not answered get their default option.
func (e *Event) ConfirmBooking(b *Booking, sessionID string, now time.Time) error {
	if err := e.owns(b); err != nil {
		return err
	}
	if b.IsCancelled() && e.IsFullyBooked() {
		return &CapacityError{Scope: "event", Title: e.Title}
	}

	if len(e.Sessions) > 0 {
		if sessionID == "" {
			sessionID = b.SessionID
		}
		if sessionID == "" {
			return invalidf("a session must be selected for %s", e.Title)
		}
		s, err := e.FindSession(sessionID)
		if err != nil {
			return err
		}
		if e.IsSessionFullyBooked(s) && (b.IsCancelled() || b.SessionID != s.ID) {
			return &CapacityError{Scope: "session", Title: s.Title}
		}
		b.SessionID = s.ID
	} else if sessionID != "" {
		return notFound("session", sessionID)
	}

	for i := range e.Choices {
		c := &e.Choices[i]
		if b.OptionFor(c.ID) != nil {
			continue
		}
		if def := c.DefaultOption(); def != nil {
			b.Options = append(b.Options, BookingOption{ID: newID(), OptionID: def.ID, ChoiceID: c.ID})
		}
	}

	b.Lifecycle = Confirmed(now)
	return nil
}

// CancelBooking releases b's slot. Options and session are kept so a later
// confirmation restores them.
func (e *Event) CancelBooking(b *Booking, actor Person, now time.Time) error {
	if err := e.owns(b); err != nil {
		return err
	}
	b.Lifecycle = Cancelled(actor.ID, now)
	return nil
}

// SetPayment records that payer collected b's money at now.
func (e *Event) SetPayment(b *Booking, payer Person, now time.Time) error {
	if err := e.owns(b); err != nil {
		return err
	}
	if payer.IsAnonymous() {
		return invalidf("payment must be collected by a known organiser")
	}
	if !b.ExemptOfPayment {
		due := e.MustPay(b)
		if due.IsZero() {
			return invalidf("%s does not have to pay for %s", b.Person.FullName, e.Title)
		}
	}
	b.Payment = &Payment{PaidTo: payer.ID, DatePaid: now.UTC()}
	return nil
}

// ClearPayment removes the payment record (a refund).
func (e *Event) ClearPayment(b *Booking) error {
	if err := e.owns(b); err != nil {
		return err
	}
	b.Payment = nil
	return nil
}

// SetExemption waives b's payment. The exemption is stamped like a payment
// collected by actor so reports treat both alike.
func (e *Event) SetExemption(b *Booking, actor Person, now time.Time) error {
	if err := e.owns(b); err != nil {
		return err
	}
	if b.ExemptOfPayment {
		return invalidf("this booking is already exempt of payment")
	}
	if actor.IsAnonymous() {
		return invalidf("exemption must be granted by a known organiser")
	}
	b.ExemptOfPayment = true
	b.Payment = &Payment{PaidTo: actor.ID, DatePaid: now.UTC()}
	return nil
}

// ClearExemption restores b's payment obligation and drops the stamp.
func (e *Event) ClearExemption(b *Booking) error {
	if err := e.owns(b); err != nil {
		return err
	}
	if !b.ExemptOfPayment {
		return invalidf("this booking is not exempt of payment")
	}
	b.ExemptOfPayment = false
	b.Payment = nil
	return nil
}

func (e *Event) owns(b *Booking) error {
	if b == nil || b.EventID != e.ID {
		id := ""
		if b != nil {
			id = b.ID
		}
		return notFound("booking", id)
	}
	return nil
}
