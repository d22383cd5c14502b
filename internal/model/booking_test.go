package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_PlaceholderIsIdempotent(t *testing.T) {
	e := newEvent(t, StatusPublic)

	b, created, err := e.CreateBooking(staff, staff, beforeEvent)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, b.IsCancelled(), "placeholders start cancelled")
	assert.Equal(t, staff.ID, b.Lifecycle.CancelledBy)
	assert.Equal(t, e.ID, b.EventID)

	again, created, err := e.CreateBooking(staff, owner, beforeEvent.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, b, again)
	assert.Len(t, e.Bookings, 1)
}

func TestCreateBooking_Anonymous(t *testing.T) {
	e := newEvent(t, StatusPublic)
	_, _, err := e.CreateBooking(Person{}, Person{}, beforeEvent)
	assert.True(t, IsValidation(err))
	assert.Empty(t, e.Bookings)
}

func TestCreateBooking_FullEvent(t *testing.T) {
	e := newEvent(t, StatusPublic)
	e.MaxParticipants = 1
	book(t, e, staff, "")

	_, _, err := e.CreateBooking(student, student, beforeEvent)
	assert.True(t, IsCapacity(err))
	assert.Len(t, e.Bookings, 1, "no placeholder for a full event")

	// An active booking is still returned on a full event.
	b, created, err := e.CreateBooking(staff, staff, beforeEvent)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, b.IsConfirmed())
}

func TestConfirmBooking_LastSlot(t *testing.T) {
	e := newEvent(t, StatusPublic)
	e.MaxParticipants = 1

	first, _, err := e.CreateBooking(staff, staff, beforeEvent)
	require.NoError(t, err)
	second, _, err := e.CreateBooking(student, student, beforeEvent)
	require.NoError(t, err)

	require.NoError(t, e.ConfirmBooking(first, "", beforeEvent))
	err = e.ConfirmBooking(second, "", beforeEvent)
	assert.True(t, IsCapacity(err))
	assert.True(t, second.IsCancelled())
	assert.Len(t, e.ActiveBookings(), 1)

	// Re-confirming the booking that holds the slot is fine.
	assert.NoError(t, e.ConfirmBooking(first, "", beforeEvent.Add(time.Hour)))
	assert.Equal(t, beforeEvent.Add(time.Hour), first.Lifecycle.At)
}

func TestConfirmBooking_Sessions(t *testing.T) {
	newSessionEvent := func(t *testing.T) (*Event, string, string) {
		e := newEvent(t, StatusPublic)
		m, err := e.AddSession(Session{Title: "Morning", MaxParticipants: 1})
		require.NoError(t, err)
		morning := m.ID
		a, err := e.AddSession(Session{Title: "Afternoon"})
		require.NoError(t, err)
		return e, morning, a.ID
	}

	t.Run("session required", func(t *testing.T) {
		e, _, _ := newSessionEvent(t)
		b, _, err := e.CreateBooking(staff, staff, beforeEvent)
		require.NoError(t, err)
		assert.True(t, IsValidation(e.ConfirmBooking(b, "", beforeEvent)))
	})

	t.Run("unknown session", func(t *testing.T) {
		e, _, _ := newSessionEvent(t)
		b, _, err := e.CreateBooking(staff, staff, beforeEvent)
		require.NoError(t, err)
		assert.True(t, IsNotFound(e.ConfirmBooking(b, "nope", beforeEvent)))
	})

	t.Run("session on an event without sessions", func(t *testing.T) {
		e := newEvent(t, StatusPublic)
		b, _, err := e.CreateBooking(staff, staff, beforeEvent)
		require.NoError(t, err)
		assert.True(t, IsNotFound(e.ConfirmBooking(b, "ses-1", beforeEvent)))
	})

	t.Run("full session", func(t *testing.T) {
		e, morning, afternoon := newSessionEvent(t)
		book(t, e, staff, morning)

		b, _, err := e.CreateBooking(student, student, beforeEvent)
		require.NoError(t, err)
		assert.True(t, IsCapacity(e.ConfirmBooking(b, morning, beforeEvent)))
		require.NoError(t, e.ConfirmBooking(b, afternoon, beforeEvent))
		assert.Equal(t, afternoon, b.SessionID)

		// Moving an active booking into the full session is refused too.
		assert.True(t, IsCapacity(e.ConfirmBooking(b, morning, beforeEvent)))
		assert.Equal(t, afternoon, b.SessionID)
	})

	t.Run("holder keeps its full session", func(t *testing.T) {
		e, morning, _ := newSessionEvent(t)
		b := book(t, e, staff, morning)
		assert.NoError(t, e.ConfirmBooking(b, morning, beforeEvent))
		assert.NoError(t, e.ConfirmBooking(b, "", beforeEvent), "current session is reused")
		assert.Equal(t, morning, b.SessionID)
	})

	t.Run("cancelled holder needs a free slot again", func(t *testing.T) {
		e, morning, _ := newSessionEvent(t)
		b := book(t, e, staff, morning)
		require.NoError(t, e.CancelBooking(b, staff, beforeEvent))
		other := book(t, e, student, morning)
		require.True(t, other.IsConfirmed())

		assert.True(t, IsCapacity(e.ConfirmBooking(b, morning, beforeEvent)))
	})
}

func TestConfirmBooking_AddsDefaultOptions(t *testing.T) {
	e := newEvent(t, StatusPublic)
	meal, err := e.AddChoice("Meal", []string{"Meat", "Vegetarian"}, 1)
	require.NoError(t, err)
	mealID, vegID := meal.ID, meal.Options[1].ID
	drink, err := e.AddChoice("Drink", []string{"Tea", "Coffee"}, 0)
	require.NoError(t, err)
	coffeeID := drink.Options[1].ID

	b, _, err := e.CreateBooking(staff, staff, beforeEvent)
	require.NoError(t, err)
	require.NoError(t, e.AddBookingOption(b, coffeeID))
	require.NoError(t, e.ConfirmBooking(b, "", beforeEvent))

	require.Len(t, b.Options, 2)
	assert.Equal(t, vegID, b.OptionFor(mealID).OptionID)
	assert.Equal(t, coffeeID, b.OptionFor(drink.ID).OptionID, "explicit pick kept")
}

func TestConfirmBooking_ForeignBooking(t *testing.T) {
	e := newEvent(t, StatusPublic)
	stray := &Booking{ID: "bkg-x", EventID: "evt-other", Person: staff, Lifecycle: Unconfirmed()}
	assert.True(t, IsNotFound(e.ConfirmBooking(stray, "", beforeEvent)))
	assert.True(t, IsNotFound(e.CancelBooking(nil, staff, beforeEvent)))
}

func TestCancelBooking(t *testing.T) {
	e := newEvent(t, StatusPublic)
	b := book(t, e, staff, "")
	cancelledAt := beforeEvent.Add(48 * time.Hour)

	require.NoError(t, e.CancelBooking(b, owner, cancelledAt))

	assert.True(t, b.IsCancelled())
	assert.False(t, b.IsConfirmed())
	assert.Equal(t, cancelledAt, b.Lifecycle.At)
	assert.Equal(t, owner.ID, b.Lifecycle.CancelledBy)
	assert.Nil(t, b.Lifecycle.ConfirmedOn())
	require.NotNil(t, b.Lifecycle.CancelledOn())
	assert.Equal(t, cancelledAt, *b.Lifecycle.CancelledOn())
}

func TestLifecycleFromColumns(t *testing.T) {
	at := beforeEvent
	by := "alice"

	l, err := LifecycleFromColumns(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StateUnconfirmed, l.State)

	l, err = LifecycleFromColumns(&at, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Confirmed(at), l)

	l, err = LifecycleFromColumns(nil, &at, &by)
	require.NoError(t, err)
	assert.Equal(t, Cancelled(by, at), l)
	assert.Equal(t, &by, l.CancelledByColumn())

	_, err = LifecycleFromColumns(&at, &at, nil)
	assert.True(t, IsValidation(err))
}

func TestMustPay(t *testing.T) {
	t.Run("no categories", func(t *testing.T) {
		e := newEvent(t, StatusPublic)
		b := book(t, e, staff, "")
		due := e.MustPay(b)
		assert.True(t, due.IsZero())
	})

	t.Run("matched category", func(t *testing.T) {
		e := withCategories(t, newEvent(t, StatusPublic))
		b := book(t, e, staff, "")
		due := e.MustPay(b)
		assert.Equal(t, "40.00", FormatAmount(&due))
		assert.Equal(t, "Staff", e.CategoryName(b))
	})

	t.Run("unmatched", func(t *testing.T) {
		e := withCategories(t, newEvent(t, StatusPublic))
		b := book(t, e, outsider, "")
		due := e.MustPay(b)
		assert.Equal(t, "9999.99", FormatAmount(&due))
		assert.Equal(t, UnknownCategory, e.CategoryName(b))
	})

	t.Run("exempt", func(t *testing.T) {
		e := withCategories(t, newEvent(t, StatusPublic))
		b := book(t, e, staff, "")
		require.NoError(t, e.SetExemption(b, treasurer, beforeEvent))
		due := e.MustPay(b)
		assert.True(t, due.IsZero())
	})

	t.Run("follows group changes", func(t *testing.T) {
		e := withCategories(t, newEvent(t, StatusPublic))
		b := book(t, e, outsider, "")
		b.Person.Groups = []string{"students"}
		due := e.MustPay(b)
		assert.Equal(t, "15.00", FormatAmount(&due))
	})
}

func TestSetPayment(t *testing.T) {
	e := withCategories(t, newEvent(t, StatusPublic))
	b := book(t, e, staff, "")
	paidAt := beforeEvent.Add(time.Hour)

	assert.Equal(t, PaymentAwaiting, e.PaymentStatus(b))
	require.NoError(t, e.SetPayment(b, treasurer, paidAt))
	require.NotNil(t, b.Payment)
	assert.Equal(t, Payment{PaidTo: treasurer.ID, DatePaid: paidAt}, *b.Payment)
	assert.Equal(t, PaymentSettled, e.PaymentStatus(b))
	assert.NoError(t, e.ValidateBooking(b))

	require.NoError(t, e.CancelBooking(b, staff, paidAt))
	assert.Equal(t, PaymentRefundNeeded, e.PaymentStatus(b))

	require.NoError(t, e.ClearPayment(b))
	assert.Nil(t, b.Payment)
	assert.Equal(t, PaymentNotApplicable, e.PaymentStatus(b))

	assert.True(t, IsValidation(e.SetPayment(b, Person{}, paidAt)))
}

func TestSetPayment_NothingDue(t *testing.T) {
	e := newEvent(t, StatusPublic)
	b := book(t, e, staff, "")

	assert.Equal(t, PaymentSettled, e.PaymentStatus(b))
	err := e.SetPayment(b, treasurer, beforeEvent)
	assert.True(t, IsValidation(err))
	assert.Nil(t, b.Payment)

	// A payment that sneaked in some other way is still caught.
	b.Payment = &Payment{PaidTo: treasurer.ID, DatePaid: beforeEvent}
	assert.True(t, IsValidation(e.ValidateBooking(b)))
}

func TestExemption(t *testing.T) {
	e := withCategories(t, newEvent(t, StatusPublic))
	b := book(t, e, student, "")

	require.NoError(t, e.SetExemption(b, helper, beforeEvent))
	assert.True(t, b.ExemptOfPayment)
	require.NotNil(t, b.Payment)
	assert.Equal(t, helper.ID, b.Payment.PaidTo)
	assert.Equal(t, PaymentSettled, e.PaymentStatus(b))
	assert.NoError(t, e.ValidateBooking(b), "exempt bookings may carry a payment stamp")

	assert.True(t, IsValidation(e.SetExemption(b, helper, beforeEvent)), "already exempt")

	require.NoError(t, e.ClearExemption(b))
	assert.False(t, b.ExemptOfPayment)
	assert.Nil(t, b.Payment)
	assert.Equal(t, PaymentAwaiting, e.PaymentStatus(b))

	assert.True(t, IsValidation(e.ClearExemption(b)), "not exempt")
}

func TestValidateBooking(t *testing.T) {
	e := withCategories(t, newEvent(t, StatusPublic))
	_, err := e.AddChoice("Meal", []string{"Meat", "Veg"}, 0)
	require.NoError(t, err)
	b := book(t, e, staff, "")
	require.NoError(t, e.ValidateBooking(b))

	b.Payment = &Payment{DatePaid: beforeEvent}
	assert.True(t, IsValidation(e.ValidateBooking(b)), "payment without collector")
	b.Payment = nil

	b.SessionID = "ses-ghost"
	assert.True(t, IsNotFound(e.ValidateBooking(b)))
	b.SessionID = ""

	c := e.Choices[0]
	b.Options = append(b.Options, BookingOption{ID: "bo-2", OptionID: c.Options[1].ID, ChoiceID: c.ID})
	assert.True(t, IsValidation(e.ValidateBooking(b)), "two answers to one choice")
}

func TestBookingPermissions(t *testing.T) {
	e := withCategories(t, newEvent(t, StatusRestricted))
	e.ChoicesClose = ptr(time.Date(2026, 4, 25, 0, 0, 0, 0, time.UTC))
	e.BookingClose = ptr(time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC))
	b := book(t, e, student, "")
	between := time.Date(2026, 4, 22, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)

	assert.True(t, e.UserCanUpdateBooking(student, b, between))
	assert.False(t, e.UserCanUpdateBooking(student, b, late))
	assert.True(t, e.UserCanUpdateBooking(treasurer, b, late))
	assert.False(t, e.UserCanUpdateBooking(staff, b, beforeEvent), "someone else's booking")
	assert.False(t, e.UserCanUpdateBooking(admin, b, beforeEvent), "superusers are not organisers")

	assert.True(t, e.UserCanCancel(student, b, beforeEvent))
	assert.False(t, e.UserCanCancel(student, b, between), "bookings closed")
	assert.True(t, e.UserCanCancel(helper, b, late))
	assert.False(t, e.UserCanCancel(staff, b, beforeEvent))

	assert.True(t, e.UserCanUpdatePayment(owner))
	assert.True(t, e.UserCanUpdatePayment(treasurer))
	assert.False(t, e.UserCanUpdatePayment(student))
	assert.False(t, e.UserCanUpdatePayment(admin))

	require.NoError(t, e.CancelBooking(b, student, beforeEvent))
	assert.True(t, e.UserCanUpdateBooking(student, b, late), "rebooking only needs UserCanBook")
	b.Person.Groups = nil
	assert.False(t, e.UserCanUpdateBooking(Person{ID: student.ID}, b, beforeEvent))
}
