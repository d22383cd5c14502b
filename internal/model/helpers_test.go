package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	owner     = Person{ID: "alice", FullName: "Alice Owner"}
	treasurer = Person{ID: "bob", FullName: "Bob Treasurer"}
	helper    = Person{ID: "carol", FullName: "Carol Helper"}
	staff     = Person{ID: "dave", FullName: "Dave Staff", Groups: []string{"staff"}}
	student   = Person{ID: "erin", FullName: "Erin Student", Groups: []string{"students"}}
	outsider  = Person{ID: "frank", FullName: "Frank Outsider", Groups: []string{"visitors"}}
	admin     = Person{ID: "root", FullName: "Root Admin", Superuser: true}
)

// eventStart is the start of the event built by newEvent.
var eventStart = time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

// beforeEvent is comfortably inside every booking window.
var beforeEvent = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newEvent(t *testing.T, status PubStatus) *Event {
	t.Helper()
	e := &Event{
		ID:         "evt-1",
		Title:      "Spring Retreat",
		Start:      eventStart,
		Timezone:   "Europe/London",
		PubStatus:  status,
		Owner:      owner,
		Organisers: []Person{treasurer, helper},
	}
	require.NoError(t, e.Validate())
	return e
}

func withCategories(t *testing.T, e *Event) *Event {
	t.Helper()
	require.NoError(t, e.SetCategories([]Category{
		{Order: 1, Name: "Staff", Price: MustParseAmount("40.00"), Groups1: []string{"staff"}},
		{Order: 2, Name: "Student", Price: MustParseAmount("15.00"), Groups1: []string{"students"}},
	}))
	return e
}

// book creates and confirms a booking for p.
func book(t *testing.T, e *Event, p Person, sessionID string) *Booking {
	t.Helper()
	b, created, err := e.CreateBooking(p, p, beforeEvent)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, e.ConfirmBooking(b, sessionID, beforeEvent))
	return b
}

func ptr[T any](v T) *T {
	return &v
}
