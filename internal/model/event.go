package model

import (
	"slices"
	"time"
)

// Location resolves the event timezone, falling back to UTC for names the
// runtime does not know.
func (e *Event) Location() *time.Location {
	name := e.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RealEnd returns End, or 23:59:59 on the start day in the event timezone.
func (e *Event) RealEnd() time.Time {
	if e.End != nil {
		return *e.End
	}
	loc := e.Location()
	local := e.Start.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc).UTC()
}

// IsEnded reports whether now is past the real end of the event.
func (e *Event) IsEnded(now time.Time) bool {
	return now.After(e.RealEnd())
}

// IsChoicesOpen reports whether bookers may still change their choices.
func (e *Event) IsChoicesOpen(now time.Time) bool {
	closed := e.ChoicesClose != nil && now.After(*e.ChoicesClose)
	return !e.IsEnded(now) && !closed && e.PubStatus.isOpenForBooking()
}

// IsBookingOpen reports whether new bookings are accepted.
func (e *Event) IsBookingOpen(now time.Time) bool {
	closed := e.BookingClose != nil && now.After(*e.BookingClose)
	return e.IsChoicesOpen(now) && !e.IsEnded(now) && !closed && e.PubStatus.isOpenForBooking()
}

// ActiveBookings returns the bookings that are not cancelled, in stored order.
func (e *Event) ActiveBookings() []*Booking {
	var active []*Booking
	for _, b := range e.Bookings {
		if !b.IsCancelled() {
			active = append(active, b)
		}
	}
	return active
}

// CancelledBookings returns the cancelled bookings, in stored order.
func (e *Event) CancelledBookings() []*Booking {
	var cancelled []*Booking
	for _, b := range e.Bookings {
		if b.IsCancelled() {
			cancelled = append(cancelled, b)
		}
	}
	return cancelled
}

// ParticipantIDs returns the person IDs holding an active booking.
func (e *Event) ParticipantIDs() []string {
	active := e.ActiveBookings()
	ids := make([]string, 0, len(active))
	for _, b := range active {
		ids = append(ids, b.Person.ID)
	}
	return ids
}

// IsFullyBooked reports whether the event has a limit and every slot is taken.
func (e *Event) IsFullyBooked() bool {
	return e.MaxParticipants > 0 && len(e.ActiveBookings()) >= e.MaxParticipants
}

// IsSessionFullyBooked is IsFullyBooked restricted to one session.
func (e *Event) IsSessionFullyBooked(s *Session) bool {
	return s.MaxParticipants > 0 && e.sessionTaken(s) >= s.MaxParticipants
}

func (e *Event) sessionTaken(s *Session) int {
	taken := 0
	for _, b := range e.Bookings {
		if !b.IsCancelled() && b.SessionID == s.ID {
			taken++
		}
	}
	return taken
}

// ValidateCapacity checks that the active bookings fit the event and session
// limits. Bookings built through ConfirmBooking always do; loaded data may not.
func (e *Event) ValidateCapacity() error {
	if active := len(e.ActiveBookings()); e.MaxParticipants > 0 && active > e.MaxParticipants {
		return invalidf("%s has %d active bookings for %d places", e.Title, active, e.MaxParticipants)
	}
	for i := range e.Sessions {
		s := &e.Sessions[i]
		if taken := e.sessionTaken(s); s.MaxParticipants > 0 && taken > s.MaxParticipants {
			return invalidf("session %s has %d active bookings for %d places", s.Title, taken, s.MaxParticipants)
		}
	}
	return nil
}

// FindSession returns the session with the given ID.
func (e *Event) FindSession(id string) (*Session, error) {
	for i := range e.Sessions {
		if e.Sessions[i].ID == id {
			return &e.Sessions[i], nil
		}
	}
	return nil, notFound("session", id)
}

// UserIsOrganiser reports whether p owns or co-organises the event.
func (e *Event) UserIsOrganiser(p Person) bool {
	if p.IsAnonymous() {
		return false
	}
	if p.ID == e.Owner.ID {
		return true
	}
	return slices.ContainsFunc(e.Organisers, func(o Person) bool { return o.ID == p.ID })
}

// IncludeOwner lists the owner first among the organisers unless already
// listed, so reports that go through Organisers cover the owner too.
func (e *Event) IncludeOwner() {
	if e.Owner.IsAnonymous() || slices.ContainsFunc(e.Organisers, func(o Person) bool { return o.ID == e.Owner.ID }) {
		return
	}
	e.Organisers = append([]Person{e.Owner}, e.Organisers...)
}

// UserCanUpdate reports whether p may edit the event and manage its bookings.
func (e *Event) UserCanUpdate(p Person) bool {
	return p.Superuser || e.UserIsOrganiser(p)
}

// UserCanList reports whether p may see the event in listings.
func (e *Event) UserCanList(p Person, allowArchived bool) bool {
	if e.PubStatus == StatusPublic {
		return true
	}
	if p.IsAnonymous() {
		return false
	}
	switch e.PubStatus {
	case StatusRestricted:
		return p.Superuser || e.UserIsOrganiser(p) || e.UserCategory(p) != nil
	case StatusPrivate, StatusUnpublished:
		return p.Superuser || e.UserIsOrganiser(p) || e.hasActiveBooking(p)
	case StatusArchived:
		return allowArchived && (p.Superuser || e.UserIsOrganiser(p))
	default:
		return false
	}
}

// UserCanBook reports whether p may register to the event. It does not look
// at dates or capacity.
func (e *Event) UserCanBook(p Person) bool {
	if p.IsAnonymous() {
		return false
	}
	switch e.PubStatus {
	case StatusPublic, StatusPrivate:
		return true
	case StatusRestricted:
		return e.UserIsOrganiser(p) || e.UserCategory(p) != nil
	default:
		return false
	}
}

func (e *Event) hasActiveBooking(p Person) bool {
	b := e.BookingFor(p.ID)
	return b != nil && !b.IsCancelled()
}

// Validate checks the event-level invariants enforced at edit time.
func (e *Event) Validate() error {
	if normaliseTitle(e.Title) == "" {
		return invalidf("event title is required")
	}
	if len(e.Title) > 64 {
		return invalidf("event title cannot exceed 64 characters")
	}
	if e.Start.IsZero() {
		return invalidf("event start is required")
	}
	if e.End != nil && e.End.Before(e.Start) {
		return invalidf("event cannot end before it starts")
	}
	if e.Timezone != "" {
		if _, err := time.LoadLocation(e.Timezone); err != nil {
			return invalidf("unknown timezone %q", e.Timezone)
		}
	}
	if _, err := ParsePubStatus(string(e.PubStatus)); err != nil {
		return err
	}
	if e.MaxParticipants < 0 {
		return invalidf("maximum number of participants cannot be negative")
	}
	if e.BookingClose != nil && e.BookingClose.After(e.Start) {
		return invalidf("bookings must close before the event starts")
	}
	if e.ChoicesClose != nil && e.ChoicesClose.After(e.Start) {
		return invalidf("choices must close before the event starts")
	}
	if e.BookingClose != nil && e.ChoicesClose != nil && e.BookingClose.After(*e.ChoicesClose) {
		return invalidf("bookings must close before choices")
	}
	return nil
}

// AddSession appends a session; titles are unique within the event.
func (e *Event) AddSession(s Session) (*Session, error) {
	if normaliseTitle(s.Title) == "" {
		return nil, invalidf("session title is required")
	}
	if s.MaxParticipants < 0 {
		return nil, invalidf("maximum number of participants cannot be negative")
	}
	for _, existing := range e.Sessions {
		if sameTitle(existing.Title, s.Title) {
			return nil, invalidf("session %q already exists", s.Title)
		}
	}
	if s.ID == "" {
		s.ID = newID()
	}
	e.Sessions = append(e.Sessions, s)
	return &e.Sessions[len(e.Sessions)-1], nil
}

// Clone returns a deep copy of the aggregate. Stores hand out clones so an
// operation that fails half-way never leaks into shared state.
func (e *Event) Clone() *Event {
	c := *e
	c.End = cloneTime(e.End)
	c.BookingClose = cloneTime(e.BookingClose)
	c.ChoicesClose = cloneTime(e.ChoicesClose)
	c.Owner = clonePerson(e.Owner)

	c.Organisers = make([]Person, len(e.Organisers))
	for i, o := range e.Organisers {
		c.Organisers[i] = clonePerson(o)
	}

	c.Categories = make([]Category, len(e.Categories))
	for i, cat := range e.Categories {
		c.Categories[i] = Category{
			ID:      cat.ID,
			Order:   cat.Order,
			Name:    cat.Name,
			Price:   copyAmount(&cat.Price),
			Groups1: slices.Clone(cat.Groups1),
			Groups2: slices.Clone(cat.Groups2),
		}
	}

	c.Sessions = make([]Session, len(e.Sessions))
	for i, s := range e.Sessions {
		s.Start = cloneTime(s.Start)
		s.End = cloneTime(s.End)
		c.Sessions[i] = s
	}

	c.Choices = make([]Choice, len(e.Choices))
	for i, ch := range e.Choices {
		ch.Options = slices.Clone(ch.Options)
		c.Choices[i] = ch
	}

	c.Bookings = make([]*Booking, len(e.Bookings))
	for i, b := range e.Bookings {
		nb := *b
		nb.Person = clonePerson(b.Person)
		if b.Payment != nil {
			p := *b.Payment
			nb.Payment = &p
		}
		nb.Options = slices.Clone(b.Options)
		c.Bookings[i] = &nb
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func clonePerson(p Person) Person {
	p.Groups = slices.Clone(p.Groups)
	return p
}
