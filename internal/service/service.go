// Package service implements authorization, validation, and orchestration
// between HTTP handlers (or the CLI) and the storage layer.
//
// Every state change runs inside Store.UpdateEvent, which serialises writers
// of one event; the rules in package model are evaluated against the state
// loaded under that lock.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/oneevent/internal/clock"
	"github.com/Shivanand-hulikatti/oneevent/internal/model"
)

// Store persists event aggregates and persons.
type Store interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.Event, error)
	// UpdateEvent applies fn to the event while holding an exclusive lock on
	// it, and persists the result only when fn succeeds.
	UpdateEvent(ctx context.Context, id string, fn func(*model.Event) error) (*model.Event, error)
	EventIDForBooking(ctx context.Context, bookingID string) (string, error)
	GetPerson(ctx context.Context, id string) (model.Person, error)
	UpsertPerson(ctx context.Context, p model.Person) error
}

// EventService orchestrates event and booking operations.
type EventService struct {
	store Store
	clock clock.Clock
	log   *slog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store Store, clk clock.Clock, log *slog.Logger) *EventService {
	return &EventService{store: store, clock: clk, log: log}
}

func deny(actor model.Person, action string) error {
	return &model.AuthorizationError{Action: action, Actor: actor.ID}
}

func newID() string {
	return uuid.NewString()
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// ─── Events ──────────────────────────────────────────────────────────────────

// CreateEvent creates an event owned by actor, who is listed first among
// its organisers.
func (s *EventService) CreateEvent(ctx context.Context, actor model.Person, req model.CreateEventRequest) (*model.Event, error) {
	if actor.IsAnonymous() {
		return nil, deny(actor, "create events")
	}
	status, err := model.ParsePubStatus(req.PubStatus)
	if err != nil {
		return nil, err
	}

	e := &model.Event{
		ID:              newID(),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Start:           req.Start.UTC(),
		End:             utc(req.End),
		Timezone:        req.Timezone,
		PubStatus:       status,
		LocationName:    req.LocationName,
		LocationAddress: req.LocationAddress,
		BookingClose:    utc(req.BookingClose),
		ChoicesClose:    utc(req.ChoicesClose),
		MaxParticipants: req.MaxParticipants,
		PriceCurrency:   strings.ToUpper(req.PriceCurrency),
		Owner:           actor,
		CreatedAt:       s.clock.Now(),
	}
	if e.Timezone == "" {
		e.Timezone = model.DefaultTimezone
	}
	for _, id := range req.OrganiserIDs {
		if id == actor.ID {
			continue
		}
		p, err := s.store.GetPerson(ctx, id)
		if err != nil {
			return nil, err
		}
		e.Organisers = append(e.Organisers, p)
	}
	e.IncludeOwner()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("event created", slog.String("event_id", e.ID), slog.String("owner", actor.ID))
	return e, nil
}

// ImportEvent stores an event built elsewhere (an event file). The persons
// it references are registered with the groups the file gives them.
func (s *EventService) ImportEvent(ctx context.Context, e *model.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	for _, b := range e.Bookings {
		if err := e.ValidateBooking(b); err != nil {
			return err
		}
	}
	if err := e.ValidateCapacity(); err != nil {
		return err
	}
	e.IncludeOwner()

	persons := []model.Person{e.Owner}
	persons = append(persons, e.Organisers...)
	for _, b := range e.Bookings {
		persons = append(persons, b.Person)
	}
	for _, p := range persons {
		if err := s.store.UpsertPerson(ctx, p); err != nil {
			return fmt.Errorf("import person %s: %w", p.ID, err)
		}
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return fmt.Errorf("import event: %w", err)
	}
	s.log.Info("event imported",
		slog.String("event_id", e.ID),
		slog.Int("bookings", len(e.Bookings)),
	)
	return nil
}

// ListEvents returns the events actor may see, most recent first.
func (s *EventService) ListEvents(ctx context.Context, actor model.Person, allowArchived bool) ([]*model.Event, error) {
	all, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	visible := make([]*model.Event, 0, len(all))
	for _, e := range all {
		if e.UserCanList(actor, allowArchived) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// GetEvent returns a single event actor may see, archived ones included.
func (s *EventService) GetEvent(ctx context.Context, actor model.Person, id string) (*model.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.UserCanList(actor, true) {
		return nil, deny(actor, "see "+e.Title)
	}
	return e, nil
}

// editEvent runs fn on the locked event after checking that actor may edit
// it, and re-validates the event before it is written.
func (s *EventService) editEvent(ctx context.Context, actor model.Person, eventID string, fn func(e *model.Event) error) (*model.Event, error) {
	return s.store.UpdateEvent(ctx, eventID, func(e *model.Event) error {
		if !e.UserCanUpdate(actor) {
			return deny(actor, "edit "+e.Title)
		}
		if err := fn(e); err != nil {
			return err
		}
		return e.Validate()
	})
}

// UpdateCategories replaces the pricing categories of an event. Inputs
// without an order are numbered by position.
func (s *EventService) UpdateCategories(ctx context.Context, actor model.Person, eventID string, in []model.CategoryInput) (*model.Event, error) {
	cats := make([]model.Category, 0, len(in))
	for i, c := range in {
		price, err := model.ParseAmount(c.Price)
		if err != nil {
			return nil, &model.ValidationError{Message: err.Error()}
		}
		order := c.Order
		if order == 0 {
			order = i + 1
		}
		cats = append(cats, model.Category{
			Order:   order,
			Name:    c.Name,
			Price:   price,
			Groups1: c.Groups1,
			Groups2: c.Groups2,
		})
	}
	e, err := s.editEvent(ctx, actor, eventID, func(e *model.Event) error {
		return e.SetCategories(cats)
	})
	if err != nil {
		return nil, err
	}
	s.warnUnmatched(e)
	return e, nil
}

// AddSession adds a session to an event.
func (s *EventService) AddSession(ctx context.Context, actor model.Person, eventID string, in model.SessionInput) (*model.Session, error) {
	var added model.Session
	_, err := s.editEvent(ctx, actor, eventID, func(e *model.Event) error {
		sess, err := e.AddSession(model.Session{
			Title:           in.Title,
			Start:           utc(in.Start),
			End:             utc(in.End),
			MaxParticipants: in.MaxParticipants,
		})
		if err != nil {
			return err
		}
		added = *sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// AddChoice adds a choice; active bookings receive its default option.
func (s *EventService) AddChoice(ctx context.Context, actor model.Person, eventID string, in model.ChoiceInput) (*model.Choice, error) {
	var added model.Choice
	_, err := s.editEvent(ctx, actor, eventID, func(e *model.Event) error {
		c, err := e.AddChoice(in.Title, in.Options, in.Default)
		if err != nil {
			return err
		}
		added = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// AddOption appends an option to a choice.
func (s *EventService) AddOption(ctx context.Context, actor model.Person, eventID, choiceID string, in model.OptionInput) (*model.Option, error) {
	var added model.Option
	_, err := s.editEvent(ctx, actor, eventID, func(e *model.Event) error {
		o, err := e.AddOption(choiceID, in.Title, in.Default)
		if err != nil {
			return err
		}
		added = *o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// DeleteChoice removes a choice and every answer to it.
func (s *EventService) DeleteChoice(ctx context.Context, actor model.Person, eventID, choiceID string) error {
	_, err := s.editEvent(ctx, actor, eventID, func(e *model.Event) error {
		return e.DeleteChoice(choiceID)
	})
	return err
}

// DeleteOption removes an option, moving its holders to the default.
func (s *EventService) DeleteOption(ctx context.Context, actor model.Person, eventID, choiceID, optionID string) error {
	_, err := s.editEvent(ctx, actor, eventID, func(e *model.Event) error {
		return e.DeleteOption(choiceID, optionID)
	})
	return err
}

// SetDefaultOption changes the default option of a choice.
func (s *EventService) SetDefaultOption(ctx context.Context, actor model.Person, eventID, choiceID, optionID string) error {
	_, err := s.editEvent(ctx, actor, eventID, func(e *model.Event) error {
		return e.SetDefaultOption(choiceID, optionID)
	})
	return err
}

// ─── Bookings ────────────────────────────────────────────────────────────────

// Book returns the booking of personID (actor when empty) on an event,
// creating a cancelled placeholder the first time. Booking for someone else
// is reserved to organisers. created reports whether a placeholder was made.
func (s *EventService) Book(ctx context.Context, actor model.Person, eventID, personID string) (booking *model.Booking, created bool, err error) {
	if actor.IsAnonymous() {
		return nil, false, deny(actor, "book events")
	}
	person := actor
	if personID != "" && personID != actor.ID {
		if person, err = s.store.GetPerson(ctx, personID); err != nil {
			return nil, false, err
		}
	}

	_, err = s.store.UpdateEvent(ctx, eventID, func(e *model.Event) error {
		now := s.clock.Now()
		if person.ID != actor.ID {
			if !e.UserIsOrganiser(actor) {
				return deny(actor, "book "+e.Title+" for someone else")
			}
		} else if !e.UserIsOrganiser(actor) {
			if !e.UserCanBook(actor) {
				return deny(actor, "book "+e.Title)
			}
			if !e.IsBookingOpen(now) {
				return &model.ValidationError{Message: "bookings are closed for " + e.Title}
			}
		}
		b, isNew, err := e.CreateBooking(person, actor, now)
		if err != nil {
			return err
		}
		booking, created = b, isNew
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.log.Info("booking created",
			slog.String("event_id", eventID),
			slog.String("booking_id", booking.ID),
			slog.String("person", person.ID),
			slog.String("by", actor.ID),
		)
	}
	return booking, created, nil
}

// updateBooking locates the booking's event, locks it and runs fn on the
// booking. The booking invariants are checked before anything is written.
func (s *EventService) updateBooking(ctx context.Context, bookingID string, fn func(e *model.Event, b *model.Booking, now time.Time) error) (*model.Booking, *model.Event, error) {
	eventID, err := s.store.EventIDForBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	var booking *model.Booking
	e, err := s.store.UpdateEvent(ctx, eventID, func(e *model.Event) error {
		b, err := e.FindBooking(bookingID)
		if err != nil {
			return err
		}
		if err := fn(e, b, s.clock.Now()); err != nil {
			return err
		}
		if err := e.ValidateBooking(b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return booking, e, nil
}

// ConfirmBooking confirms a booking, optionally choosing its session and
// options first. Capacity is checked under the event lock.
func (s *EventService) ConfirmBooking(ctx context.Context, actor model.Person, bookingID string, req model.ConfirmRequest) (*model.Booking, error) {
	b, e, err := s.updateBooking(ctx, bookingID, func(e *model.Event, b *model.Booking, now time.Time) error {
		if !e.UserCanUpdateBooking(actor, b, now) {
			return deny(actor, "update this booking")
		}
		if b.IsCancelled() && !e.UserIsOrganiser(actor) && !e.IsBookingOpen(now) {
			return &model.ValidationError{Message: "bookings are closed for " + e.Title}
		}
		for _, optionID := range req.OptionIDs {
			if err := e.SelectOption(b, optionID); err != nil {
				return err
			}
		}
		return e.ConfirmBooking(b, req.SessionID, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("booking confirmed",
		slog.String("event_id", e.ID),
		slog.String("booking_id", b.ID),
		slog.String("by", actor.ID),
	)
	if len(e.Categories) > 0 && e.UserCategory(b.Person) == nil {
		s.log.Warn("booker matches no category",
			slog.String("event_id", e.ID),
			slog.String("person", b.Person.ID),
		)
	}
	return b, nil
}

// CancelBooking cancels a booking on behalf of actor.
func (s *EventService) CancelBooking(ctx context.Context, actor model.Person, bookingID string) (*model.Booking, error) {
	b, e, err := s.updateBooking(ctx, bookingID, func(e *model.Event, b *model.Booking, now time.Time) error {
		if !e.UserCanCancel(actor, b, now) {
			return deny(actor, "cancel this booking")
		}
		return e.CancelBooking(b, actor, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("booking cancelled",
		slog.String("event_id", e.ID),
		slog.String("booking_id", b.ID),
		slog.String("by", actor.ID),
	)
	return b, nil
}

// UpdateBookingOptions replaces the options picked by a booking.
func (s *EventService) UpdateBookingOptions(ctx context.Context, actor model.Person, bookingID string, req model.OptionsRequest) (*model.Booking, error) {
	b, _, err := s.updateBooking(ctx, bookingID, func(e *model.Event, b *model.Booking, now time.Time) error {
		if !e.UserCanUpdateBooking(actor, b, now) {
			return deny(actor, "update this booking")
		}
		for _, optionID := range req.OptionIDs {
			if err := e.SelectOption(b, optionID); err != nil {
				return err
			}
		}
		return nil
	})
	return b, err
}

// SetPayment records that actor collected the booking's money.
func (s *EventService) SetPayment(ctx context.Context, actor model.Person, bookingID string) (*model.Booking, error) {
	return s.updatePayment(ctx, actor, bookingID, "payment recorded", func(e *model.Event, b *model.Booking, now time.Time) error {
		return e.SetPayment(b, actor, now)
	})
}

// ClearPayment removes a booking's payment record.
func (s *EventService) ClearPayment(ctx context.Context, actor model.Person, bookingID string) (*model.Booking, error) {
	return s.updatePayment(ctx, actor, bookingID, "payment cleared", func(e *model.Event, b *model.Booking, _ time.Time) error {
		return e.ClearPayment(b)
	})
}

// SetExemption waives a booking's payment.
func (s *EventService) SetExemption(ctx context.Context, actor model.Person, bookingID string) (*model.Booking, error) {
	return s.updatePayment(ctx, actor, bookingID, "exemption granted", func(e *model.Event, b *model.Booking, now time.Time) error {
		return e.SetExemption(b, actor, now)
	})
}

// ClearExemption restores a booking's payment obligation.
func (s *EventService) ClearExemption(ctx context.Context, actor model.Person, bookingID string) (*model.Booking, error) {
	return s.updatePayment(ctx, actor, bookingID, "exemption removed", func(e *model.Event, b *model.Booking, _ time.Time) error {
		return e.ClearExemption(b)
	})
}

func (s *EventService) updatePayment(ctx context.Context, actor model.Person, bookingID, msg string, fn func(e *model.Event, b *model.Booking, now time.Time) error) (*model.Booking, error) {
	b, e, err := s.updateBooking(ctx, bookingID, func(e *model.Event, b *model.Booking, now time.Time) error {
		if !e.UserCanUpdatePayment(actor) {
			return deny(actor, "manage payments of "+e.Title)
		}
		return fn(e, b, now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(msg,
		slog.String("event_id", e.ID),
		slog.String("booking_id", b.ID),
		slog.String("by", actor.ID),
	)
	return b, nil
}

// ─── Reports ─────────────────────────────────────────────────────────────────

// CollectedSums reports the money collected per organiser and category.
func (s *EventService) CollectedSums(ctx context.Context, actor model.Person, eventID string) (*model.CollectedSums, error) {
	e, err := s.managedEvent(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	s.warnUnmatched(e)
	return e.CollectedSums(), nil
}

// OptionCounts summarises the options picked by active bookings.
func (s *EventService) OptionCounts(ctx context.Context, actor model.Person, eventID string) ([]model.ChoiceSummary, error) {
	e, err := s.managedEvent(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	return e.OptionCounts(), nil
}

// Report returns an event with its collected sums for trusted callers such as
// the command line, without an acting person.
func (s *EventService) Report(ctx context.Context, eventID string) (*model.Event, *model.CollectedSums, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	s.warnUnmatched(e)
	return e, e.CollectedSums(), nil
}

func (s *EventService) managedEvent(ctx context.Context, actor model.Person, eventID string) (*model.Event, error) {
	e, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !e.UserCanUpdate(actor) {
		return nil, deny(actor, "see the accounts of "+e.Title)
	}
	return e, nil
}

// warnUnmatched logs active bookers that match no category: they are
// charged the unassigned amount until the categories are fixed.
func (s *EventService) warnUnmatched(e *model.Event) {
	if len(e.Categories) == 0 {
		return
	}
	ix := model.NewCategoryIndex(e)
	for _, b := range e.ActiveBookings() {
		if ix.Category(b.Person) == nil {
			s.log.Warn("booker matches no category",
				slog.String("event_id", e.ID),
				slog.String("person", b.Person.ID),
			)
		}
	}
}
