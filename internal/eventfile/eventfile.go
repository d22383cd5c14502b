// Package eventfile reads event definitions written in YAML: the event, its
// organisers, categories, sessions, choices and, optionally, existing
// bookings. It backs the import command and test fixtures.
package eventfile

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/oneevent/internal/model"
)

// File is the YAML document layout.
type File struct {
	ID              string     `yaml:"id"`
	Title           string     `yaml:"title"`
	Description     string     `yaml:"description"`
	Start           time.Time  `yaml:"start"`
	End             *time.Time `yaml:"end"`
	Timezone        string     `yaml:"timezone"`
	Status          string     `yaml:"status"`
	LocationName    string     `yaml:"location_name"`
	LocationAddress string     `yaml:"location_address"`
	BookingClose    *time.Time `yaml:"booking_close"`
	ChoicesClose    *time.Time `yaml:"choices_close"`
	MaxParticipants int        `yaml:"max_participants"`
	Currency        string     `yaml:"currency"`
	Owner           Person     `yaml:"owner"`
	Organisers      []Person   `yaml:"organisers"`
	Categories      []Category `yaml:"categories"`
	Sessions        []Session  `yaml:"sessions"`
	Choices         []Choice   `yaml:"choices"`
	Bookings        []Booking  `yaml:"bookings"`
}

// Person is a person with their group memberships.
type Person struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Email     string   `yaml:"email"`
	Superuser bool     `yaml:"superuser"`
	Groups    []string `yaml:"groups"`
}

// Category is a pricing rule; categories are matched in file order.
type Category struct {
	Name    string   `yaml:"name"`
	Price   string   `yaml:"price"`
	Groups1 []string `yaml:"groups1"`
	Groups2 []string `yaml:"groups2"`
}

// Session is a sub-slot of the event.
type Session struct {
	ID              string     `yaml:"id"`
	Title           string     `yaml:"title"`
	Start           *time.Time `yaml:"start"`
	End             *time.Time `yaml:"end"`
	MaxParticipants int        `yaml:"max_participants"`
}

// Choice lists option titles; Default names one of them and defaults to the
// first.
type Choice struct {
	Title   string   `yaml:"title"`
	Options []string `yaml:"options"`
	Default string   `yaml:"default"`
}

// Booking is an existing registration. State is one of unconfirmed,
// confirmed or cancelled; PaidTo and CancelledBy are person IDs; Options
// name option titles as "Choice: Option".
type Booking struct {
	ID          string    `yaml:"id"`
	Person      Person    `yaml:"person"`
	State       string    `yaml:"state"`
	At          time.Time `yaml:"at"`
	CancelledBy string    `yaml:"cancelled_by"`
	Session     string    `yaml:"session"`
	PaidTo      string    `yaml:"paid_to"`
	DatePaid    time.Time `yaml:"date_paid"`
	Exempt      bool      `yaml:"exempt"`
	Options     []string  `yaml:"options"`
}

// Load reads and converts the file at path.
func Load(path string) (*model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated event aggregate. Missing
// IDs are generated.
func Parse(data []byte) (*model.Event, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode event file: %w", err)
	}
	return f.Event()
}

// Event converts the document into an event aggregate.
func (f *File) Event() (*model.Event, error) {
	status, err := model.ParsePubStatus(f.Status)
	if err != nil {
		return nil, err
	}
	e := &model.Event{
		ID:              orNewID(f.ID),
		Title:           f.Title,
		Description:     f.Description,
		Start:           f.Start.UTC(),
		End:             utc(f.End),
		Timezone:        f.Timezone,
		PubStatus:       status,
		LocationName:    f.LocationName,
		LocationAddress: f.LocationAddress,
		BookingClose:    utc(f.BookingClose),
		ChoicesClose:    utc(f.ChoicesClose),
		MaxParticipants: f.MaxParticipants,
		PriceCurrency:   f.Currency,
		Owner:           f.Owner.person(),
		CreatedAt:       f.Start.UTC(),
	}
	if e.Timezone == "" {
		e.Timezone = model.DefaultTimezone
	}
	for _, o := range f.Organisers {
		e.Organisers = append(e.Organisers, o.person())
	}
	e.IncludeOwner()
	if err := e.Validate(); err != nil {
		return nil, err
	}

	cats := make([]model.Category, 0, len(f.Categories))
	for i, c := range f.Categories {
		price, err := model.ParseAmount(c.Price)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
		cats = append(cats, model.Category{
			Order:   i + 1,
			Name:    c.Name,
			Price:   price,
			Groups1: c.Groups1,
			Groups2: c.Groups2,
		})
	}
	if err := e.SetCategories(cats); err != nil {
		return nil, err
	}

	for _, s := range f.Sessions {
		if _, err := e.AddSession(model.Session{
			ID:              s.ID,
			Title:           s.Title,
			Start:           utc(s.Start),
			End:             utc(s.End),
			MaxParticipants: s.MaxParticipants,
		}); err != nil {
			return nil, err
		}
	}

	for _, c := range f.Choices {
		def := 0
		if c.Default != "" {
			def = indexOf(c.Options, c.Default)
			if def < 0 {
				return nil, fmt.Errorf("choice %q: default %q is not an option", c.Title, c.Default)
			}
		}
		if _, err := e.AddChoice(c.Title, c.Options, def); err != nil {
			return nil, err
		}
	}

	for _, b := range f.Bookings {
		booking, err := b.booking(e)
		if err != nil {
			return nil, err
		}
		e.Bookings = append(e.Bookings, booking)
		if err := e.ValidateBooking(booking); err != nil {
			return nil, err
		}
	}
	if err := e.ValidateCapacity(); err != nil {
		return nil, err
	}
	return e, nil
}

func (b *Booking) booking(e *model.Event) (*model.Booking, error) {
	booking := &model.Booking{
		ID:              orNewID(b.ID),
		EventID:         e.ID,
		Person:          b.Person.person(),
		ExemptOfPayment: b.Exempt,
		CreatedAt:       e.CreatedAt,
	}
	if e.BookingFor(booking.Person.ID) != nil {
		return nil, fmt.Errorf("person %q is booked twice", booking.Person.ID)
	}

	switch b.State {
	case "", "unconfirmed":
		booking.Lifecycle = model.Unconfirmed()
	case "confirmed":
		booking.Lifecycle = model.Confirmed(b.At)
	case "cancelled":
		booking.Lifecycle = model.Cancelled(b.CancelledBy, b.At)
	default:
		return nil, fmt.Errorf("booking of %q: unknown state %q", booking.Person.ID, b.State)
	}

	if b.Session != "" {
		s := findSession(e, b.Session)
		if s == nil {
			return nil, fmt.Errorf("booking of %q: unknown session %q", booking.Person.ID, b.Session)
		}
		booking.SessionID = s.ID
	}
	if b.PaidTo != "" {
		booking.Payment = &model.Payment{PaidTo: b.PaidTo, DatePaid: b.DatePaid.UTC()}
	}

	for _, ref := range b.Options {
		optionID, err := resolveOption(e, ref)
		if err != nil {
			return nil, fmt.Errorf("booking of %q: %w", booking.Person.ID, err)
		}
		if err := e.AddBookingOption(booking, optionID); err != nil {
			return nil, err
		}
	}
	return booking, nil
}

func (p Person) person() model.Person {
	return model.Person{
		ID:        p.ID,
		FullName:  p.Name,
		Email:     p.Email,
		Superuser: p.Superuser,
		Groups:    p.Groups,
	}
}

// resolveOption maps "Choice: Option" to an option ID.
func resolveOption(e *model.Event, ref string) (string, error) {
	for _, c := range e.Choices {
		for _, o := range c.Options {
			if ref == c.Title+": "+o.Title {
				return o.ID, nil
			}
		}
	}
	return "", fmt.Errorf("unknown option %q", ref)
}

func findSession(e *model.Event, ref string) *model.Session {
	for i := range e.Sessions {
		if e.Sessions[i].ID == ref || e.Sessions[i].Title == ref {
			return &e.Sessions[i]
		}
	}
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
