package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/Shivanand-hulikatti/oneevent/internal/model"
)

// Memory is an in-process store with the same semantics as Store: callers
// always receive copies, and UpdateEvent holds a per-event lock while fn
// runs.
type Memory struct {
	mu      sync.RWMutex
	events  map[string]*model.Event
	locks   map[string]*sync.Mutex
	persons map[string]model.Person
}

// NewMemory constructs an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		events:  make(map[string]*model.Event),
		locks:   make(map[string]*sync.Mutex),
		persons: make(map[string]model.Person),
	}
}

// CreateEvent stores a copy of e. Referenced persons are registered when
// unknown.
func (m *Memory) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[e.ID]; ok {
		return &model.ValidationError{Message: "event " + e.ID + " already exists"}
	}
	for _, b := range e.Bookings {
		if m.eventOfBooking(b.ID) != "" {
			return &model.ValidationError{Message: "booking " + b.ID + " already exists"}
		}
	}
	m.events[e.ID] = e.Clone()
	m.locks[e.ID] = &sync.Mutex{}
	m.ensurePersons(e)
	return nil
}

// GetEvent returns a copy of the event or a NotFoundError.
func (m *Memory) GetEvent(_ context.Context, id string) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "event", ID: id}
	}
	return m.withPersons(e.Clone()), nil
}

// ListEvents returns copies of every event, most recent start first.
func (m *Memory) ListEvents(_ context.Context) ([]*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*model.Event, 0, len(m.events))
	for _, e := range m.events {
		events = append(events, m.withPersons(e.Clone()))
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.After(events[j].Start)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// UpdateEvent applies fn to a copy of the event while holding the event's
// lock, and stores the copy only when fn succeeds.
func (m *Memory) UpdateEvent(_ context.Context, id string, fn func(*model.Event) error) (*model.Event, error) {
	m.mu.RLock()
	lock, ok := m.locks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, &model.NotFoundError{Kind: "event", ID: id}
	}

	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	working := m.withPersons(m.events[id].Clone())
	m.mu.RUnlock()

	if err := fn(working); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.events[id] = working.Clone()
	m.ensurePersons(working)
	m.mu.Unlock()
	return working, nil
}

// EventIDForBooking returns the event a booking belongs to.
func (m *Memory) EventIDForBooking(_ context.Context, bookingID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id := m.eventOfBooking(bookingID); id != "" {
		return id, nil
	}
	return "", &model.NotFoundError{Kind: "booking", ID: bookingID}
}

// GetPerson returns a registered person.
func (m *Memory) GetPerson(_ context.Context, id string) (model.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.persons[id]
	if !ok {
		return model.Person{}, &model.NotFoundError{Kind: "person", ID: id}
	}
	p.Groups = slices.Clone(p.Groups)
	return p, nil
}

// UpsertPerson creates or replaces a person and their groups.
func (m *Memory) UpsertPerson(_ context.Context, p model.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.Groups = slices.Clone(p.Groups)
	m.persons[p.ID] = p
	return nil
}

func (m *Memory) eventOfBooking(bookingID string) string {
	for id, e := range m.events {
		if _, err := e.FindBooking(bookingID); err == nil {
			return id
		}
	}
	return ""
}

// withPersons refreshes the persons referenced by e, groups included, the
// way Store joins them on every load. Must be called with m.mu held.
func (m *Memory) withPersons(e *model.Event) *model.Event {
	refresh := func(p *model.Person) {
		if stored, ok := m.persons[p.ID]; ok {
			*p = stored
			p.Groups = slices.Clone(stored.Groups)
		}
	}
	refresh(&e.Owner)
	for i := range e.Organisers {
		refresh(&e.Organisers[i])
	}
	for _, b := range e.Bookings {
		refresh(&b.Person)
	}
	return e
}

// ensurePersons registers persons referenced by e that are not known yet.
// Must be called with m.mu held for writing.
func (m *Memory) ensurePersons(e *model.Event) {
	add := func(p model.Person) {
		if p.IsAnonymous() {
			return
		}
		if _, ok := m.persons[p.ID]; !ok {
			p.Groups = slices.Clone(p.Groups)
			m.persons[p.ID] = p
		}
	}
	add(e.Owner)
	for _, o := range e.Organisers {
		add(o)
	}
	for _, b := range e.Bookings {
		add(b.Person)
	}
}
