// Package repository persists event aggregates. Store uses pgx directly (no
// ORM); Memory keeps aggregates in process for tests and imports.
//
// An event is always loaded and saved as a whole: the event row, its
// organisers, categories, sessions, choices, bookings and booking options.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/oneevent/internal/model"
)

// querier is the subset of pgxpool.Pool and pgx.Tx the loaders need.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store handles persistence for events and persons in PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// CreateEvent inserts a new event aggregate.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = insertEvent(ctx, tx, e); err != nil {
		return err
	}
	if err = insertChildren(ctx, tx, e); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetEvent returns a single event aggregate or a NotFoundError.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return loadEvent(ctx, s.db, id, false)
}

// ListEvents returns every event aggregate, most recent start first.
func (s *Store) ListEvents(ctx context.Context) ([]*model.Event, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM events ORDER BY start_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan event id: %w", err)
	}

	events := make([]*model.Event, 0, len(ids))
	for _, id := range ids {
		e, err := loadEvent(ctx, s.db, id, false)
		if err != nil {
			if model.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// UpdateEvent loads the event under an exclusive row lock, applies fn and
// writes the aggregate back in the same transaction.
//
// SELECT … FOR UPDATE serialises every writer of one event, so checks fn
// makes against the loaded state (capacity in particular) still hold when
// the result is written. When fn fails nothing is written.
func (s *Store) UpdateEvent(ctx context.Context, id string, fn func(*model.Event) error) (e *model.Event, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	e, err = loadEvent(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err = fn(e); err != nil {
		return nil, err
	}
	if err = updateEvent(ctx, tx, e); err != nil {
		return nil, err
	}
	if err = deleteChildren(ctx, tx, e.ID); err != nil {
		return nil, err
	}
	if err = insertChildren(ctx, tx, e); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return e, nil
}

// EventIDForBooking returns the event a booking belongs to.
func (s *Store) EventIDForBooking(ctx context.Context, bookingID string) (string, error) {
	var eventID string
	err := s.db.QueryRow(ctx, `SELECT event_id FROM bookings WHERE id = $1`, bookingID).Scan(&eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &model.NotFoundError{Kind: "booking", ID: bookingID}
		}
		return "", fmt.Errorf("get booking: %w", err)
	}
	return eventID, nil
}

// GetPerson returns a person with their current groups.
func (s *Store) GetPerson(ctx context.Context, id string) (model.Person, error) {
	var p model.Person
	err := s.db.QueryRow(ctx,
		`SELECT id, full_name, email, superuser FROM persons WHERE id = $1`, id,
	).Scan(&p.ID, &p.FullName, &p.Email, &p.Superuser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Person{}, &model.NotFoundError{Kind: "person", ID: id}
		}
		return model.Person{}, fmt.Errorf("get person: %w", err)
	}
	groups, err := loadGroups(ctx, s.db, []string{id})
	if err != nil {
		return model.Person{}, err
	}
	p.Groups = groups[id]
	return p, nil
}

// UpsertPerson creates or replaces a person and their group memberships.
func (s *Store) UpsertPerson(ctx context.Context, p model.Person) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO persons (id, full_name, email, superuser)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET full_name = EXCLUDED.full_name, email = EXCLUDED.email, superuser = EXCLUDED.superuser`,
		p.ID, p.FullName, p.Email, p.Superuser,
	)
	if err != nil {
		return fmt.Errorf("upsert person: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM person_groups WHERE person_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear person groups: %w", err)
	}
	for _, g := range p.Groups {
		if _, err = tx.Exec(ctx,
			`INSERT INTO person_groups (person_id, group_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.ID, g,
		); err != nil {
			return fmt.Errorf("insert person group: %w", err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ─── Loading ─────────────────────────────────────────────────────────────────

func loadEvent(ctx context.Context, q querier, id string, forUpdate bool) (*model.Event, error) {
	query := `SELECT id, title, description, start_at, end_at, timezone, pub_status,
		        location_name, location_address, booking_close, choices_close,
		        max_participants, price_currency, owner_id, created_at
		 FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		e       model.Event
		status  string
		ownerID string
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.Start, &e.End, &e.Timezone, &status,
		&e.LocationName, &e.LocationAddress, &e.BookingClose, &e.ChoicesClose,
		&e.MaxParticipants, &e.PriceCurrency, &ownerID, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &model.NotFoundError{Kind: "event", ID: id}
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	e.PubStatus = model.PubStatus(status)
	e.Start = e.Start.UTC()
	e.CreatedAt = e.CreatedAt.UTC()

	people := newPersonSet()
	people.add(ownerID)

	organiserIDs, err := loadOrganiserIDs(ctx, q, id)
	if err != nil {
		return nil, err
	}
	people.add(organiserIDs...)

	if e.Categories, err = loadCategories(ctx, q, id); err != nil {
		return nil, err
	}
	if e.Sessions, err = loadSessions(ctx, q, id); err != nil {
		return nil, err
	}
	if e.Choices, err = loadChoices(ctx, q, id); err != nil {
		return nil, err
	}
	if e.Bookings, err = loadBookings(ctx, q, id); err != nil {
		return nil, err
	}
	for _, b := range e.Bookings {
		people.add(b.Person.ID)
	}

	persons, err := loadPersons(ctx, q, people.ids)
	if err != nil {
		return nil, err
	}
	e.Owner = persons.get(ownerID)
	for _, oid := range organiserIDs {
		e.Organisers = append(e.Organisers, persons.get(oid))
	}
	for _, b := range e.Bookings {
		b.Person = persons.get(b.Person.ID)
	}
	return &e, nil
}

func loadOrganiserIDs(ctx context.Context, q querier, eventID string) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT person_id FROM event_organisers WHERE event_id = $1 ORDER BY position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list organisers: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan organiser: %w", err)
	}
	return ids, nil
}

func loadCategories(ctx context.Context, q querier, eventID string) ([]model.Category, error) {
	rows, err := q.Query(ctx,
		`SELECT id, sort_order, name, price::text FROM categories WHERE event_id = $1 ORDER BY sort_order`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []model.Category
	index := make(map[string]int)
	for rows.Next() {
		var (
			c     model.Category
			price string
		)
		if err := rows.Scan(&c.ID, &c.Order, &c.Name, &price); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.Price, err = model.ParseAmount(price); err != nil {
			return nil, err
		}
		index[c.ID] = len(cats)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	grows, err := q.Query(ctx,
		`SELECT g.category_id, g.set_no, g.group_name
		 FROM category_groups g JOIN categories c ON c.id = g.category_id
		 WHERE c.event_id = $1
		 ORDER BY g.category_id, g.set_no, g.group_name`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}
	defer grows.Close()
	for grows.Next() {
		var (
			categoryID, group string
			setNo             int
		)
		if err := grows.Scan(&categoryID, &setNo, &group); err != nil {
			return nil, fmt.Errorf("scan category group: %w", err)
		}
		i, ok := index[categoryID]
		if !ok {
			continue
		}
		if setNo == 1 {
			cats[i].Groups1 = append(cats[i].Groups1, group)
		} else {
			cats[i].Groups2 = append(cats[i].Groups2, group)
		}
	}
	return cats, grows.Err()
}

func loadSessions(ctx context.Context, q querier, eventID string) ([]model.Session, error) {
	rows, err := q.Query(ctx,
		`SELECT id, title, start_at, end_at, max_participants
		 FROM sessions WHERE event_id = $1 ORDER BY position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.Title, &s.Start, &s.End, &s.MaxParticipants); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func loadChoices(ctx context.Context, q querier, eventID string) ([]model.Choice, error) {
	rows, err := q.Query(ctx,
		`SELECT id, title FROM choices WHERE event_id = $1 ORDER BY position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list choices: %w", err)
	}
	defer rows.Close()

	var choices []model.Choice
	index := make(map[string]int)
	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		index[c.ID] = len(choices)
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list choices: %w", err)
	}

	orows, err := q.Query(ctx,
		`SELECT o.id, o.choice_id, o.title, o.is_default
		 FROM options o JOIN choices c ON c.id = o.choice_id
		 WHERE c.event_id = $1
		 ORDER BY o.choice_id, o.position`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer orows.Close()
	for orows.Next() {
		var o model.Option
		if err := orows.Scan(&o.ID, &o.ChoiceID, &o.Title, &o.Default); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if i, ok := index[o.ChoiceID]; ok {
			choices[i].Options = append(choices[i].Options, o)
		}
	}
	return choices, orows.Err()
}

func loadBookings(ctx context.Context, q querier, eventID string) ([]*model.Booking, error) {
	rows, err := q.Query(ctx,
		`SELECT id, person_id, session_id, confirmed_on, cancelled_on, cancelled_by,
		        paid_to, date_paid, exempt_of_payment, created_at
		 FROM bookings WHERE event_id = $1 ORDER BY created_at, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	index := make(map[string]*model.Booking)
	for rows.Next() {
		b := &model.Booking{EventID: eventID}
		var (
			sessionID, cancelledBy, paidTo     *string
			confirmedOn, cancelledOn, datePaid *time.Time
		)
		if err := rows.Scan(&b.ID, &b.Person.ID, &sessionID, &confirmedOn, &cancelledOn, &cancelledBy,
			&paidTo, &datePaid, &b.ExemptOfPayment, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if b.Lifecycle, err = model.LifecycleFromColumns(confirmedOn, cancelledOn, cancelledBy); err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if sessionID != nil {
			b.SessionID = *sessionID
		}
		if paidTo != nil && datePaid != nil {
			b.Payment = &model.Payment{PaidTo: *paidTo, DatePaid: datePaid.UTC()}
		}
		b.CreatedAt = b.CreatedAt.UTC()
		index[b.ID] = b
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	orows, err := q.Query(ctx,
		`SELECT bo.id, bo.booking_id, bo.choice_id, bo.option_id
		 FROM booking_options bo JOIN bookings b ON b.id = bo.booking_id
		 WHERE b.event_id = $1
		 ORDER BY bo.booking_id, bo.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list booking options: %w", err)
	}
	defer orows.Close()
	for orows.Next() {
		var (
			bo        model.BookingOption
			bookingID string
		)
		if err := orows.Scan(&bo.ID, &bookingID, &bo.ChoiceID, &bo.OptionID); err != nil {
			return nil, fmt.Errorf("scan booking option: %w", err)
		}
		if b, ok := index[bookingID]; ok {
			b.Options = append(b.Options, bo)
		}
	}
	return bookings, orows.Err()
}

// personSet collects distinct person IDs in first-seen order.
type personSet struct {
	ids  []string
	seen map[string]bool
}

func newPersonSet() *personSet {
	return &personSet{seen: make(map[string]bool)}
}

func (s *personSet) add(ids ...string) {
	for _, id := range ids {
		if id != "" && !s.seen[id] {
			s.seen[id] = true
			s.ids = append(s.ids, id)
		}
	}
}

type personMap map[string]model.Person

// get falls back to a bare person for IDs that are no longer stored.
func (m personMap) get(id string) model.Person {
	if p, ok := m[id]; ok {
		return p
	}
	return model.Person{ID: id}
}

func loadPersons(ctx context.Context, q querier, ids []string) (personMap, error) {
	persons := make(personMap, len(ids))
	if len(ids) == 0 {
		return persons, nil
	}
	rows, err := q.Query(ctx,
		`SELECT id, full_name, email, superuser FROM persons WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Superuser); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}

	groups, err := loadGroups(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for id, gs := range groups {
		if p, ok := persons[id]; ok {
			p.Groups = gs
			persons[id] = p
		}
	}
	return persons, nil
}

func loadGroups(ctx context.Context, q querier, personIDs []string) (map[string][]string, error) {
	rows, err := q.Query(ctx,
		`SELECT person_id, group_name FROM person_groups
		 WHERE person_id = ANY($1) ORDER BY person_id, group_name`, personIDs)
	if err != nil {
		return nil, fmt.Errorf("list person groups: %w", err)
	}
	defer rows.Close()

	groups := make(map[string][]string)
	for rows.Next() {
		var personID, group string
		if err := rows.Scan(&personID, &group); err != nil {
			return nil, fmt.Errorf("scan person group: %w", err)
		}
		groups[personID] = append(groups[personID], group)
	}
	return groups, rows.Err()
}

// ─── Saving ──────────────────────────────────────────────────────────────────

func insertEvent(ctx context.Context, q querier, e *model.Event) error {
	if err := ensurePersons(ctx, q, e.Owner); err != nil {
		return err
	}
	_, err := q.Exec(ctx,
		`INSERT INTO events (id, title, description, start_at, end_at, timezone, pub_status,
		                     location_name, location_address, booking_close, choices_close,
		                     max_participants, price_currency, owner_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.Title, e.Description, e.Start, e.End, e.Timezone, string(e.PubStatus),
		e.LocationName, e.LocationAddress, e.BookingClose, e.ChoicesClose,
		e.MaxParticipants, e.PriceCurrency, e.Owner.ID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func updateEvent(ctx context.Context, q querier, e *model.Event) error {
	if err := ensurePersons(ctx, q, e.Owner); err != nil {
		return err
	}
	_, err := q.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, start_at = $4, end_at = $5, timezone = $6,
		     pub_status = $7, location_name = $8, location_address = $9,
		     booking_close = $10, choices_close = $11, max_participants = $12,
		     price_currency = $13, owner_id = $14
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Start, e.End, e.Timezone, string(e.PubStatus),
		e.LocationName, e.LocationAddress, e.BookingClose, e.ChoicesClose,
		e.MaxParticipants, e.PriceCurrency, e.Owner.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// deleteChildren removes every row owned by the event. Cascades take the
// options, category groups and booking options along.
func deleteChildren(ctx context.Context, q querier, eventID string) error {
	for _, stmt := range []string{
		`DELETE FROM bookings WHERE event_id = $1`,
		`DELETE FROM choices WHERE event_id = $1`,
		`DELETE FROM sessions WHERE event_id = $1`,
		`DELETE FROM categories WHERE event_id = $1`,
		`DELETE FROM event_organisers WHERE event_id = $1`,
	} {
		if _, err := q.Exec(ctx, stmt, eventID); err != nil {
			return fmt.Errorf("clear event children: %w", err)
		}
	}
	return nil
}

func insertChildren(ctx context.Context, q querier, e *model.Event) error {
	if err := ensurePersons(ctx, q, e.Organisers...); err != nil {
		return err
	}
	for i, o := range e.Organisers {
		if _, err := q.Exec(ctx,
			`INSERT INTO event_organisers (event_id, person_id, position) VALUES ($1, $2, $3)`,
			e.ID, o.ID, i,
		); err != nil {
			return fmt.Errorf("insert organiser: %w", err)
		}
	}

	for _, c := range e.Categories {
		if _, err := q.Exec(ctx,
			`INSERT INTO categories (id, event_id, sort_order, name, price)
			 VALUES ($1, $2, $3, $4, $5::text::numeric)`,
			c.ID, e.ID, c.Order, c.Name, model.FormatAmount(&c.Price),
		); err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		for set, groups := range [][]string{c.Groups1, c.Groups2} {
			for _, g := range groups {
				if _, err := q.Exec(ctx,
					`INSERT INTO category_groups (category_id, set_no, group_name)
					 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
					c.ID, set+1, g,
				); err != nil {
					return fmt.Errorf("insert category group: %w", err)
				}
			}
		}
	}

	for i, s := range e.Sessions {
		if _, err := q.Exec(ctx,
			`INSERT INTO sessions (id, event_id, position, title, start_at, end_at, max_participants)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, e.ID, i, s.Title, s.Start, s.End, s.MaxParticipants,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}

	for i, c := range e.Choices {
		if _, err := q.Exec(ctx,
			`INSERT INTO choices (id, event_id, position, title) VALUES ($1, $2, $3, $4)`,
			c.ID, e.ID, i, c.Title,
		); err != nil {
			return fmt.Errorf("insert choice: %w", err)
		}
		for j, o := range c.Options {
			if _, err := q.Exec(ctx,
				`INSERT INTO options (id, choice_id, position, title, is_default) VALUES ($1, $2, $3, $4, $5)`,
				o.ID, c.ID, j, o.Title, o.Default,
			); err != nil {
				return fmt.Errorf("insert option: %w", err)
			}
		}
	}

	for _, b := range e.Bookings {
		if err := insertBooking(ctx, q, e.ID, b); err != nil {
			return err
		}
	}
	return nil
}

func insertBooking(ctx context.Context, q querier, eventID string, b *model.Booking) error {
	if err := ensurePersons(ctx, q, b.Person); err != nil {
		return err
	}
	var (
		sessionID *string
		paidTo    *string
		datePaid  *time.Time
	)
	if b.SessionID != "" {
		sessionID = &b.SessionID
	}
	if b.Payment != nil {
		paidTo = &b.Payment.PaidTo
		datePaid = &b.Payment.DatePaid
	}
	_, err := q.Exec(ctx,
		`INSERT INTO bookings (id, event_id, person_id, session_id, confirmed_on, cancelled_on,
		                       cancelled_by, paid_to, date_paid, exempt_of_payment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, eventID, b.Person.ID, sessionID,
		b.Lifecycle.ConfirmedOn(), b.Lifecycle.CancelledOn(), b.Lifecycle.CancelledByColumn(),
		paidTo, datePaid, b.ExemptOfPayment, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	for _, bo := range b.Options {
		if _, err := q.Exec(ctx,
			`INSERT INTO booking_options (id, booking_id, choice_id, option_id) VALUES ($1, $2, $3, $4)`,
			bo.ID, b.ID, bo.ChoiceID, bo.OptionID,
		); err != nil {
			return fmt.Errorf("insert booking option: %w", err)
		}
	}
	return nil
}

// ensurePersons makes sure referenced persons exist without touching the
// groups of those already stored.
func ensurePersons(ctx context.Context, q querier, persons ...model.Person) error {
	for _, p := range persons {
		tag, err := q.Exec(ctx,
			`INSERT INTO persons (id, full_name, email, superuser)
			 VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.FullName, p.Email, p.Superuser,
		)
		if err != nil {
			return fmt.Errorf("insert person: %w", err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		for _, g := range p.Groups {
			if _, err := q.Exec(ctx,
				`INSERT INTO person_groups (person_id, group_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				p.ID, g,
			); err != nil {
				return fmt.Errorf("insert person group: %w", err)
			}
		}
	}
	return nil
}
