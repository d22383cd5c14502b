package model

import "slices"

// DefaultOption returns the option marked default, or nil for a choice
// without options.
func (c *Choice) DefaultOption() *Option {
	for i := range c.Options {
		if c.Options[i].Default {
			return &c.Options[i]
		}
	}
	return nil
}

// FindOption returns the option with the given ID.
func (c *Choice) FindOption(id string) (*Option, error) {
	for i := range c.Options {
		if c.Options[i].ID == id {
			return &c.Options[i], nil
		}
	}
	return nil, notFound("option", id)
}

// SetDefault makes optionID the only default option of the choice.
func (c *Choice) SetDefault(optionID string) error {
	if _, err := c.FindOption(optionID); err != nil {
		return err
	}
	for i := range c.Options {
		c.Options[i].Default = c.Options[i].ID == optionID
	}
	return nil
}

// ensureDefault restores "exactly one default": the first default wins, and
// with none the first option is promoted.
func (c *Choice) ensureDefault() {
	found := false
	for i := range c.Options {
		if c.Options[i].Default {
			if found {
				c.Options[i].Default = false
			}
			found = true
		}
	}
	if !found && len(c.Options) > 0 {
		c.Options[0].Default = true
	}
}

// FindChoice returns the choice with the given ID.
func (e *Event) FindChoice(id string) (*Choice, error) {
	for i := range e.Choices {
		if e.Choices[i].ID == id {
			return &e.Choices[i], nil
		}
	}
	return nil, notFound("choice", id)
}

// FindOption locates an option among all choices of the event.
func (e *Event) FindOption(optionID string) (*Choice, *Option, error) {
	for i := range e.Choices {
		c := &e.Choices[i]
		for j := range c.Options {
			if c.Options[j].ID == optionID {
				return c, &c.Options[j], nil
			}
		}
	}
	return nil, nil, notFound("option", optionID)
}

// AddBookingOption records that b picked optionID. Picking the option already
// held is a no-op; picking another option of a choice already answered is a
// ValidationError.
func (e *Event) AddBookingOption(b *Booking, optionID string) error {
	if err := e.owns(b); err != nil {
		return err
	}
	choice, opt, err := e.FindOption(optionID)
	if err != nil {
		return err
	}
	if held := b.OptionFor(choice.ID); held != nil {
		if held.OptionID == opt.ID {
			return nil
		}
		return invalidf("%s already has a choice for %s", b.Person.FullName, choice.Title)
	}
	b.Options = append(b.Options, BookingOption{ID: newID(), OptionID: opt.ID, ChoiceID: choice.ID})
	return nil
}

// SelectOption is AddBookingOption that replaces an earlier pick for the
// same choice instead of failing.
func (e *Event) SelectOption(b *Booking, optionID string) error {
	if err := e.owns(b); err != nil {
		return err
	}
	choice, opt, err := e.FindOption(optionID)
	if err != nil {
		return err
	}
	if held := b.OptionFor(choice.ID); held != nil {
		held.OptionID = opt.ID
		return nil
	}
	b.Options = append(b.Options, BookingOption{ID: newID(), OptionID: opt.ID, ChoiceID: choice.ID})
	return nil
}

// AddChoice creates a choice with the given option titles, options[def]
// being the default, and gives that default to every active booking.
func (e *Event) AddChoice(title string, options []string, def int) (*Choice, error) {
	title = normaliseTitle(title)
	if title == "" {
		return nil, invalidf("choice title is required")
	}
	for _, c := range e.Choices {
		if sameTitle(c.Title, title) {
			return nil, invalidf("choice %q already exists", title)
		}
	}
	if len(options) == 0 {
		return nil, invalidf("choice %q needs at least one option", title)
	}
	if def < 0 || def >= len(options) {
		return nil, invalidf("default option index %d out of range", def)
	}

	c := Choice{ID: newID(), Title: title}
	for i, t := range options {
		t = normaliseTitle(t)
		if t == "" {
			return nil, invalidf("option title is required")
		}
		for _, o := range c.Options {
			if sameTitle(o.Title, t) {
				return nil, invalidf("option %q is listed twice", t)
			}
		}
		c.Options = append(c.Options, Option{ID: newID(), ChoiceID: c.ID, Title: t, Default: i == def})
	}

	e.Choices = append(e.Choices, c)
	added := &e.Choices[len(e.Choices)-1]
	e.OnChoiceCreated(added, added.DefaultOption())
	return added, nil
}

// OnChoiceCreated gives defaultOption to every active booking that has not
// answered choice yet.
func (e *Event) OnChoiceCreated(choice *Choice, defaultOption *Option) {
	if defaultOption == nil {
		return
	}
	for _, b := range e.ActiveBookings() {
		if b.OptionFor(choice.ID) != nil {
			continue
		}
		b.Options = append(b.Options, BookingOption{ID: newID(), OptionID: defaultOption.ID, ChoiceID: choice.ID})
	}
}

// AddOption appends an option to a choice. A new default demotes the old one.
func (e *Event) AddOption(choiceID, title string, isDefault bool) (*Option, error) {
	c, err := e.FindChoice(choiceID)
	if err != nil {
		return nil, err
	}
	title = normaliseTitle(title)
	if title == "" {
		return nil, invalidf("option title is required")
	}
	for _, o := range c.Options {
		if sameTitle(o.Title, title) {
			return nil, invalidf("option %q already exists for %s", title, c.Title)
		}
	}
	opt := Option{ID: newID(), ChoiceID: c.ID, Title: title}
	c.Options = append(c.Options, opt)
	if isDefault {
		if err := c.SetDefault(opt.ID); err != nil {
			return nil, err
		}
	}
	c.ensureDefault()
	return &c.Options[len(c.Options)-1], nil
}

// SetDefaultOption makes optionID the default of its choice.
func (e *Event) SetDefaultOption(choiceID, optionID string) error {
	c, err := e.FindChoice(choiceID)
	if err != nil {
		return err
	}
	return c.SetDefault(optionID)
}

// DeleteOption removes an option. Bookings that held it move to the choice's
// default, promoting the first remaining option when the default was deleted.
// The last option of a choice cannot be deleted.
func (e *Event) DeleteOption(choiceID, optionID string) error {
	c, err := e.FindChoice(choiceID)
	if err != nil {
		return err
	}
	if _, err := c.FindOption(optionID); err != nil {
		return err
	}
	if len(c.Options) == 1 {
		return invalidf("choice %s must keep at least one option", c.Title)
	}
	c.Options = slices.DeleteFunc(c.Options, func(o Option) bool { return o.ID == optionID })
	c.ensureDefault()
	e.OnOptionDeleted(c, optionID, c.DefaultOption().ID)
	return nil
}

// OnOptionDeleted repoints every booking option on deletedID to newDefaultID.
func (e *Event) OnOptionDeleted(choice *Choice, deletedID, newDefaultID string) {
	for _, b := range e.Bookings {
		for i := range b.Options {
			if b.Options[i].OptionID == deletedID {
				b.Options[i].OptionID = newDefaultID
				b.Options[i].ChoiceID = choice.ID
			}
		}
	}
}

// DeleteChoice removes a choice and every booking's answer to it.
func (e *Event) DeleteChoice(choiceID string) error {
	if _, err := e.FindChoice(choiceID); err != nil {
		return err
	}
	e.Choices = slices.DeleteFunc(e.Choices, func(c Choice) bool { return c.ID == choiceID })
	for _, b := range e.Bookings {
		b.Options = slices.DeleteFunc(b.Options, func(bo BookingOption) bool { return bo.ChoiceID == choiceID })
	}
	return nil
}

// OptionCount is the number of active bookings holding one option.
type OptionCount struct {
	Option Option `json:"option"`
	Total  int    `json:"total"`
}

// ChoiceSummary lists the option counts of one choice, in option order.
type ChoiceSummary struct {
	Choice  string        `json:"choice"`
	Options []OptionCount `json:"options"`
}

// OptionCounts summarises the options picked by active bookings, in choice
// order.
func (e *Event) OptionCounts() []ChoiceSummary {
	counts := make(map[string]int)
	for _, b := range e.ActiveBookings() {
		for _, bo := range b.Options {
			counts[bo.OptionID]++
		}
	}
	summary := make([]ChoiceSummary, 0, len(e.Choices))
	for _, c := range e.Choices {
		cs := ChoiceSummary{Choice: c.Title, Options: make([]OptionCount, 0, len(c.Options))}
		for _, o := range c.Options {
			cs.Options = append(cs.Options, OptionCount{Option: o, Total: counts[o.ID]})
		}
		summary = append(summary, cs)
	}
	return summary
}
