package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaults counts the default options of c.
func defaults(c *Choice) int {
	n := 0
	for _, o := range c.Options {
		if o.Default {
			n++
		}
	}
	return n
}

func TestAddChoice(t *testing.T) {
	e := newEvent(t, StatusPublic)

	c, err := e.AddChoice(" Meal ", []string{"Meat", "Vegetarian", "Vegan"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "Meal", c.Title)
	assert.Equal(t, 1, defaults(c))
	assert.Equal(t, "Vegan", c.DefaultOption().Title)
	for _, o := range c.Options {
		assert.Equal(t, c.ID, o.ChoiceID)
	}

	tests := []struct {
		name    string
		title   string
		options []string
		def     int
	}{
		{"duplicate title", "meal", []string{"A"}, 0},
		{"empty title", " ", []string{"A"}, 0},
		{"no options", "Drink", nil, 0},
		{"default out of range", "Drink", []string{"Tea"}, 1},
		{"duplicate option", "Drink", []string{"Tea", "tea"}, 0},
		{"empty option", "Drink", []string{"Tea", ""}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AddChoice(tt.title, tt.options, tt.def)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
	assert.Len(t, e.Choices, 1)
}

func TestAddChoice_FansOutDefaultToActiveBookings(t *testing.T) {
	e := newEvent(t, StatusPublic)
	active := book(t, e, staff, "")
	cancelled := book(t, e, student, "")
	require.NoError(t, e.CancelBooking(cancelled, student, beforeEvent))

	c, err := e.AddChoice("Meal", []string{"Meat", "Vegetarian"}, 1)
	require.NoError(t, err)

	require.NotNil(t, active.OptionFor(c.ID))
	assert.Equal(t, c.Options[1].ID, active.OptionFor(c.ID).OptionID)
	assert.Nil(t, cancelled.OptionFor(c.ID))
}

func TestAddBookingOption(t *testing.T) {
	e := newEvent(t, StatusPublic)
	c, err := e.AddChoice("Meal", []string{"Meat", "Vegetarian"}, 0)
	require.NoError(t, err)
	meat, veg := c.Options[0].ID, c.Options[1].ID
	b, _, err := e.CreateBooking(staff, staff, beforeEvent)
	require.NoError(t, err)

	require.NoError(t, e.AddBookingOption(b, veg))
	require.NoError(t, e.AddBookingOption(b, veg), "same option twice is a no-op")
	assert.Len(t, b.Options, 1)

	err = e.AddBookingOption(b, meat)
	assert.True(t, IsValidation(err))
	assert.Equal(t, veg, b.Options[0].OptionID)

	assert.True(t, IsNotFound(e.AddBookingOption(b, "opt-ghost")))
}

func TestSelectOption_Replaces(t *testing.T) {
	e := newEvent(t, StatusPublic)
	c, err := e.AddChoice("Meal", []string{"Meat", "Vegetarian"}, 0)
	require.NoError(t, err)
	b := book(t, e, staff, "")
	require.Equal(t, c.Options[0].ID, b.OptionFor(c.ID).OptionID)

	require.NoError(t, e.SelectOption(b, c.Options[1].ID))
	assert.Len(t, b.Options, 1)
	assert.Equal(t, c.Options[1].ID, b.OptionFor(c.ID).OptionID)
}

func TestAddOption_NewDefaultDemotesOld(t *testing.T) {
	e := newEvent(t, StatusPublic)
	c, err := e.AddChoice("Meal", []string{"Meat"}, 0)
	require.NoError(t, err)

	_, err = e.AddOption(c.ID, "Vegetarian", false)
	require.NoError(t, err)
	assert.Equal(t, "Meat", c.DefaultOption().Title)

	vegan, err := e.AddOption(c.ID, "Vegan", true)
	require.NoError(t, err)
	assert.Equal(t, vegan.ID, c.DefaultOption().ID)
	assert.Equal(t, 1, defaults(c))

	_, err = e.AddOption(c.ID, "vegan", false)
	assert.True(t, IsValidation(err))
	_, err = e.AddOption("ch-ghost", "Fish", false)
	assert.True(t, IsNotFound(err))
}

func TestSetDefaultOption(t *testing.T) {
	e := newEvent(t, StatusPublic)
	c, err := e.AddChoice("Meal", []string{"Meat", "Vegetarian"}, 0)
	require.NoError(t, err)

	require.NoError(t, e.SetDefaultOption(c.ID, c.Options[1].ID))
	assert.Equal(t, "Vegetarian", c.DefaultOption().Title)
	assert.Equal(t, 1, defaults(c))

	assert.True(t, IsNotFound(e.SetDefaultOption(c.ID, "opt-ghost")))
}

func TestDeleteOption_RepointsBookings(t *testing.T) {
	e := newEvent(t, StatusPublic)
	c, err := e.AddChoice("Meal", []string{"Meat", "Vegetarian", "Vegan"}, 0)
	require.NoError(t, err)
	choiceID := c.ID
	meat, veg, vegan := c.Options[0].ID, c.Options[1].ID, c.Options[2].ID

	b1 := book(t, e, staff, "")
	b2 := book(t, e, student, "")
	require.NoError(t, e.SelectOption(b2, vegan))

	t.Run("non default option", func(t *testing.T) {
		require.NoError(t, e.DeleteOption(choiceID, vegan))
		assert.Equal(t, meat, b2.OptionFor(choiceID).OptionID)
		assert.Equal(t, meat, b1.OptionFor(choiceID).OptionID)
	})

	t.Run("default option promotes the first remaining", func(t *testing.T) {
		require.NoError(t, e.DeleteOption(choiceID, meat))
		ch, err := e.FindChoice(choiceID)
		require.NoError(t, err)
		require.Len(t, ch.Options, 1)
		assert.True(t, ch.Options[0].Default)
		assert.Equal(t, veg, b1.OptionFor(choiceID).OptionID)
		assert.Equal(t, veg, b2.OptionFor(choiceID).OptionID)
	})

	t.Run("last option", func(t *testing.T) {
		assert.True(t, IsValidation(e.DeleteOption(choiceID, veg)))
	})

	t.Run("unknown option", func(t *testing.T) {
		assert.True(t, IsNotFound(e.DeleteOption(choiceID, meat)))
	})
}

func TestDeleteChoice(t *testing.T) {
	e := newEvent(t, StatusPublic)
	meal, err := e.AddChoice("Meal", []string{"Meat", "Vegetarian"}, 0)
	require.NoError(t, err)
	mealID := meal.ID
	drink, err := e.AddChoice("Drink", []string{"Tea"}, 0)
	require.NoError(t, err)
	drinkID := drink.ID
	b := book(t, e, staff, "")
	require.Len(t, b.Options, 2)

	require.NoError(t, e.DeleteChoice(mealID))
	require.Len(t, e.Choices, 1)
	assert.Equal(t, drinkID, e.Choices[0].ID)
	require.Len(t, b.Options, 1)
	assert.Equal(t, drinkID, b.Options[0].ChoiceID)
	assert.NoError(t, e.ValidateBooking(b))

	assert.True(t, IsNotFound(e.DeleteChoice(mealID)))
}

func TestOptionCounts(t *testing.T) {
	e := newEvent(t, StatusPublic)
	c, err := e.AddChoice("Meal", []string{"Meat", "Vegetarian", "Vegan"}, 0)
	require.NoError(t, err)
	vegID := c.Options[1].ID

	book(t, e, staff, "")
	b := book(t, e, student, "")
	require.NoError(t, e.SelectOption(b, vegID))
	gone := book(t, e, outsider, "")
	require.NoError(t, e.SelectOption(gone, vegID))
	require.NoError(t, e.CancelBooking(gone, outsider, beforeEvent))

	summary := e.OptionCounts()
	require.Len(t, summary, 1)
	assert.Equal(t, "Meal", summary[0].Choice)

	totals := map[string]int{}
	for _, oc := range summary[0].Options {
		totals[oc.Option.Title] = oc.Total
	}
	assert.Equal(t, map[string]int{"Meat": 1, "Vegetarian": 1, "Vegan": 0}, totals)
}
