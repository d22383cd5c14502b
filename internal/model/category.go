package model

import (
	"slices"
	"sort"

	"github.com/cockroachdb/apd/v3"
)

// UnknownCategory names the bucket of bookers who match no category.
const UnknownCategory = "Unknown"

// Match reports whether a person in groups falls into the category.
//
// The rule reads "in any of Groups1 AND in any of Groups2", an empty set
// being satisfied by everyone.
func (c *Category) Match(groups []string) bool {
	if len(c.Groups1) == 0 {
		return true
	}
	if !intersects(groups, c.Groups1) {
		return false
	}
	if len(c.Groups2) == 0 {
		return true
	}
	return intersects(groups, c.Groups2)
}

func intersects(a, b []string) bool {
	for _, g := range a {
		if slices.Contains(b, g) {
			return true
		}
	}
	return false
}

// UserCategory returns the first category, in stored order, that p matches,
// or nil when none does.
func (e *Event) UserCategory(p Person) *Category {
	for i := range e.Categories {
		if e.Categories[i].Match(p.Groups) {
			return &e.Categories[i]
		}
	}
	return nil
}

// UserPrice returns the price of p's category. ok is false when p matches
// no category.
func (e *Event) UserPrice(p Person) (price apd.Decimal, ok bool) {
	cat := e.UserCategory(p)
	if cat == nil {
		return apd.Decimal{}, false
	}
	return copyAmount(&cat.Price), true
}

// SetCategories replaces the event categories. Orders and names must be
// unique; the stored list is sorted by Order.
func (e *Event) SetCategories(cats []Category) error {
	orders := make(map[int]bool, len(cats))
	names := make([]string, 0, len(cats))
	for i := range cats {
		c := &cats[i]
		c.Name = normaliseTitle(c.Name)
		if c.Name == "" {
			return invalidf("category name is required")
		}
		if err := validatePrice(c.Name, &c.Price); err != nil {
			return err
		}
		if orders[c.Order] {
			return invalidf("category order %d is used twice", c.Order)
		}
		orders[c.Order] = true
		for _, n := range names {
			if sameTitle(n, c.Name) {
				return invalidf("category %q is defined twice", c.Name)
			}
		}
		names = append(names, c.Name)
		if c.ID == "" {
			c.ID = newID()
		}
	}

	sorted := slices.Clone(cats)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	e.Categories = sorted
	return nil
}

// CategoryIndex memoises category lookups per person, for passes over many
// bookings of one event.
type CategoryIndex struct {
	event *Event
	cache map[string]*Category
}

// NewCategoryIndex builds an empty index over e. The index must be discarded
// once e's categories change.
func NewCategoryIndex(e *Event) *CategoryIndex {
	return &CategoryIndex{event: e, cache: make(map[string]*Category)}
}

// Category returns e.UserCategory(p), computed at most once per person.
func (ix *CategoryIndex) Category(p Person) *Category {
	if cat, ok := ix.cache[p.ID]; ok {
		return cat
	}
	cat := ix.event.UserCategory(p)
	ix.cache[p.ID] = cat
	return cat
}

// CategoryName returns the matched category name or UnknownCategory.
func (ix *CategoryIndex) CategoryName(p Person) string {
	if cat := ix.Category(p); cat != nil {
		return cat.Name
	}
	return UnknownCategory
}

// MustPay is Event.MustPay backed by the index.
func (ix *CategoryIndex) MustPay(b *Booking) apd.Decimal {
	return mustPay(ix.event, b, ix.Category(b.Person))
}
