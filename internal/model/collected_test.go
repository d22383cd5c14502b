package model

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paidEvent has the owner alice and organisers bob and carol collecting
// money from a mix of bookers, one of whom matches no category and one of
// whom is exempt.
func paidEvent(t *testing.T) *Event {
	t.Helper()
	e := withCategories(t, newEvent(t, StatusPublic))
	e.IncludeOwner()
	e.PriceCurrency = "GBP"

	pay := func(p Person, collector Person) {
		b := book(t, e, p, "")
		require.NoError(t, e.SetPayment(b, collector, beforeEvent))
	}
	pay(staff, treasurer)
	pay(student, helper)
	pay(outsider, treasurer)
	pay(Person{ID: "gina", FullName: "Gina Student", Groups: []string{"students"}}, treasurer)
	pay(Person{ID: "ivan", FullName: "Ivan Staff", Groups: []string{"staff"}}, owner)

	exempt := book(t, e, Person{ID: "hank", FullName: "Hank Staff", Groups: []string{"staff"}}, "")
	require.NoError(t, e.SetExemption(exempt, helper, beforeEvent))

	// Unpaid bookings never count.
	book(t, e, Person{ID: "judy", FullName: "Judy Staff", Groups: []string{"staff"}}, "")
	return e
}

func amounts(ds []apd.Decimal) []string {
	out := make([]string, len(ds))
	for i := range ds {
		out[i] = FormatAmount(&ds[i])
	}
	return out
}

func TestCollectedSums(t *testing.T) {
	sums := paidEvent(t).CollectedSums()

	assert.Equal(t, []string{"Staff", "Student", UnknownCategory}, sums.Categories)
	require.Len(t, sums.Rows, 4, "one row per organiser plus the total")

	alice, bob, carol, total := sums.Rows[0], sums.Rows[1], sums.Rows[2], sums.Rows[3]
	assert.Equal(t, "Alice Owner", alice.Organiser)
	assert.Equal(t, []string{"40.00", "0.00", "0.00"}, amounts(alice.Amounts))
	assert.Equal(t, "40.00", FormatAmount(&alice.Total))

	assert.Equal(t, "Bob Treasurer", bob.Organiser)
	assert.Equal(t, treasurer.ID, bob.PersonID)
	assert.Equal(t, []string{"40.00", "15.00", "9999.99"}, amounts(bob.Amounts))
	assert.Equal(t, "10054.99", FormatAmount(&bob.Total))

	assert.Equal(t, []string{"0.00", "15.00", "0.00"}, amounts(carol.Amounts))
	assert.Equal(t, "15.00", FormatAmount(&carol.Total))

	assert.Equal(t, TotalLabel, total.Organiser)
	assert.Empty(t, total.PersonID)
	assert.Equal(t, []string{"80.00", "30.00", "9999.99"}, amounts(total.Amounts))
	assert.Equal(t, "10109.99", FormatAmount(&total.Total))

	for col := range sums.Categories {
		sum := ZeroAmount()
		for _, row := range sums.Rows[:3] {
			addAmount(&sum, &row.Amounts[col])
		}
		assert.Equal(t, FormatAmount(&total.Amounts[col]), FormatAmount(&sum), sums.Categories[col])
	}
}

func TestCollectedSums_ColumnsAddUpWhenOrganisersCollect(t *testing.T) {
	e := withCategories(t, newEvent(t, StatusPublic))
	for i, p := range []Person{staff, student, {ID: "gina", Groups: []string{"students"}}} {
		b := book(t, e, p, "")
		collector := e.Organisers[i%len(e.Organisers)]
		require.NoError(t, e.SetPayment(b, collector, beforeEvent))
	}

	sums := e.CollectedSums()
	assert.Equal(t, []string{"Staff", "Student"}, sums.Categories, "no Unknown column without unmatched payers")

	total := sums.Rows[len(sums.Rows)-1]
	for col := range sums.Categories {
		sum := ZeroAmount()
		for _, row := range sums.Rows[:len(sums.Rows)-1] {
			addAmount(&sum, &row.Amounts[col])
		}
		assert.Equal(t, FormatAmount(&total.Amounts[col]), FormatAmount(&sum), sums.Categories[col])
	}

	grand := ZeroAmount()
	for _, row := range sums.Rows[:len(sums.Rows)-1] {
		addAmount(&grand, &row.Total)
	}
	assert.Equal(t, "70.00", FormatAmount(&grand))
	assert.Equal(t, "70.00", FormatAmount(&total.Total))
}

func TestCollectedSums_NoCategories(t *testing.T) {
	e := newEvent(t, StatusPublic)
	b := book(t, e, staff, "")
	require.NoError(t, e.SetExemption(b, treasurer, beforeEvent))

	sums := e.CollectedSums()
	assert.Empty(t, sums.Categories)
	require.Len(t, sums.Rows, 3)
	for _, row := range sums.Rows {
		assert.Empty(t, row.Amounts)
		assert.True(t, row.Total.IsZero())
	}
}

func TestCollectedSums_PricedAtCurrentCategory(t *testing.T) {
	e := paidEvent(t)
	require.NoError(t, e.SetCategories([]Category{
		{Order: 1, Name: "Staff", Price: MustParseAmount("50.00"), Groups1: []string{"staff"}},
		{Order: 2, Name: "Student", Price: MustParseAmount("15.00"), Groups1: []string{"students"}},
		{Order: 3, Name: "Visitor", Price: MustParseAmount("5.00")},
	}))

	sums := e.CollectedSums()
	assert.Equal(t, []string{"Staff", "Student", "Visitor"}, sums.Categories)
	total := sums.Rows[len(sums.Rows)-1]
	assert.Equal(t, []string{"100.00", "30.00", "5.00"}, amounts(total.Amounts))
}

func TestCollectedSums_WriteTable(t *testing.T) {
	e := paidEvent(t)

	var buf bytes.Buffer
	require.NoError(t, e.CollectedSums().WriteTable(&buf, e.PriceCurrency))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "collected_sums", buf.Bytes())
}
