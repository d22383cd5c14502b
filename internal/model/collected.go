package model

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/apd/v3"
)

// TotalLabel names the synthetic total row and column.
const TotalLabel = "Total"

// CollectedRow holds the money one organiser collected, per category.
type CollectedRow struct {
	// Organiser is the full name, or TotalLabel for the last row.
	Organiser string `json:"organiser"`
	// PersonID is empty on the total row.
	PersonID string        `json:"person_id,omitempty"`
	Amounts  []apd.Decimal `json:"amounts"`
	Total    apd.Decimal   `json:"total"`
}

// CollectedSums is the table of collected money: one row per organiser,
// then a total row; one column per category, then a total column.
type CollectedSums struct {
	Categories []string       `json:"categories"`
	Rows       []CollectedRow `json:"rows"`
}

// CollectedSums reports the money collected by each organiser for each
// category.
//
// Only non-exempt bookings with a payment count. Amounts are what the booker
// owes now, not what was owed when they paid, so a booker matching no
// category counts for UnassignedAmount in an extra UnknownCategory column.
// Every organiser gets a row even without payments; money collected by
// someone who is no longer an organiser only shows in the total row.
func (e *Event) CollectedSums() *CollectedSums {
	ix := NewCategoryIndex(e)

	categories := make([]string, 0, len(e.Categories)+1)
	for _, c := range e.Categories {
		categories = append(categories, c.Name)
	}

	perOrganiser := make(map[string]map[string]*apd.Decimal)
	overall := make(map[string]*apd.Decimal)
	hasUnknown := false

	for _, b := range e.Bookings {
		if b.Payment == nil || b.ExemptOfPayment {
			continue
		}
		category := ix.CategoryName(b.Person)
		if category == UnknownCategory && len(e.Categories) > 0 {
			hasUnknown = true
		}
		amount := ix.MustPay(b)

		byCategory := perOrganiser[b.Payment.PaidTo]
		if byCategory == nil {
			byCategory = make(map[string]*apd.Decimal)
			perOrganiser[b.Payment.PaidTo] = byCategory
		}
		accumulate(byCategory, category, &amount)
		accumulate(overall, category, &amount)
	}
	if hasUnknown {
		categories = append(categories, UnknownCategory)
	}

	sums := &CollectedSums{Categories: categories}
	for _, orga := range e.Organisers {
		row := makeRow(categories, perOrganiser[orga.ID])
		row.Organiser = orga.FullName
		row.PersonID = orga.ID
		sums.Rows = append(sums.Rows, row)
	}
	total := makeRow(categories, overall)
	total.Organiser = TotalLabel
	sums.Rows = append(sums.Rows, total)
	return sums
}

func accumulate(m map[string]*apd.Decimal, key string, x *apd.Decimal) {
	sum, ok := m[key]
	if !ok {
		zero := ZeroAmount()
		sum = &zero
		m[key] = sum
	}
	addAmount(sum, x)
}

func makeRow(categories []string, values map[string]*apd.Decimal) CollectedRow {
	row := CollectedRow{Amounts: make([]apd.Decimal, len(categories)), Total: ZeroAmount()}
	for i, cat := range categories {
		row.Amounts[i] = ZeroAmount()
		if v, ok := values[cat]; ok {
			row.Amounts[i] = copyAmount(v)
		}
		addAmount(&row.Total, &row.Amounts[i])
	}
	return row
}

// WriteTable renders the sums as an aligned text table, amounts with two
// decimals and the currency (if any) in the header.
func (cs *CollectedSums) WriteTable(w io.Writer, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := append([]string{"Organiser"}, cs.Categories...)
	header = append(header, TotalLabel)
	if currency != "" {
		header[len(header)-1] = fmt.Sprintf("%s (%s)", TotalLabel, currency)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}

	for _, row := range cs.Rows {
		cells := make([]string, 0, len(row.Amounts)+2)
		cells = append(cells, row.Organiser)
		for i := range row.Amounts {
			cells = append(cells, FormatAmount(&row.Amounts[i]))
		}
		cells = append(cells, FormatAmount(&row.Total))
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
