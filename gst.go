package reckon

import (
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// GST categories of the Australian BAS.
const (
	GSTOnSale          = "GST on Sale"
	GSTFreeSale        = "GST Free Sale"
	GSTOnPurchase      = "GST on Purchase"
	InputTaxedSales    = "Input Taxed Sales"
	BASExcluded        = "BAS Excluded"
	InterestIncome     = "Interest Income"
	OtherExemptIncome  = "Other Exempt Income"
	GSTUnknownCategory = "Unknown"
)

// GSTCategory associates a category with the description keywords that
// select it.
type GSTCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// GSTConfig describes how external transactions are given a GST category.
type GSTConfig struct {
	Rate       decimal.Decimal `yaml:"rate"`
	Categories []GSTCategory   `yaml:"categories"` // Categories are tried in order.
	// Overrides forces the category of a transaction, by transaction id.
	Overrides map[string]string `yaml:"overrides"`
}

// DefaultGSTConfig returns the Australian GST: 10% and the usual categories.
func DefaultGSTConfig() GSTConfig {
	return GSTConfig{
		Rate: decimal.RequireFromString("0.10"),
		Categories: []GSTCategory{
			{GSTOnSale, []string{"sale", "invoice", "product"}},
			{GSTFreeSale, []string{"gst free", "exempt"}},
			{GSTOnPurchase, []string{"purchase", "supplier"}},
			{InputTaxedSales, []string{"input taxed"}},
			{BASExcluded, []string{"bas excluded"}},
			{InterestIncome, []string{"interest", "bank interest"}},
			{OtherExemptIncome, []string{"grant", "donation", "compensation"}},
		},
	}
}

// ClassifyGST returns the first category with a keyword found in the
// description, or GSTUnknownCategory.
func (c GSTConfig) ClassifyGST(description string) string {
	description = strings.ToLower(description)
	for _, cat := range c.Categories {
		for _, k := range cat.Keywords {
			if strings.Contains(description, strings.ToLower(k)) {
				return cat.Name
			}
		}
	}
	return GSTUnknownCategory
}

// GSTComponent returns the GST included in amount, rounded to the minor
// unit. Sales are credits and purchases debits, an unknown category is
// assumed taxable either way. Other categories carry no GST.
func GSTComponent(amount Money, category string, rate decimal.Decimal) Money {
	taxable := false
	switch category {
	case GSTOnSale:
		taxable = amount.IsPositive()
	case GSTOnPurchase:
		taxable = amount.IsNegative()
	case GSTUnknownCategory:
		taxable = !amount.IsZero()
	}
	if !taxable {
		return M(0, amount.Currency())
	}
	one := decimal.NewFromInt(1)
	gst := amount.Abs().Decimal().Mul(rate).Div(one.Add(rate))
	return M(gst, amount.Currency()).Round()
}

// GSTLine is the GST annotation of one external transaction.
type GSTLine struct {
	Transaction Transaction
	Category    string
	GST         Money
}

// MarshalJSON implements the json.Marshaler interface for GSTLine.
func (l GSTLine) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", l.Transaction.ID())
	w.Append("category", l.Category)
	w.Append("gst", l.GST)
	return w.MarshalJSON()
}

// AnnotateGST categorizes the external transactions of a reconciliation.
// Transfers between accounts are not annotated.
func AnnotateGST(r *ReconciliationResult, cfg GSTConfig) []GSTLine {
	lines := make([]GSTLine, 0, len(r.External))
	for _, t := range r.External {
		category, ok := cfg.Overrides[t.ID()]
		if !ok {
			category = cfg.ClassifyGST(t.Description)
		}
		lines = append(lines, GSTLine{
			Transaction: t,
			Category:    category,
			GST:         GSTComponent(t.Amount, category, cfg.Rate),
		})
	}
	return lines
}

// GSTTotal is the GST of the external transactions of one currency.
type GSTTotal struct {
	Currency  string
	Collected Money // Collected is the GST included in credits.
	Paid      Money // Paid is the GST included in debits.
}

// TotalGST returns the GST collected on sales and paid on purchases, one
// total per currency, sorted by currency.
func TotalGST(lines []GSTLine) []GSTTotal {
	byCurrency := make(map[string]*GSTTotal)
	for _, l := range lines {
		cur := l.Transaction.Currency()
		total, ok := byCurrency[cur]
		if !ok {
			total = &GSTTotal{Currency: cur, Collected: M(0, cur), Paid: M(0, cur)}
			byCurrency[cur] = total
		}
		if l.Transaction.IsCredit() {
			total.Collected = total.Collected.Add(l.GST)
		} else {
			total.Paid = total.Paid.Add(l.GST)
		}
	}
	totals := make([]GSTTotal, 0, len(byCurrency))
	for _, cur := range slices.Sorted(maps.Keys(byCurrency)) {
		totals = append(totals, *byCurrency[cur])
	}
	return totals
}
