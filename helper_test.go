package reckon

import (
	"testing"
	"time"

	"github.com/etnz/reckon/date"
	"github.com/shopspring/decimal"
)

// AUD is a helper for test to create australian dollars from const
func AUD(v float64) Money { return M(v, "AUD") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// day is a helper for test to create a date.
func day(y int, m time.Month, d int) date.Date { return date.New(y, m, d) }

// dec parses a decimal constant.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// tx is a helper for test to create an AUD transaction on a given day.
func tx(account string, seq int, on date.Date, amount float64, description string) Transaction {
	return Transaction{
		Account:     account,
		Seq:         seq,
		Timestamp:   on.Time(),
		Amount:      AUD(amount),
		Description: description,
	}
}

// must panics on error, to keep table entries short.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// check fails the test on error.
func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
