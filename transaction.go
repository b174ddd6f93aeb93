package reckon

import (
	"fmt"
	"time"

	"github.com/etnz/reckon/date"
)

// Row is a raw input record: a CSV line keyed by its header, or a decoded
// JSON object. Values are strings for CSV sources, and any JSON value for
// JSON sources.
type Row map[string]any

// Transaction is the canonical shape of a bank statement line.
//
// A positive Amount is a credit (money in), a negative one a debit (money
// out). Transactions are ordered by Timestamp within an account, Seq breaks
// ties in input order.
type Transaction struct {
	Account     string    // Account is the owning account identifier.
	Seq         int       // Seq is the position of the row in its account input.
	Timestamp   time.Time // Timestamp is the booking date, with a time of day when HasTime is set.
	HasTime     bool
	Amount      Money  // Amount is signed, in the transaction currency.
	Description string // Description is the free text reported by the bank.
	Reference   string // Reference is an optional external identifier.
	Raw         Row    // Raw is the original row, kept for audit.
}

// ID returns a stable identifier of the transaction within a run.
func (t Transaction) ID() string { return fmt.Sprintf("%s#%d", t.Account, t.Seq) }

// Currency returns the transaction currency.
func (t Transaction) Currency() string { return t.Amount.Currency() }

// Date returns the day of the transaction.
func (t Transaction) Date() date.Date { return date.Of(t.Timestamp) }

// IsDebit reports whether money went out of the account.
func (t Transaction) IsDebit() bool { return t.Amount.IsNegative() }

// IsCredit reports whether money came in the account.
func (t Transaction) IsCredit() bool { return t.Amount.IsPositive() }

// Equal compares all canonical fields. The raw row is not compared: it is an
// audit trail, not part of the transaction identity.
func (t Transaction) Equal(o Transaction) bool {
	return t.Account == o.Account &&
		t.Seq == o.Seq &&
		t.Timestamp.Equal(o.Timestamp) &&
		t.HasTime == o.HasTime &&
		t.Amount.Equal(o.Amount) &&
		t.Description == o.Description &&
		t.Reference == o.Reference
}

// before is the total order used everywhere transactions are sorted:
// timestamp, then account, then input order.
func (t Transaction) before(o Transaction) bool {
	if !t.Timestamp.Equal(o.Timestamp) {
		return t.Timestamp.Before(o.Timestamp)
	}
	if t.Account != o.Account {
		return t.Account < o.Account
	}
	return t.Seq < o.Seq
}

// compareTransactions adapts before to slices.SortFunc.
func compareTransactions(a, b Transaction) int {
	switch {
	case a.before(b):
		return -1
	case b.before(a):
		return 1
	default:
		return 0
	}
}

// MarshalJSON implements the json.Marshaler interface for Transaction.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", t.ID())
	w.Append("account", t.Account)
	if t.HasTime {
		w.Append("timestamp", t.Timestamp.Format(time.RFC3339))
	} else {
		w.Append("date", t.Date())
	}
	w.EmbedFrom(t.Amount.exact())
	w.Optional("description", t.Description)
	w.Optional("reference", t.Reference)
	return w.MarshalJSON()
}

// CanonicalFormat is the Format of rows produced by CanonicalRow. A date with
// a time of day is an RFC 3339 timestamp, offset and fraction included.
var CanonicalFormat = Format{
	Name:        "canonical",
	Date:        "date",
	DateLayouts: []string{time.RFC3339Nano, date.DateFormat},
	Amount:      "amount",
	Currency:    "currency",
	Description: "description",
	Reference:   "reference",
}

// CanonicalRow renders a transaction back into a row of CanonicalFormat.
// Normalizing that row yields the same transaction.
func CanonicalRow(t Transaction) Row {
	row := Row{
		"date":        t.Timestamp.Format(date.DateFormat),
		"amount":      t.Amount.value.String(),
		"currency":    t.Currency(),
		"description": t.Description,
		"reference":   t.Reference,
	}
	if t.HasTime {
		row["date"] = t.Timestamp.Format(time.RFC3339Nano)
	}
	return row
}
