package reckon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/reckon/date"
	"github.com/shopspring/decimal"
)

var defaultTimeLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04PM"}

// hasTime reports whether a parsed date carries more than a day: a time of
// day, a fraction of second or an offset from UTC.
func hasTime(t time.Time) bool {
	_, offset := t.Zone()
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 || offset != 0
}

// Normalize converts a raw statement row into a canonical Transaction.
//
// It fails with a *MalformedRowError when a required field is missing, when
// the amount or the date cannot be parsed, or when the currency is unknown
// or inconsistent with the format. Normalize has no side effect.
func Normalize(account string, seq int, row Row, f Format) (Transaction, error) {
	malformed := func(field, value string, err error) (Transaction, error) {
		return Transaction{}, &MalformedRowError{Source: account, Seq: seq, Field: field, Value: value, Err: err}
	}
	if account == "" {
		return malformed("", "", errors.New("account is missing"))
	}

	tx := Transaction{Account: account, Seq: seq, Raw: row}

	// Date, with an optional time of day.
	rawDate, ok := lookup(row, f.Date)
	if !ok {
		return malformed(f.Date, "", errors.New("date is missing"))
	}
	on, err := date.ParseIn(rawDate, f.DateLayouts...)
	if err != nil {
		return malformed(f.Date, rawDate, err)
	}
	tx.Timestamp = on
	tx.HasTime = hasTime(on)
	if rawTime, ok := lookup(row, f.Time); ok {
		layouts := f.TimeLayouts
		if len(layouts) == 0 {
			layouts = defaultTimeLayouts
		}
		clock, err := date.ParseIn(rawTime, layouts...)
		if err != nil {
			return malformed(f.Time, rawTime, err)
		}
		y, m, d := on.Date()
		tx.Timestamp = time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), time.UTC)
		tx.HasTime = true
	}

	// Currency
	cur, err := currencyOf(row, f.Currency, f.FixedCurrency)
	if err != nil {
		return malformed(f.Currency, cur, err)
	}

	// Amount, either signed or split in debit and credit.
	var amount decimal.Decimal
	if f.Amount != "" {
		raw, ok := lookup(row, f.Amount)
		if !ok {
			return malformed(f.Amount, "", errors.New("amount is missing"))
		}
		if amount, err = parseAmount(raw, f.DecimalSeparator, f.ThousandsSeparator); err != nil {
			return malformed(f.Amount, raw, err)
		}
	} else {
		rawDebit, hasDebit := lookup(row, f.Debit)
		rawCredit, hasCredit := lookup(row, f.Credit)
		if !hasDebit && !hasCredit {
			return malformed(f.Debit+"/"+f.Credit, "", errors.New("debit and credit are both missing"))
		}
		var debit, credit decimal.Decimal
		if hasDebit {
			if debit, err = parseAmount(rawDebit, f.DecimalSeparator, f.ThousandsSeparator); err != nil {
				return malformed(f.Debit, rawDebit, err)
			}
		}
		if hasCredit {
			if credit, err = parseAmount(rawCredit, f.DecimalSeparator, f.ThousandsSeparator); err != nil {
				return malformed(f.Credit, rawCredit, err)
			}
		}
		if !debit.IsZero() && !credit.IsZero() {
			return malformed(f.Debit+"/"+f.Credit, rawDebit+"/"+rawCredit, errors.New("both debit and credit are set"))
		}
		amount = credit.Abs().Sub(debit.Abs())
	}
	if f.NegateAmount {
		amount = amount.Neg()
	}
	tx.Amount = M(amount, cur)

	tx.Description, _ = lookup(row, f.Description)
	tx.Reference, _ = lookup(row, f.Reference)
	return tx, nil
}

// NormalizeAll normalizes all rows of an account. Rows that fail are
// reported in errs and skipped, the other ones are returned in input order.
// The Seq of a transaction is the index of its row, so that identifiers do
// not depend on which rows failed.
func NormalizeAll(account string, rows []Row, f Format) (txs []Transaction, errs []error) {
	if err := f.Validate(); err != nil {
		return nil, []error{err}
	}
	for i, row := range rows {
		tx, err := Normalize(account, i, row, f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, errs
}

// currencyOf resolves the currency of a row from its column and the fixed
// currency of the format, they must agree when both are set.
func currencyOf(row Row, column, fixed string) (string, error) {
	raw, hasColumn := lookup(row, column)
	cur := strings.ToUpper(raw)
	switch {
	case hasColumn && fixed != "" && cur != fixed:
		return raw, fmt.Errorf("currency %q is inconsistent with %q", raw, fixed)
	case !hasColumn && fixed == "":
		return "", errors.New("currency is missing")
	case !hasColumn:
		cur = fixed
	}
	if err := ValidateCurrency(cur); err != nil {
		return raw, err
	}
	return cur, nil
}

// parseAmount parses a decimal amount as found in statements: optional
// currency symbol, thousands separators, parenthesis or a DR suffix for
// negative values.
func parseAmount(raw, decimalSep, thousandsSep string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	switch upper := strings.ToUpper(s); {
	case strings.HasSuffix(upper, "DR"):
		negative = !negative
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "CR"):
		s = s[:len(s)-2]
	}
	s = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", " ", "", " ", "").Replace(s)
	if thousandsSep != "" {
		s = strings.ReplaceAll(s, thousandsSep, "")
	} else if decimalSep == "" || decimalSep == "." {
		s = strings.ReplaceAll(s, ",", "")
	}
	if decimalSep != "" && decimalSep != "." {
		s = strings.ReplaceAll(s, decimalSep, ".")
	}
	if s == "" {
		return decimal.Zero, errors.New("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
