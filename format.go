package reckon

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Format describes how to read a bank statement row.
//
// Column names are matched exactly first, then ignoring case and
// surrounding spaces. A column starting with '$' is a JSONPath expression
// evaluated against the row, for JSON sources.
type Format struct {
	Name        string   `yaml:"name"`
	Date        string   `yaml:"date"`
	DateLayouts []string `yaml:"date_layouts"` // Go time layouts, tried in order.
	Time        string   `yaml:"time"`         // optional time of day column.
	TimeLayouts []string `yaml:"time_layouts"`
	Description string   `yaml:"description"`

	// Either Amount, a signed amount column, or Debit and/or Credit, two
	// unsigned columns.
	Amount string `yaml:"amount"`
	Debit  string `yaml:"debit"`
	Credit string `yaml:"credit"`

	Reference     string `yaml:"reference"`
	Currency      string `yaml:"currency"`       // currency column.
	FixedCurrency string `yaml:"fixed_currency"` // currency of every row.

	DecimalSeparator   string `yaml:"decimal_separator"` // "." by default.
	ThousandsSeparator string `yaml:"thousands_separator"`
	NegateAmount       bool   `yaml:"negate_amount"` // for statements reporting debits as positive amounts.
}

// Validate checks that the format can produce a transaction.
func (f Format) Validate() error {
	var errs []error
	if f.Date == "" {
		errs = append(errs, errors.New("date column is missing"))
	}
	if f.Amount == "" && f.Debit == "" && f.Credit == "" {
		errs = append(errs, errors.New("amount or debit/credit columns are missing"))
	}
	if f.Amount != "" && (f.Debit != "" || f.Credit != "") {
		errs = append(errs, errors.New("amount and debit/credit columns are exclusive"))
	}
	if f.Currency == "" && f.FixedCurrency == "" {
		errs = append(errs, errors.New("currency column or fixed currency is missing"))
	}
	if f.FixedCurrency != "" {
		if err := ValidateCurrency(f.FixedCurrency); err != nil {
			errs = append(errs, err)
		}
	}
	if f.DecimalSeparator != "" && f.DecimalSeparator == f.ThousandsSeparator {
		errs = append(errs, errors.New("decimal and thousands separators must differ"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid format %q: %w", f.Name, err)
	}
	return nil
}

// auLayouts are the date layouts found in Australian bank exports.
var auLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02", "02 Jan 2006", "2 Jan 2006", "02-01-2006"}

// presets are the column layouts of the bank exports known to work.
var presets = map[string]Format{
	"CBA":       {Date: "Date", Description: "Description", Amount: "Amount"},
	"ANZ":       {Date: "Transaction Date", Description: "Transaction Details", Amount: "Amount ($)"},
	"WESTPAC":   {Date: "Date", Description: "Transaction Description", Debit: "Debit", Credit: "Credit"},
	"NAB":       {Date: "Date", Description: "Description", Debit: "Debit", Credit: "Credit"},
	"MACQUARIE": {Date: "Date", Description: "Transaction Details", Amount: "Amount"},
	"HSBC":      {Date: "Date", Description: "Transaction Details", Debit: "Money Out", Credit: "Money In"},
	"BOQ":       {Date: "Transaction Date", Description: "Description", Amount: "Transaction Amount"},
	"ING":       {Date: "Date", Description: "Transaction Description", Amount: "Amount"},
	"BENDIGO":   {Date: "Transaction Date", Description: "Particulars", Debit: "Withdrawal", Credit: "Deposit"},
	"SUNCORP":   {Date: "Date", Description: "Transaction Description", Amount: "Transaction Amount"},
	"AMP":       {Date: "Date", Description: "Description", Debit: "Debit", Credit: "Credit"},
	"ME":        {Date: "Transaction Date", Description: "Description", Amount: "Amount"},
}

// Preset returns the format of a known bank export. Lookup ignores case.
func Preset(bank string) (Format, bool) {
	name := strings.ToUpper(strings.TrimSpace(bank))
	f, ok := presets[name]
	if !ok {
		return Format{}, false
	}
	f.Name = name
	f.DateLayouts = auLayouts
	f.FixedCurrency = "AUD"
	return f, true
}

// Presets returns the names of all known bank presets.
func Presets() []string {
	return slices.Sorted(maps.Keys(presets))
}

// findColumn returns the first header containing one of the keywords, in
// keyword order, ignoring case.
func findColumn(header []string, keywords ...string) string {
	for _, k := range keywords {
		for _, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), k) {
				return h
			}
		}
		for _, h := range header {
			if strings.Contains(strings.ToLower(h), k) {
				return h
			}
		}
	}
	return ""
}

// DetectFormat guesses a statement format from a CSV header, for banks
// without a preset.
func DetectFormat(header []string, currency string) Format {
	f := Format{
		Name:          "detected",
		Date:          findColumn(header, "date", "txn_date", "value_date"),
		DateLayouts:   auLayouts,
		Description:   findColumn(header, "description", "details", "narrative", "memo", "particulars"),
		Reference:     findColumn(header, "reference", "transaction id"),
		FixedCurrency: currency,
	}
	debit := findColumn(header, "debit", "withdrawal", "money out")
	credit := findColumn(header, "credit", "deposit", "money in")
	if debit != "" && credit != "" {
		f.Debit, f.Credit = debit, credit
	} else {
		f.Amount = findColumn(header, "amount", "transaction amount", "value")
	}
	if c := findColumn(header, "currency"); c != "" {
		f.Currency = c
	}
	return f
}

// lookup returns the raw value of column in row, and whether it is present
// and not empty.
func lookup(row Row, column string) (string, bool) {
	if column == "" {
		return "", false
	}
	var v any
	var ok bool
	if strings.HasPrefix(column, "$") {
		res, err := jsonpath.Get(column, map[string]any(row))
		v, ok = res, err == nil
	} else if v, ok = row[column]; !ok {
		want := strings.ToLower(strings.TrimSpace(column))
		for k, value := range row {
			if strings.ToLower(strings.TrimSpace(k)) == want {
				v, ok = value, true
				break
			}
		}
	}
	if !ok || v == nil {
		return "", false
	}
	s := stringify(v)
	return s, s != ""
}

// stringify converts a raw value to its text form.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		// jsonpath wildcards return lists, a single element is a value.
		if len(x) == 1 {
			return stringify(x[0])
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// TradeFormat describes how to read a trade ledger row.
type TradeFormat struct {
	Name               string   `yaml:"name"`
	Date               string   `yaml:"date"`
	DateLayouts        []string `yaml:"date_layouts"`
	Side               string   `yaml:"side"`
	Asset              string   `yaml:"asset"`
	Quantity           string   `yaml:"quantity"`
	Price              string   `yaml:"price"` // unit price, in the trade currency.
	Fee                string   `yaml:"fee"`   // optional, in the trade currency.
	Currency           string   `yaml:"currency"`
	FixedCurrency      string   `yaml:"fixed_currency"`
	FXRate             string   `yaml:"fx_rate"` // optional, value of one unit of trade currency in the base currency.
	DiscountEligible   string   `yaml:"discount_eligible"`
	DecimalSeparator   string   `yaml:"decimal_separator"`
	ThousandsSeparator string   `yaml:"thousands_separator"`
}

// Validate checks that the format can produce a trade.
func (f TradeFormat) Validate() error {
	var errs []error
	for _, c := range []struct{ name, column string }{
		{"date", f.Date}, {"side", f.Side}, {"asset", f.Asset}, {"quantity", f.Quantity}, {"price", f.Price},
	} {
		if c.column == "" {
			errs = append(errs, fmt.Errorf("%s column is missing", c.name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid trade format %q: %w", f.Name, err)
	}
	return nil
}

// DetectTradeFormat guesses a trade format from a CSV header using the
// usual column names of broker and exchange exports.
func DetectTradeFormat(header []string) TradeFormat {
	return TradeFormat{
		Name:             "detected",
		Date:             findColumn(header, "date", "timestamp", "trade_date", "trade date", "settlement_date"),
		DateLayouts:      append([]string{"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00"}, auLayouts...),
		Side:             findColumn(header, "side", "buy/sell", "action", "type"),
		Asset:            findColumn(header, "symbol", "asset", "pair", "instrument"),
		Quantity:         findColumn(header, "quantity", "qty", "volume", "amount"),
		Price:            findColumn(header, "price", "unit_price", "rate"),
		Fee:              findColumn(header, "fee", "commission", "charges"),
		Currency:         findColumn(header, "currency"),
		FXRate:           findColumn(header, "fx_rate", "fx rate", "exchange rate"),
		DiscountEligible: findColumn(header, "discount_eligible"),
	}
}
