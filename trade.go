package reckon

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/reckon/date"
	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide parses the usual spellings of a trade direction.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "bought", "purchase":
		return Buy, nil
	case "sell", "s", "sold", "sale":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown trade side %q", s)
	}
}

// Trade is the canonical shape of a trade ledger line.
type Trade struct {
	Source   string // Source identifies the ledger the trade comes from.
	Seq      int    // Seq is the position of the row in its source.
	Date     date.Date
	Side     Side
	Asset    string
	Quantity Quantity
	Price    Money           // Price is the unit price, in the trade currency.
	Fee      Money           // Fee is in the trade currency.
	FXRate   decimal.Decimal // FXRate is the value of one unit of trade currency in the base currency.

	// Amount is in the base currency: the cost including fees for a buy, the
	// proceeds net of fees for a sell.
	Amount           Money
	DiscountEligible bool // DiscountEligible is false for assets excluded from the discount.
	Raw              Row
}

// NewBuy creates a buy trade for a total cost in the base currency, fees included.
func NewBuy(on date.Date, asset string, quantity Quantity, cost Money) Trade {
	return Trade{Date: on, Side: Buy, Asset: asset, Quantity: quantity, Amount: cost, Price: cost.Div(quantity), FXRate: decimal.NewFromInt(1), DiscountEligible: true}
}

// NewSell creates a sell trade for total proceeds in the base currency, net of fees.
func NewSell(on date.Date, asset string, quantity Quantity, proceeds Money) Trade {
	return Trade{Date: on, Side: Sell, Asset: asset, Quantity: quantity, Amount: proceeds, Price: proceeds.Div(quantity), FXRate: decimal.NewFromInt(1), DiscountEligible: true}
}

// MarshalJSON implements the json.Marshaler interface for Trade.
func (t Trade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("date", t.Date)
	w.Append("side", t.Side)
	w.Append("asset", t.Asset)
	w.Append("quantity", t.Quantity)
	w.EmbedFrom(t.Amount.exact())
	w.AppendIf(!t.DiscountEligible, "discountEligible", false)
	return w.MarshalJSON()
}

// NormalizeTrade converts a raw trade row into a Trade valued in the base
// currency. A trade in another currency needs an FX rate.
func NormalizeTrade(source string, seq int, row Row, f TradeFormat, base string) (Trade, error) {
	malformed := func(field, value string, err error) (Trade, error) {
		return Trade{}, &MalformedRowError{Source: source, Seq: seq, Field: field, Value: value, Err: err}
	}
	t := Trade{Source: source, Seq: seq, Raw: row, DiscountEligible: true}

	rawDate, ok := lookup(row, f.Date)
	if !ok {
		return malformed(f.Date, "", errors.New("date is missing"))
	}
	on, err := date.ParseIn(rawDate, f.DateLayouts...)
	if err != nil {
		return malformed(f.Date, rawDate, err)
	}
	t.Date = date.Of(on)

	rawSide, _ := lookup(row, f.Side)
	if t.Side, err = ParseSide(rawSide); err != nil {
		return malformed(f.Side, rawSide, err)
	}

	if t.Asset, ok = lookup(row, f.Asset); !ok {
		return malformed(f.Asset, "", errors.New("asset is missing"))
	}

	number := func(column string, required bool) (decimal.Decimal, error) {
		raw, ok := lookup(row, column)
		if !ok {
			if required {
				return decimal.Zero, &MalformedRowError{Source: source, Seq: seq, Field: column, Err: errors.New("value is missing")}
			}
			return decimal.Zero, nil
		}
		d, err := parseAmount(raw, f.DecimalSeparator, f.ThousandsSeparator)
		if err != nil {
			return decimal.Zero, &MalformedRowError{Source: source, Seq: seq, Field: column, Value: raw, Err: err}
		}
		return d, nil
	}

	qty, err := number(f.Quantity, true)
	if err != nil {
		return Trade{}, err
	}
	if !qty.IsPositive() {
		// some exchanges sign the quantity with the side.
		qty = qty.Abs()
	}
	if qty.IsZero() {
		return malformed(f.Quantity, "0", errors.New("quantity must be positive"))
	}
	price, err := number(f.Price, true)
	if err != nil {
		return Trade{}, err
	}
	if price.IsNegative() {
		return malformed(f.Price, price.String(), errors.New("price must not be negative"))
	}
	fee, err := number(f.Fee, false)
	if err != nil {
		return Trade{}, err
	}
	fee = fee.Abs()

	cur, err := currencyOf(row, f.Currency, f.FixedCurrency)
	if err != nil {
		if f.Currency != "" || f.FixedCurrency != "" {
			return malformed(f.Currency, cur, err)
		}
		cur = base
	}

	fx := decimal.NewFromInt(1)
	if rawFX, ok := lookup(row, f.FXRate); ok {
		if fx, err = parseAmount(rawFX, f.DecimalSeparator, f.ThousandsSeparator); err != nil {
			return malformed(f.FXRate, rawFX, err)
		}
		if !fx.IsPositive() {
			return malformed(f.FXRate, rawFX, errors.New("fx rate must be positive"))
		}
	} else if cur != base {
		return malformed(f.FXRate, "", fmt.Errorf("fx rate from %s to %s is missing", cur, base))
	}

	if raw, ok := lookup(row, f.DiscountEligible); ok {
		if t.DiscountEligible, err = parseBool(raw); err != nil {
			return malformed(f.DiscountEligible, raw, err)
		}
	}

	t.Quantity = Q(qty)
	t.Price = M(price, cur)
	t.Fee = M(fee, cur)
	t.FXRate = fx

	gross := price.Mul(qty)
	switch t.Side {
	case Buy:
		t.Amount = M(gross.Add(fee).Mul(fx), base)
	case Sell:
		t.Amount = M(gross.Sub(fee).Mul(fx), base)
	}
	return t, nil
}

// NormalizeTrades normalizes all rows of a trade ledger, with the same
// partial failure semantics as NormalizeAll.
func NormalizeTrades(source string, rows []Row, f TradeFormat, base string) (trades []Trade, errs []error) {
	if err := f.Validate(); err != nil {
		return nil, []error{err}
	}
	if err := ValidateCurrency(base); err != nil {
		return nil, []error{fmt.Errorf("invalid base currency: %w", err)}
	}
	for i, row := range rows {
		t, err := NormalizeTrade(source, i, row, f, base)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		trades = append(trades, t)
	}
	return trades, errs
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(s)
}
