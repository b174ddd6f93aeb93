package reckon

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/reckon/date"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// RuleSet holds the parameters of a capital gains jurisdiction.
//
// Required parameters are pointers: a nil one is reported as missing and is
// never replaced by a default. MarginalTaxRate is optional.
type RuleSet struct {
	Name                  string
	DiscountRate          *decimal.Decimal // share of an eligible net gain that is not taxed.
	DiscountThresholdDays *int             // minimum holding period for the discount.
	TaxYearStartMonth     *time.Month
	TaxYearStartDay       *int
	LotPolicy             *LotPolicy
	BaseCurrency          string
	MarginalTaxRate       *decimal.Decimal
}

// AustralianRules returns the Australian CGT rule set: 50% discount after
// 365 days of holding, tax year starting on July 1st, FIFO lots, AUD.
func AustralianRules() RuleSet {
	rate := decimal.RequireFromString("0.5")
	days := 365
	month := time.July
	day := 1
	policy := FIFO
	return RuleSet{
		Name:                  "AU",
		DiscountRate:          &rate,
		DiscountThresholdDays: &days,
		TaxYearStartMonth:     &month,
		TaxYearStartDay:       &day,
		LotPolicy:             &policy,
		BaseCurrency:          "AUD",
	}
}

// Validate checks that every required parameter is present and in range.
// All the problems are reported, each as an *UnsupportedRuleConfigurationError.
func (r RuleSet) Validate() error {
	var errs []error
	one := decimal.NewFromInt(1)
	switch {
	case r.DiscountRate == nil:
		errs = append(errs, missing("discount_rate"))
	case r.DiscountRate.IsNegative() || r.DiscountRate.GreaterThan(one):
		errs = append(errs, invalid("discount_rate", "must be in [0,1], got %v", r.DiscountRate))
	}
	switch {
	case r.DiscountThresholdDays == nil:
		errs = append(errs, missing("discount_threshold_days"))
	case *r.DiscountThresholdDays < 0:
		errs = append(errs, invalid("discount_threshold_days", "must not be negative, got %d", *r.DiscountThresholdDays))
	}
	switch {
	case r.TaxYearStartMonth == nil:
		errs = append(errs, missing("tax_year_start_month"))
	case *r.TaxYearStartMonth < time.January || *r.TaxYearStartMonth > time.December:
		errs = append(errs, invalid("tax_year_start_month", "must be in 1..12, got %d", *r.TaxYearStartMonth))
	}
	switch {
	case r.TaxYearStartDay == nil:
		errs = append(errs, missing("tax_year_start_day"))
	case r.TaxYearStartMonth != nil && !validDayOfMonth(*r.TaxYearStartMonth, *r.TaxYearStartDay):
		errs = append(errs, invalid("tax_year_start_day", "%d is not a day of %v", *r.TaxYearStartDay, *r.TaxYearStartMonth))
	}
	switch {
	case r.LotPolicy == nil:
		errs = append(errs, missing("lot_policy"))
	case *r.LotPolicy < FIFO || *r.LotPolicy > HighestCost:
		errs = append(errs, invalid("lot_policy", "unknown policy %d", *r.LotPolicy))
	}
	if r.BaseCurrency == "" {
		errs = append(errs, missing("base_currency"))
	} else if err := ValidateCurrency(r.BaseCurrency); err != nil {
		errs = append(errs, invalid("base_currency", "%v", err))
	}
	if r.MarginalTaxRate != nil && (r.MarginalTaxRate.IsNegative() || r.MarginalTaxRate.GreaterThan(one)) {
		errs = append(errs, invalid("marginal_tax_rate", "must be in [0,1], got %v", r.MarginalTaxRate))
	}
	return errors.Join(errs...)
}

// validDayOfMonth reports whether day exists in month in every year.
func validDayOfMonth(month time.Month, day int) bool {
	if day < 1 {
		return false
	}
	// 2001 is not a leap year, February 29th is refused.
	return date.New(2001, month, day).Month() == month
}

// TaxYear returns the tax year calendar of the rule set. It must be called
// on a valid rule set.
func (r RuleSet) TaxYear() date.TaxYear {
	return date.TaxYear{Month: *r.TaxYearStartMonth, Day: *r.TaxYearStartDay}
}

// eligible reports whether a holding period qualifies for the discount.
func (r RuleSet) eligible(holdingDays int) bool {
	return holdingDays >= *r.DiscountThresholdDays
}

// yamlDecimal reads a decimal from its YAML scalar text, without going
// through a float.
type yamlDecimal struct{ decimal.Decimal }

func (d *yamlDecimal) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expecting a number", value.Line)
	}
	v, err := decimal.NewFromString(strings.TrimSuffix(value.Value, "%"))
	if err != nil {
		return fmt.Errorf("line %d: invalid number %q: %w", value.Line, value.Value, err)
	}
	if strings.HasSuffix(value.Value, "%") {
		v = v.Shift(-2)
	}
	d.Decimal = v
	return nil
}

// ruleSetFile is the YAML shape of a RuleSet.
//
//	name: AU
//	discount_rate: 0.5
//	discount_threshold_days: 365
//	tax_year_start: 07-01
//	lot_policy: fifo
//	base_currency: AUD
//	marginal_tax_rate: 32.5%
type ruleSetFile struct {
	Name                  string       `yaml:"name"`
	DiscountRate          *yamlDecimal `yaml:"discount_rate"`
	DiscountThresholdDays *int         `yaml:"discount_threshold_days"`
	TaxYearStart          *string      `yaml:"tax_year_start"`
	LotPolicy             *string      `yaml:"lot_policy"`
	BaseCurrency          string       `yaml:"base_currency"`
	MarginalTaxRate       *yamlDecimal `yaml:"marginal_tax_rate"`
}

// LoadRuleSet decodes a RuleSet from YAML. Absent keys stay nil so that
// Validate reports them.
func LoadRuleSet(r io.Reader) (RuleSet, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f ruleSetFile
	if err := dec.Decode(&f); err != nil {
		return RuleSet{}, fmt.Errorf("could not decode rule set: %w", err)
	}

	rules := RuleSet{Name: f.Name, BaseCurrency: strings.ToUpper(strings.TrimSpace(f.BaseCurrency))}
	rules.DiscountThresholdDays = f.DiscountThresholdDays
	if f.DiscountRate != nil {
		rules.DiscountRate = &f.DiscountRate.Decimal
	}
	if f.MarginalTaxRate != nil {
		rules.MarginalTaxRate = &f.MarginalTaxRate.Decimal
	}
	if f.TaxYearStart != nil {
		month, day, err := parseMonthDay(*f.TaxYearStart)
		if err != nil {
			return RuleSet{}, invalid("tax_year_start", "%v", err)
		}
		rules.TaxYearStartMonth, rules.TaxYearStartDay = &month, &day
	}
	if f.LotPolicy != nil {
		policy, err := ParseLotPolicy(*f.LotPolicy)
		if err != nil {
			return RuleSet{}, invalid("lot_policy", "%v", err)
		}
		rules.LotPolicy = &policy
	}
	return rules, nil
}

// parseMonthDay parses "MM-DD".
func parseMonthDay(s string) (time.Month, int, error) {
	m, d, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid month-day %q want format MM-DD", s)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	day, err := strconv.Atoi(d)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid day in %q: %w", s, err)
	}
	return time.Month(month), day, nil
}

// MarshalJSON implements the json.Marshaler interface for RuleSet.
func (r RuleSet) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("name", r.Name)
	w.Optional("discountRate", r.DiscountRate)
	w.Optional("discountThresholdDays", r.DiscountThresholdDays)
	if r.TaxYearStartMonth != nil && r.TaxYearStartDay != nil {
		w.Append("taxYearStart", fmt.Sprintf("%02d-%02d", *r.TaxYearStartMonth, *r.TaxYearStartDay))
	}
	if r.LotPolicy != nil {
		w.Append("lotPolicy", r.LotPolicy.String())
	}
	w.Optional("baseCurrency", r.BaseCurrency)
	w.Optional("marginalTaxRate", r.MarginalTaxRate)
	return w.MarshalJSON()
}
