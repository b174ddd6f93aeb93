package reckon

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestComputeGains_Discount(t *testing.T) {
	trades := []Trade{
		NewBuy(day(2023, time.January, 1), "XYZ", Q(10), AUD(100)),
		NewSell(day(2024, time.February, 1), "XYZ", Q(4), AUD(60)),
	}
	report, err := ComputeGains(trades, AustralianRules())
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("ComputeGains() Errors = %v, want none", report.Errors)
	}
	if got, want := len(report.Disposals), 1; got != want {
		t.Fatalf("len(Disposals) = %d, want %d", got, want)
	}
	if got, want := len(report.Records), 1; got != want {
		t.Fatalf("len(Records) = %d, want %d", got, want)
	}
	r := report.Records[0]
	if got, want := r.CostBase, AUD(40); !got.Equal(want) {
		t.Errorf("CostBase = %v, want %v", got, want)
	}
	if got, want := r.Gain, AUD(20); !got.Equal(want) {
		t.Errorf("Gain = %v, want %v", got, want)
	}
	if !r.DiscountEligible {
		t.Errorf("DiscountEligible = false, want true")
	}
	if got, want := r.TaxYear, 2024; got != want {
		t.Errorf("TaxYear = %d, want %d", got, want)
	}

	if got, want := len(report.Summaries), 1; got != want {
		t.Fatalf("len(Summaries) = %d, want %d", got, want)
	}
	s := report.Summaries[0]
	if got, want := s.DiscountedNetGain, AUD(10); !got.Equal(want) {
		t.Errorf("DiscountedNetGain = %v, want %v", got, want)
	}
	if got, want := s.Taxable, AUD(10); !got.Equal(want) {
		t.Errorf("Taxable = %v, want %v", got, want)
	}
	if got, want := s.Range.String(), "2023-07-01..2024-06-30"; got != want {
		t.Errorf("Range = %q, want %q", got, want)
	}
}

func TestComputeGains_SameYearOffset(t *testing.T) {
	trades := []Trade{
		NewBuy(day(2022, time.January, 1), "LONG", Q(1), AUD(100)),
		NewBuy(day(2023, time.July, 1), "SHORT", Q(1), AUD(100)),
		NewBuy(day(2023, time.July, 1), "LOSS", Q(1), AUD(100)),
		NewSell(day(2023, time.July, 10), "LONG", Q(1), AUD(200)),
		NewSell(day(2023, time.August, 1), "SHORT", Q(1), AUD(140)),
		NewSell(day(2023, time.September, 1), "LOSS", Q(1), AUD(50)),
	}
	report, err := ComputeGains(trades, AustralianRules())
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}
	if got, want := len(report.Summaries), 1; got != want {
		t.Fatalf("len(Summaries) = %d, want %d", got, want)
	}
	s := report.Summaries[0]
	tests := []struct {
		name      string
		got, want Money
	}{
		{"GrossGains", s.GrossGains, AUD(140)},
		{"GrossLosses", s.GrossLosses, AUD(50)},
		{"DiscountableGains", s.DiscountableGains, AUD(100)},
		{"NonDiscountableGains", s.NonDiscountableGains, AUD(40)},
		{"NetGain", s.NetGain, AUD(90)},
		// the loss goes against the short term gain first: (100-10)/2
		{"DiscountedNetGain", s.DiscountedNetGain, AUD(45)},
		{"Taxable", s.Taxable, AUD(45)},
		{"LossesCarriedForward", s.LossesCarriedForward, AUD(0)},
	}
	for _, tt := range tests {
		if !tt.got.Equal(tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestComputeGains_LossCarryForward(t *testing.T) {
	trades := []Trade{
		NewBuy(day(2022, time.August, 1), "A", Q(10), AUD(100)),
		NewSell(day(2023, time.March, 1), "A", Q(10), AUD(40)), // loss of 60 in 2023
		NewBuy(day(2024, time.August, 1), "B", Q(1), AUD(100)),
		NewSell(day(2024, time.September, 1), "B", Q(1), AUD(130)), // gain of 30 in 2025
	}
	report, err := ComputeGains(trades, AustralianRules())
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}

	// 2024 has no record but carries the loss through.
	var years []int
	for _, s := range report.Summaries {
		years = append(years, s.TaxYear)
	}
	if len(years) != 3 || years[0] != 2023 || years[1] != 2024 || years[2] != 2025 {
		t.Fatalf("tax years = %v, want [2023 2024 2025]", years)
	}

	zero := AUD(0)
	for i, s := range report.Summaries {
		want := MaxM(zero, s.LossesBroughtForward.Add(s.GrossLosses).Sub(s.GrossGains))
		if !s.LossesCarriedForward.Equal(want) {
			t.Errorf("%d: LossesCarriedForward = %v, want %v", s.TaxYear, s.LossesCarriedForward, want)
		}
		if i > 0 {
			if got, want := s.LossesBroughtForward, report.Summaries[i-1].LossesCarriedForward; !got.Equal(want) {
				t.Errorf("%d: LossesBroughtForward = %v, want %v", s.TaxYear, got, want)
			}
		}
	}

	last := report.Summaries[2]
	if got, want := last.Taxable, AUD(0); !got.Equal(want) {
		t.Errorf("2025 Taxable = %v, want %v", got, want)
	}
	if got, want := last.LossesCarriedForward, AUD(30); !got.Equal(want) {
		t.Errorf("2025 LossesCarriedForward = %v, want %v", got, want)
	}
}

func TestComputeGains_NotDiscountEligible(t *testing.T) {
	sell := NewSell(day(2025, time.March, 1), "XYZ", Q(1), AUD(300))
	sell.DiscountEligible = false
	trades := []Trade{NewBuy(day(2020, time.January, 1), "XYZ", Q(1), AUD(100)), sell}

	report, err := ComputeGains(trades, AustralianRules())
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}
	if report.Records[0].DiscountEligible {
		t.Errorf("DiscountEligible = true, want false")
	}
	if got, want := report.Summaries[0].Taxable, AUD(200); !got.Equal(want) {
		t.Errorf("Taxable = %v, want %v", got, want)
	}
}

func TestComputeGains_ThresholdIsInclusive(t *testing.T) {
	buy := day(2023, time.January, 1)
	trades := []Trade{
		NewBuy(buy, "XYZ", Q(2), AUD(200)),
		NewSell(buy.Add(364), "XYZ", Q(1), AUD(150)),
		NewSell(buy.Add(365), "XYZ", Q(1), AUD(150)),
	}
	report, err := ComputeGains(trades, AustralianRules())
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}
	if got, want := report.Records[0].DiscountEligible, false; got != want {
		t.Errorf("364 days DiscountEligible = %v, want %v", got, want)
	}
	if got, want := report.Records[1].DiscountEligible, true; got != want {
		t.Errorf("365 days DiscountEligible = %v, want %v", got, want)
	}
}

func TestComputeGains_InsufficientInventory(t *testing.T) {
	trades := []Trade{
		NewSell(day(2024, time.January, 1), "NONE", Q(5), AUD(50)),
		NewBuy(day(2024, time.January, 1), "XYZ", Q(1), AUD(10)),
		NewSell(day(2024, time.February, 1), "XYZ", Q(1), AUD(15)),
	}
	report, err := ComputeGains(trades, AustralianRules())
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}
	if got, want := len(report.Errors), 1; got != want {
		t.Fatalf("len(Errors) = %d, want %d", got, want)
	}
	if !errors.Is(report.Errors[0], ErrInsufficientInventory) {
		t.Errorf("Errors[0] = %v, want ErrInsufficientInventory", report.Errors[0])
	}
	// the other asset goes on.
	if got, want := len(report.Disposals), 1; got != want {
		t.Fatalf("len(Disposals) = %d, want %d", got, want)
	}
	if got, want := report.Disposals[0].Asset, "XYZ"; got != want {
		t.Errorf("Disposals[0].Asset = %q, want %q", got, want)
	}
}

func TestComputeGains_WrongCurrency(t *testing.T) {
	trades := []Trade{NewBuy(day(2024, time.January, 1), "XYZ", Q(1), USD(10))}
	report, err := ComputeGains(trades, AustralianRules())
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}
	if got, want := len(report.Errors), 1; got != want {
		t.Fatalf("len(Errors) = %d, want %d", got, want)
	}
	var rowErr *MalformedRowError
	if !errors.As(report.Errors[0], &rowErr) || rowErr.Field != "currency" {
		t.Errorf("Errors[0] = %v, want a currency MalformedRowError", report.Errors[0])
	}
}

func TestComputeGains_MissingRule(t *testing.T) {
	rules := AustralianRules()
	rules.DiscountRate = nil
	rules.LotPolicy = nil

	_, err := ComputeGains(nil, rules)
	if !errors.Is(err, ErrUnsupportedRule) {
		t.Fatalf("ComputeGains() error = %v, want ErrUnsupportedRule", err)
	}
	var ruleErr *UnsupportedRuleConfigurationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("ComputeGains() error = %v, want an UnsupportedRuleConfigurationError", err)
	}
	if got, want := ruleErr.Parameter, "discount_rate"; got != want {
		t.Errorf("Parameter = %q, want %q", got, want)
	}
}

func TestComputeGains_Idempotent(t *testing.T) {
	trades := []Trade{
		NewSell(day(2024, time.March, 1), "A", Q(3), AUD(45)),
		NewBuy(day(2023, time.January, 1), "A", Q(5), AUD(50)),
		NewBuy(day(2023, time.June, 1), "B", Q(2), AUD(80)),
		NewSell(day(2024, time.August, 1), "B", Q(2), AUD(20)),
	}
	rules := AustralianRules()
	rate := dec("0.3")
	rules.MarginalTaxRate = &rate

	first, err := ComputeGains(trades, rules)
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}
	second, err := ComputeGains(trades, rules)
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}
	a, err := json.Marshal(first.Summaries)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	b, _ := json.Marshal(second.Summaries)
	if string(a) != string(b) {
		t.Errorf("ComputeGains() is not idempotent:\n%s\n%s", a, b)
	}
	// the input is not reordered.
	if got, want := trades[0].Side, Sell; got != want {
		t.Errorf("trades[0].Side = %v, want %v", got, want)
	}
	if got, want := first.Summaries[0].EstimatedTax, AUD(2.25); !got.Equal(want) {
		t.Errorf("EstimatedTax = %v, want %v", got, want)
	}
}
