package reckon

import (
	"fmt"
	"maps"
	"slices"

	"github.com/etnz/reckon/date"
	"github.com/shopspring/decimal"
)

// GainLossRecord is the gain or loss realized on one lot portion of a
// disposal.
type GainLossRecord struct {
	Asset            string
	LotRef           string
	Acquired         date.Date
	Disposed         date.Date
	Quantity         Quantity
	Proceeds         Money
	CostBase         Money
	Gain             Money // Gain is negative for a loss.
	HoldingDays      int
	DiscountEligible bool
	TaxYear          int
}

// IsLoss reports whether the record is a capital loss.
func (r GainLossRecord) IsLoss() bool { return r.Gain.IsNegative() }

// MarshalJSON implements the json.Marshaler interface for GainLossRecord.
func (r GainLossRecord) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("asset", r.Asset)
	w.Append("lot", r.LotRef)
	w.Append("acquired", r.Acquired)
	w.Append("disposed", r.Disposed)
	w.Append("quantity", r.Quantity)
	w.Append("proceeds", r.Proceeds)
	w.Append("costBase", r.CostBase)
	w.Append("gain", r.Gain)
	w.Append("holdingDays", r.HoldingDays)
	w.Append("discountEligible", r.DiscountEligible)
	w.Append("taxYear", r.TaxYear)
	return w.MarshalJSON()
}

// TaxYearSummary is the capital gains position of one tax year.
//
// GrossLosses and LossesBroughtForward/LossesCarriedForward are magnitudes.
type TaxYearSummary struct {
	TaxYear              int // TaxYear is the calendar year in which the tax year ends.
	Range                date.Range
	GrossGains           Money
	GrossLosses          Money
	DiscountableGains    Money // gains eligible for the discount, before offset.
	NonDiscountableGains Money
	NetGain              Money // NetGain is gains minus losses of the year.
	DiscountedNetGain    Money
	LossesBroughtForward Money
	Taxable              Money
	LossesCarriedForward Money
	EstimatedTax         Money // EstimatedTax is zero without a marginal tax rate.
	Records              []GainLossRecord
}

// MarshalJSON implements the json.Marshaler interface for TaxYearSummary.
func (s TaxYearSummary) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("taxYear", s.TaxYear)
	w.Append("from", s.Range.From)
	w.Append("to", s.Range.To)
	w.Append("grossGains", s.GrossGains)
	w.Append("grossLosses", s.GrossLosses)
	w.Append("discountableGains", s.DiscountableGains)
	w.Append("nonDiscountableGains", s.NonDiscountableGains)
	w.Append("netGain", s.NetGain)
	w.Append("discountedNetGain", s.DiscountedNetGain)
	w.Append("lossesBroughtForward", s.LossesBroughtForward)
	w.Append("taxable", s.Taxable)
	w.Append("lossesCarriedForward", s.LossesCarriedForward)
	w.AppendIf(!s.EstimatedTax.IsZero(), "estimatedTax", s.EstimatedTax)
	w.Append("records", len(s.Records))
	return w.MarshalJSON()
}

// GainsReport is the outcome of a capital gains computation.
type GainsReport struct {
	Rules     RuleSet
	Summaries []TaxYearSummary // Summaries are in ascending tax year order.
	Records   []GainLossRecord
	Disposals []DisposalEvent
	Errors    []error // Errors are the trades that could not be processed.
}

// MarshalJSON implements the json.Marshaler interface for GainsReport.
func (r GainsReport) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("rules", r.Rules)
	w.Append("summaries", r.Summaries)
	w.Append("records", r.Records)
	if len(r.Errors) > 0 {
		msgs := make([]string, 0, len(r.Errors))
		for _, err := range r.Errors {
			msgs = append(msgs, err.Error())
		}
		w.Append("errors", msgs)
	}
	return w.MarshalJSON()
}

// ComputeGains computes the capital gains of a list of trades under a rule
// set.
//
// The rule set is validated first, any problem is returned as an error
// before processing. Trade level problems (a disposal without enough open
// lots, an amount in the wrong currency) are collected in the report and the
// other trades are processed normally.
func ComputeGains(trades []Trade, rules RuleSet) (*GainsReport, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	report := &GainsReport{Rules: rules}

	sorted := slices.Clone(trades)
	slices.SortStableFunc(sorted, func(a, b Trade) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case b.Date.Before(a.Date):
			return 1
		}
		return 0
	})

	tracker := NewLotTracker(*rules.LotPolicy)
	taxYear := rules.TaxYear()
	for _, t := range sorted {
		if c := t.Amount.Currency(); c != rules.BaseCurrency {
			report.Errors = append(report.Errors, &MalformedRowError{Source: t.Source, Seq: t.Seq, Field: "currency", Value: c,
				Err: fmt.Errorf("amount must be in %s", rules.BaseCurrency)})
			continue
		}
		switch t.Side {
		case Buy:
			if err := tracker.RecordPurchase(t.Asset, t.Quantity, t.Amount, t.Date); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("%s row %d: %w", t.Source, t.Seq, err))
			}
		case Sell:
			event, err := tracker.RecordDisposal(t.Asset, t.Quantity, t.Amount, t.Date)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("%s row %d: %w", t.Source, t.Seq, err))
				continue
			}
			report.Disposals = append(report.Disposals, event)
			for _, p := range event.Portions {
				report.Records = append(report.Records, GainLossRecord{
					Asset:            event.Asset,
					LotRef:           p.LotRef,
					Acquired:         p.Acquired,
					Disposed:         event.Disposed,
					Quantity:         p.Quantity,
					Proceeds:         p.Proceeds,
					CostBase:         p.CostBase,
					Gain:             p.Gain(),
					HoldingDays:      p.HoldingDays,
					DiscountEligible: t.DiscountEligible && rules.eligible(p.HoldingDays),
					TaxYear:          taxYear.Of(event.Disposed),
				})
			}
		default:
			report.Errors = append(report.Errors, &MalformedRowError{Source: t.Source, Seq: t.Seq, Field: "side", Value: string(t.Side),
				Err: fmt.Errorf("unknown trade side")})
		}
	}

	report.Summaries = foldTaxYears(report.Records, rules)
	return report, nil
}

// foldTaxYears summarizes records year by year, in ascending order, each year
// starting from the losses carried forward by the previous one. Years
// without records are emitted when a loss is carried through them.
func foldTaxYears(records []GainLossRecord, rules RuleSet) []TaxYearSummary {
	byYear := make(map[int][]GainLossRecord)
	for _, r := range records {
		byYear[r.TaxYear] = append(byYear[r.TaxYear], r)
	}
	if len(byYear) == 0 {
		return nil
	}
	years := slices.Sorted(maps.Keys(byYear))

	var summaries []TaxYearSummary
	carried := M(0, rules.BaseCurrency)
	for year := years[0]; year <= years[len(years)-1]; year++ {
		recs, ok := byYear[year]
		if !ok && carried.IsZero() {
			continue
		}
		s := summarizeTaxYear(year, recs, carried, rules)
		summaries = append(summaries, s)
		carried = s.LossesCarriedForward
	}
	return summaries
}

// summarizeTaxYear computes one tax year: gross gains and losses, same year
// offset, discount, prior losses, taxable amount.
func summarizeTaxYear(year int, records []GainLossRecord, broughtForward Money, rules RuleSet) TaxYearSummary {
	zero := M(0, rules.BaseCurrency)
	s := TaxYearSummary{
		TaxYear:              year,
		Range:                rules.TaxYear().Range(year),
		GrossGains:           zero,
		GrossLosses:          zero,
		DiscountableGains:    zero,
		NonDiscountableGains: zero,
		LossesBroughtForward: broughtForward,
		EstimatedTax:         zero,
		Records:              records,
	}
	for _, r := range records {
		switch {
		case r.IsLoss():
			s.GrossLosses = s.GrossLosses.Add(r.Gain.Neg())
		case r.DiscountEligible:
			s.DiscountableGains = s.DiscountableGains.Add(r.Gain)
		default:
			s.NonDiscountableGains = s.NonDiscountableGains.Add(r.Gain)
		}
	}
	s.GrossGains = s.DiscountableGains.Add(s.NonDiscountableGains)

	// Same year losses go against non discountable gains first.
	losses := s.GrossLosses
	nonDiscountable := s.NonDiscountableGains.Sub(MinM(losses, s.NonDiscountableGains))
	losses = losses.Sub(s.NonDiscountableGains.Sub(nonDiscountable))
	discountable := s.DiscountableGains.Sub(MinM(losses, s.DiscountableGains))
	losses = losses.Sub(s.DiscountableGains.Sub(discountable))

	s.NetGain = nonDiscountable.Add(discountable).Sub(losses)

	kept := decimal.NewFromInt(1).Sub(*rules.DiscountRate)
	s.DiscountedNetGain = nonDiscountable.Add(discountable.Scale(kept)).Sub(losses)

	s.Taxable = MaxM(zero, s.DiscountedNetGain.Sub(broughtForward))
	s.LossesCarriedForward = MaxM(zero, broughtForward.Add(s.GrossLosses).Sub(s.GrossGains))
	if rules.MarginalTaxRate != nil {
		s.EstimatedTax = s.Taxable.Scale(*rules.MarginalTaxRate)
	}
	return s
}
