package renderer

import (
	"strconv"
	"strings"

	"github.com/etnz/reckon"
)

// Gains is the view of a capital gains report for rendering.
type Gains struct {
	Rules  string    `json:"rules"`
	Years  []TaxYear `json:"years"`
	Errors []string  `json:"errors,omitempty"`
}

// TaxYear is the view of a tax year summary.
type TaxYear struct {
	Year           string   `json:"year"`
	Period         string   `json:"period"`
	GrossGains     string   `json:"grossGains"`
	GrossLosses    string   `json:"grossLosses"`
	NetGain        string   `json:"netGain"`
	Discounted     string   `json:"discounted"`
	BroughtForward string   `json:"broughtForward"`
	Taxable        string   `json:"taxable"`
	CarriedForward string   `json:"carriedForward"`
	EstimatedTax   string   `json:"estimatedTax,omitempty"`
	Records        []Record `json:"records,omitempty"`
}

// Record is one lot portion of a disposal.
type Record struct {
	Asset       string `json:"asset"`
	Lot         string `json:"lot"`
	Acquired    string `json:"acquired"`
	Disposed    string `json:"disposed"`
	Quantity    string `json:"quantity"`
	Proceeds    string `json:"proceeds"`
	CostBase    string `json:"costBase"`
	Gain        string `json:"gain"`
	HoldingDays int    `json:"holdingDays"`
	Discount    bool   `json:"discount"`
}

// HasEstimatedTax reports whether any year carries a tax estimate.
func (g *Gains) HasEstimatedTax() bool {
	for _, y := range g.Years {
		if y.EstimatedTax != "" {
			return true
		}
	}
	return false
}

// NewGains builds the view of a gains report.
func NewGains(r *reckon.GainsReport) *Gains {
	g := &Gains{Rules: describeRules(r.Rules)}
	for _, s := range r.Summaries {
		y := TaxYear{
			Year:           strconv.Itoa(s.TaxYear),
			Period:         s.Range.String(),
			GrossGains:     s.GrossGains.String(),
			GrossLosses:    s.GrossLosses.String(),
			NetGain:        s.NetGain.SignedString(),
			Discounted:     s.DiscountedNetGain.SignedString(),
			BroughtForward: s.LossesBroughtForward.String(),
			Taxable:        s.Taxable.String(),
			CarriedForward: s.LossesCarriedForward.String(),
		}
		if r.Rules.MarginalTaxRate != nil {
			y.EstimatedTax = s.EstimatedTax.String()
		}
		for _, rec := range s.Records {
			y.Records = append(y.Records, Record{
				Asset:       rec.Asset,
				Lot:         rec.LotRef,
				Acquired:    rec.Acquired.String(),
				Disposed:    rec.Disposed.String(),
				Quantity:    rec.Quantity.String(),
				Proceeds:    rec.Proceeds.String(),
				CostBase:    rec.CostBase.String(),
				Gain:        rec.Gain.SignedString(),
				HoldingDays: rec.HoldingDays,
				Discount:    rec.DiscountEligible,
			})
		}
		g.Years = append(g.Years, y)
	}
	for _, err := range r.Errors {
		g.Errors = append(g.Errors, escape(err.Error()))
	}
	return g
}

func describeRules(r reckon.RuleSet) string {
	var parts []string
	if r.Name != "" {
		parts = append(parts, r.Name)
	}
	if r.DiscountRate != nil && r.DiscountThresholdDays != nil {
		parts = append(parts, r.DiscountRate.Shift(2).String()+"% discount after "+strconv.Itoa(*r.DiscountThresholdDays)+" days")
	}
	if r.LotPolicy != nil {
		parts = append(parts, r.LotPolicy.String())
	}
	return strings.Join(parts, ", ")
}

// escape protects table cells from pipes and new lines.
func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ", "\r", "").Replace(s)
}
