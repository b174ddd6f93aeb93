package reckon

import "github.com/etnz/reckon/date"

// DisposalEvent is the resolution of a disposal against the open lots.
//
// The portion quantities add up to Quantity and the portion proceeds add up
// to Proceeds, allocated pro-rata by quantity.
type DisposalEvent struct {
	Asset    string
	Disposed date.Date
	Quantity Quantity
	Proceeds Money // Proceeds are net of disposal fees.
	Portions []Portion
}

// Portion is the part of a disposal matched against one lot.
type Portion struct {
	LotRef      string
	Acquired    date.Date
	Quantity    Quantity
	CostBase    Money
	Proceeds    Money
	HoldingDays int
}

// Gain returns the gain (or loss when negative) realized on the portion.
func (p Portion) Gain() Money { return p.Proceeds.Sub(p.CostBase) }

// CostBase returns the total cost base consumed by the disposal.
func (e DisposalEvent) CostBase() Money {
	total := M(0, e.Proceeds.Currency())
	for _, p := range e.Portions {
		total = total.Add(p.CostBase)
	}
	return total
}

// MarshalJSON implements the json.Marshaler interface for DisposalEvent.
func (e DisposalEvent) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("asset", e.Asset)
	w.Append("disposed", e.Disposed)
	w.Append("quantity", e.Quantity)
	w.Append("proceeds", e.Proceeds)
	w.Append("portions", e.Portions)
	return w.MarshalJSON()
}

// MarshalJSON implements the json.Marshaler interface for Portion.
func (p Portion) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("lot", p.LotRef)
	w.Append("acquired", p.Acquired)
	w.Append("quantity", p.Quantity)
	w.Append("costBase", p.CostBase)
	w.Append("proceeds", p.Proceeds)
	w.Append("holdingDays", p.HoldingDays)
	return w.MarshalJSON()
}
