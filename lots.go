package reckon

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/etnz/reckon/date"
)

// Lot represents a single acquisition of an asset, used for cost basis
// calculations.
type Lot struct {
	Asset            string
	Acquired         date.Date
	Seq              int      // Seq is the acquisition order, it breaks ties between lots of the same day.
	Quantity         Quantity // Quantity is what remains open.
	OriginalQuantity Quantity
	Cost             Money // Cost is the cost base of the remaining quantity, fees included.
	OriginalCost     Money
}

// Ref identifies the lot in disposal reports.
func (l Lot) Ref() string { return fmt.Sprintf("%s/%d", l.Asset, l.Seq) }

// UnitCost returns the cost base of one unit, fees included.
func (l Lot) UnitCost() Money { return l.OriginalCost.Div(l.OriginalQuantity) }

func (l Lot) acquiredBefore(o Lot) bool {
	if l.Acquired != o.Acquired {
		return l.Acquired.Before(o.Acquired)
	}
	return l.Seq < o.Seq
}

// MarshalJSON implements the json.Marshaler interface for Lot.
func (l Lot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("ref", l.Ref())
	w.Append("acquired", l.Acquired)
	w.Append("quantity", l.Quantity)
	w.Append("originalQuantity", l.OriginalQuantity)
	w.Append("unitCost", l.UnitCost().exact())
	w.Append("cost", l.Cost)
	return w.MarshalJSON()
}

// lots is the inventory of one asset, sorted by acquisition.
type lots []*Lot

// open returns the quantity available on a given day.
func (l lots) open(on date.Date) Quantity {
	var total Quantity
	for _, lot := range l {
		if !lot.Acquired.After(on) {
			total = total.Add(lot.Quantity)
		}
	}
	return total
}

// LotTracker maintains the open lots of every asset. It is not safe for
// concurrent use.
type LotTracker struct {
	order     LotOrder
	inventory map[string]lots
	seq       int
}

// NewLotTracker returns an empty tracker consuming lots in the given order.
// A nil order means FIFO.
func NewLotTracker(order LotOrder) *LotTracker {
	if order == nil {
		order = FIFO
	}
	return &LotTracker{order: order, inventory: make(map[string]lots)}
}

// RecordAcquisition opens a new lot of quantity units bought at unitCost
// each (fees included).
func (t *LotTracker) RecordAcquisition(asset string, quantity Quantity, unitCost Money, on date.Date) error {
	return t.RecordPurchase(asset, quantity, unitCost.Mul(quantity), on)
}

// RecordPurchase opens a new lot of quantity units for a total cost (fees
// included). Lots stay sorted by acquisition date, same day lots keep their
// input order.
func (t *LotTracker) RecordPurchase(asset string, quantity Quantity, cost Money, on date.Date) error {
	switch {
	case asset == "":
		return errors.New("asset is missing")
	case !quantity.IsPositive():
		return fmt.Errorf("acquisition of %s: quantity must be positive, got %v", asset, quantity)
	case cost.IsNegative():
		return fmt.Errorf("acquisition of %s: cost must not be negative, got %v", asset, cost)
	}
	t.seq++
	lot := &Lot{
		Asset:            asset,
		Acquired:         on,
		Seq:              t.seq,
		Quantity:         quantity,
		OriginalQuantity: quantity,
		Cost:             cost,
		OriginalCost:     cost,
	}
	inv := append(t.inventory[asset], lot)
	slices.SortStableFunc(inv, func(a, b *Lot) int {
		switch {
		case a.Acquired.Before(b.Acquired):
			return -1
		case b.Acquired.Before(a.Acquired):
			return 1
		}
		return 0
	})
	t.inventory[asset] = inv
	return nil
}

// RecordDisposal consumes quantity units of asset, sold on a given day for
// total proceeds (net of fees), from the open lots in the tracker order.
//
// It fails with an *InsufficientInventoryError, and leaves the inventory
// untouched, when less than quantity units were acquired on or before that
// day and are still open.
func (t *LotTracker) RecordDisposal(asset string, quantity Quantity, proceeds Money, on date.Date) (DisposalEvent, error) {
	if !quantity.IsPositive() {
		return DisposalEvent{}, fmt.Errorf("disposal of %s: quantity must be positive, got %v", asset, quantity)
	}
	inv := t.inventory[asset]
	if available := inv.open(on); available.LessThan(quantity) {
		return DisposalEvent{}, &InsufficientInventoryError{Asset: asset, On: on, Requested: quantity, Available: available}
	}

	candidates := make(lots, 0, len(inv))
	for _, lot := range inv {
		if !lot.Acquired.After(on) {
			candidates = append(candidates, lot)
		}
	}
	slices.SortStableFunc(candidates, func(a, b *Lot) int {
		switch {
		case t.order.Less(*a, *b):
			return -1
		case t.order.Less(*b, *a):
			return 1
		}
		return 0
	})

	event := DisposalEvent{Asset: asset, Disposed: on, Quantity: quantity, Proceeds: proceeds}
	remaining := quantity
	allocated := M(0, proceeds.Currency())
	for _, lot := range candidates {
		if remaining.IsZero() {
			break
		}
		consumed := MinQ(remaining, lot.Quantity)
		cost := lot.Cost
		if consumed.LessThan(lot.Quantity) {
			// Partial consumption of this lot
			cost = lot.Cost.Mul(consumed).Div(lot.Quantity)
		}
		remaining = remaining.Sub(consumed)

		share := proceeds.Mul(consumed).Div(quantity)
		if remaining.IsZero() {
			// the last portion takes the remainder so that portions add up exactly.
			share = proceeds.Sub(allocated)
		}
		allocated = allocated.Add(share)

		event.Portions = append(event.Portions, Portion{
			LotRef:      lot.Ref(),
			Acquired:    lot.Acquired,
			Quantity:    consumed,
			CostBase:    cost,
			Proceeds:    share,
			HoldingDays: on.Sub(lot.Acquired),
		})
		lot.Quantity = lot.Quantity.Sub(consumed)
		lot.Cost = lot.Cost.Sub(cost)
	}

	// Drop exhausted lots.
	t.inventory[asset] = slices.DeleteFunc(inv, func(l *Lot) bool { return l.Quantity.IsZero() })
	if len(t.inventory[asset]) == 0 {
		delete(t.inventory, asset)
	}
	return event, nil
}

// Open returns a copy of the open lots of asset, by acquisition order.
func (t *LotTracker) Open(asset string) []Lot {
	inv := t.inventory[asset]
	res := make([]Lot, 0, len(inv))
	for _, lot := range inv {
		res = append(res, *lot)
	}
	return res
}

// Position returns the total open quantity of asset.
func (t *LotTracker) Position(asset string) Quantity {
	var total Quantity
	for _, lot := range t.inventory[asset] {
		total = total.Add(lot.Quantity)
	}
	return total
}

// Assets returns the assets with open lots, sorted.
func (t *LotTracker) Assets() []string {
	return slices.Sorted(maps.Keys(t.inventory))
}
