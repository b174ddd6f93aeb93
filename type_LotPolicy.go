package reckon

import (
	"fmt"
	"strings"
)

// LotOrder decides which open lot a disposal consumes first. Less reports
// whether lot a must be consumed before lot b.
type LotOrder interface {
	Less(a, b Lot) bool
}

// LotPolicy enumerates the built-in lot orders.
type LotPolicy int

const (
	// FIFO (First-In, First-Out) consumes the oldest lots first.
	FIFO LotPolicy = iota
	// LIFO (Last-In, First-Out) consumes the newest lots first.
	LIFO
	// HighestCost consumes the lots with the highest unit cost first, oldest first on ties.
	HighestCost
)

func (m LotPolicy) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case HighestCost:
		return "highest-cost"
	default:
		return "unknown"
	}
}

// ParseLotPolicy parses a string into a LotPolicy.
func ParseLotPolicy(s string) (LotPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	case "highest-cost", "hifo":
		return HighestCost, nil
	default:
		return 0, fmt.Errorf("unknown lot policy: %q", s)
	}
}

// Less implements LotOrder.
func (m LotPolicy) Less(a, b Lot) bool {
	switch m {
	case LIFO:
		return b.acquiredBefore(a)
	case HighestCost:
		ua, ub := a.UnitCost(), b.UnitCost()
		if !ua.Equal(ub) {
			return ua.GreaterThan(ub)
		}
		return a.acquiredBefore(b)
	default:
		return a.acquiredBefore(b)
	}
}
