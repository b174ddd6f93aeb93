package renderer

import (
	"github.com/etnz/reckon"
)

// Reconciliation is the view of a reconciliation result for rendering.
type Reconciliation struct {
	Matched  []Pair     `json:"matched"`
	Doubtful []Pair     `json:"doubtful"`
	Rejected []Pair     `json:"rejected,omitempty"`
	Incoming []Line     `json:"incoming"`
	Outgoing []Line     `json:"outgoing"`
	GST      []GSTTotal `json:"gst,omitempty"`
}

// Pair is a transfer between two accounts.
type Pair struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	Fee        string `json:"fee"`
	Confidence string `json:"confidence"`
	Details    string `json:"details"`
}

// Line is an external transaction.
type Line struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Account     string `json:"account"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	GSTCategory string `json:"gstCategory,omitempty"`
	GST         string `json:"gst,omitempty"`
}

// GSTTotal sums the GST of the external transactions of one currency.
type GSTTotal struct {
	Currency  string `json:"currency"`
	Collected string `json:"collected"`
	Paid      string `json:"paid"`
}

// ExternalCount returns the number of external transactions.
func (r *Reconciliation) ExternalCount() int { return len(r.Incoming) + len(r.Outgoing) }

// NewReconciliation builds the view of a result. gst may be nil, otherwise
// it annotates the external transactions and GST is totalled per currency.
func NewReconciliation(r *reckon.ReconciliationResult, gst []reckon.GSTLine) *Reconciliation {
	v := &Reconciliation{
		Matched:  pairs(r.Matched),
		Doubtful: pairs(r.Doubtful),
		Rejected: pairs(r.Rejected),
	}
	byID := make(map[string]reckon.GSTLine, len(gst))
	for _, l := range gst {
		byID[l.Transaction.ID()] = l
	}
	line := func(t reckon.Transaction) Line {
		l := Line{
			ID:          t.ID(),
			Date:        t.Date().String(),
			Account:     t.Account,
			Description: escape(t.Description),
			Amount:      t.Amount.SignedString(),
		}
		if g, ok := byID[t.ID()]; ok {
			l.GSTCategory, l.GST = g.Category, g.GST.String()
		}
		return l
	}
	for _, t := range r.ExternalIncoming() {
		v.Incoming = append(v.Incoming, line(t))
	}
	for _, t := range r.ExternalOutgoing() {
		v.Outgoing = append(v.Outgoing, line(t))
	}
	if gst != nil {
		v.GST = []GSTTotal{}
		for _, t := range reckon.TotalGST(gst) {
			v.GST = append(v.GST, GSTTotal{Currency: t.Currency, Collected: t.Collected.String(), Paid: t.Paid.String()})
		}
	}
	return v
}

func pairs(ps []reckon.TransferPair) []Pair {
	var res []Pair
	for _, p := range ps {
		res = append(res, Pair{
			ID:         p.ID,
			Date:       p.Debit.Date().String(),
			From:       p.Debit.Account,
			To:         p.Credit.Account,
			Amount:     p.Credit.Amount.String(),
			Fee:        p.Fee.SignedString(),
			Confidence: p.Confidence.StringFixed(2),
			Details:    escape(p.Debit.Description + " / " + p.Credit.Description),
		})
	}
	return res
}
