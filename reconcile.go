package reckon

import (
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// MatchConfig holds the parameters of the transfer matching.
type MatchConfig struct {
	Window          int             // Window is the maximum distance in days between the two sides of a transfer.
	AmountTolerance decimal.Decimal // AmountTolerance is the maximum magnitude difference, for transfer fees.
	HighThreshold   decimal.Decimal // score from which a pair is matched.
	LowThreshold    decimal.Decimal // score from which a pair is doubtful.

	AmountWeight      decimal.Decimal
	ProximityWeight   decimal.Decimal
	DescriptionWeight decimal.Decimal

	// Workers is the number of goroutines scoring candidates. Zero or one
	// scores sequentially. The outcome does not depend on it.
	Workers int
}

// DefaultMatchConfig returns a ±3 days window, exact amounts, matched from
// 0.7 and doubtful from 0.4, amount weighing the most.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Window:            3,
		AmountTolerance:   decimal.Zero,
		HighThreshold:     decimal.RequireFromString("0.7"),
		LowThreshold:      decimal.RequireFromString("0.4"),
		AmountWeight:      decimal.RequireFromString("0.5"),
		ProximityWeight:   decimal.RequireFromString("0.3"),
		DescriptionWeight: decimal.RequireFromString("0.2"),
	}
}

// Validate reports every out of range parameter as an
// *UnsupportedRuleConfigurationError.
func (c MatchConfig) Validate() error {
	var errs []error
	one := decimal.NewFromInt(1)
	if c.Window < 0 {
		errs = append(errs, invalid("window", "must not be negative, got %d", c.Window))
	}
	if c.AmountTolerance.IsNegative() {
		errs = append(errs, invalid("amount_tolerance", "must not be negative, got %v", c.AmountTolerance))
	}
	if c.HighThreshold.IsNegative() || c.HighThreshold.GreaterThan(one) {
		errs = append(errs, invalid("high_threshold", "must be in [0,1], got %v", c.HighThreshold))
	}
	if c.LowThreshold.IsNegative() || c.LowThreshold.GreaterThan(one) {
		errs = append(errs, invalid("low_threshold", "must be in [0,1], got %v", c.LowThreshold))
	}
	if c.LowThreshold.GreaterThan(c.HighThreshold) {
		errs = append(errs, invalid("low_threshold", "must not exceed high_threshold %v, got %v", c.HighThreshold, c.LowThreshold))
	}
	weights := []decimal.Decimal{c.AmountWeight, c.ProximityWeight, c.DescriptionWeight}
	if slices.ContainsFunc(weights, decimal.Decimal.IsNegative) {
		errs = append(errs, invalid("weights", "must not be negative"))
	} else if decimal.Sum(weights[0], weights[1:]...).IsZero() {
		errs = append(errs, invalid("weights", "must not be all zero"))
	}
	if c.Workers < 0 {
		errs = append(errs, invalid("workers", "must not be negative, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

// MatchStatus is the state of a transfer pair.
type MatchStatus int

const (
	Matched  MatchStatus = iota // Matched pairs are internal transfers.
	Doubtful                    // Doubtful pairs wait for a confirmation.
	Rejected                    // Rejected pairs were doubtful and refused.
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "matched"
	case Doubtful:
		return "doubtful"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// TransferPair is a debit and a credit, in two different accounts, believed
// to be the two sides of the same internal transfer.
type TransferPair struct {
	ID         string
	Debit      Transaction
	Credit     Transaction
	Confidence decimal.Decimal // Confidence is the matching score in [0,1].
	Status     MatchStatus
	Fee        Money // Fee is the magnitude difference between both sides.
}

// pairNamespace seeds the pair ids, so that the same two transactions always
// get the same id.
var pairNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/etnz/reckon/transfer"))

func newPair(a, b Transaction, confidence decimal.Decimal, status MatchStatus) TransferPair {
	debit, credit := a, b
	if credit.IsDebit() {
		debit, credit = b, a
	}
	return TransferPair{
		ID:         uuid.NewSHA1(pairNamespace, []byte(debit.ID()+"|"+credit.ID())).String(),
		Debit:      debit,
		Credit:     credit,
		Confidence: confidence,
		Status:     status,
		Fee:        debit.Amount.Abs().Sub(credit.Amount.Abs()).Abs(),
	}
}

// Days returns the distance in days between both sides.
func (p TransferPair) Days() int {
	d := p.Credit.Date().Sub(p.Debit.Date())
	if d < 0 {
		return -d
	}
	return d
}

// MarshalJSON implements the json.Marshaler interface for TransferPair.
func (p TransferPair) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", p.ID)
	w.Append("status", p.Status.String())
	w.Append("confidence", p.Confidence.Round(4))
	w.Append("debit", p.Debit)
	w.Append("credit", p.Credit)
	w.AppendIf(!p.Fee.IsZero(), "fee", p.Fee)
	return w.MarshalJSON()
}

// Class is where a transaction ended after reconciliation.
type Class string

const (
	ClassUnknown  Class = ""
	ClassMatched  Class = "transfer"          // side of a matched pair.
	ClassDoubtful Class = "doubtful transfer" // side of a doubtful pair.
	ClassIncoming Class = "external incoming" // external credit.
	ClassOutgoing Class = "external outgoing" // external debit.
)

// ReconciliationResult partitions the transactions of all accounts: every
// transaction is in exactly one of a matched pair, a doubtful pair or
// External. Rejected pairs are history, their transactions are External.
type ReconciliationResult struct {
	Config   MatchConfig
	Matched  []TransferPair
	Doubtful []TransferPair
	Rejected []TransferPair
	External []Transaction // External is sorted in timestamp order.
}

// ExternalIncoming returns the external credits.
func (r *ReconciliationResult) ExternalIncoming() []Transaction {
	return slices.DeleteFunc(slices.Clone(r.External), func(t Transaction) bool { return !t.IsCredit() })
}

// ExternalOutgoing returns the external debits, zero amounts included.
func (r *ReconciliationResult) ExternalOutgoing() []Transaction {
	return slices.DeleteFunc(slices.Clone(r.External), Transaction.IsCredit)
}

// Pair returns the matched, doubtful or rejected pair with that id.
func (r *ReconciliationResult) Pair(id string) (TransferPair, bool) {
	for _, pairs := range [][]TransferPair{r.Matched, r.Doubtful, r.Rejected} {
		if i := slices.IndexFunc(pairs, func(p TransferPair) bool { return p.ID == id }); i >= 0 {
			return pairs[i], true
		}
	}
	return TransferPair{}, false
}

// Classify returns the class of a transaction, ClassUnknown if it was not
// part of the reconciliation.
func (r *ReconciliationResult) Classify(t Transaction) Class {
	id := t.ID()
	in := func(pairs []TransferPair) bool {
		return slices.ContainsFunc(pairs, func(p TransferPair) bool { return p.Debit.ID() == id || p.Credit.ID() == id })
	}
	switch {
	case in(r.Matched):
		return ClassMatched
	case in(r.Doubtful):
		return ClassDoubtful
	}
	i := slices.IndexFunc(r.External, func(e Transaction) bool { return e.ID() == id })
	switch {
	case i < 0:
		return ClassUnknown
	case r.External[i].IsCredit():
		return ClassIncoming
	default:
		return ClassOutgoing
	}
}

// MarshalJSON implements the json.Marshaler interface for ReconciliationResult.
func (r ReconciliationResult) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("matched", nonNil(r.Matched))
	w.Append("doubtful", nonNil(r.Doubtful))
	w.Optional("rejected", r.Rejected)
	w.Append("external", nonNil(r.External))
	return w.MarshalJSON()
}

// nonNil returns s or an empty slice, so that it marshals as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// bucketKey groups transactions of the same currency whose magnitudes fall
// in the same interval of the tolerance width.
type bucketKey struct {
	currency string
	k        int64
}

// candidate is a possible counterpart of a transaction, by index.
type candidate struct {
	j     int
	score decimal.Decimal
}

// Reconcile finds the internal transfers between accounts.
//
// Each element of accounts holds the transactions of one account. The
// transactions are walked in timestamp order, each one takes its best
// scoring counterpart that is not yet taken: matched from the high
// threshold, doubtful from the low threshold. Everything else is external.
// A transfer split across several counter transactions is not recognized,
// its parts stay external or doubtful.
//
// Reconcile only fails on an invalid config.
func Reconcile(accounts [][]Transaction, cfg MatchConfig) (*ReconciliationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var txs []Transaction
	for _, account := range accounts {
		txs = append(txs, account...)
	}
	slices.SortStableFunc(txs, compareTransactions)

	// Buckets are at least one unit wide, and at least the tolerance, so a
	// candidate is always in the same or an adjacent bucket.
	width := decimal.Max(cfg.AmountTolerance, decimal.NewFromInt(1))
	keyOf := func(t Transaction) bucketKey {
		return bucketKey{t.Currency(), t.Amount.Decimal().Abs().Div(width).Floor().IntPart()}
	}
	index := make(map[bucketKey][]int)
	for i, t := range txs {
		if t.Amount.IsZero() {
			continue
		}
		k := keyOf(t)
		index[k] = append(index[k], i)
	}

	candidatesOf := func(i int) []candidate {
		t := txs[i]
		if t.Amount.IsZero() {
			return nil
		}
		var res []candidate
		k := keyOf(t)
		for _, key := range []bucketKey{{k.currency, k.k - 1}, k, {k.currency, k.k + 1}} {
			for _, j := range index[key] {
				o := txs[j]
				if o.Account == t.Account || o.IsDebit() == t.IsDebit() {
					continue
				}
				diff := t.Amount.Decimal().Abs().Sub(o.Amount.Decimal().Abs()).Abs()
				if diff.GreaterThan(cfg.AmountTolerance) {
					continue
				}
				days := t.Date().Sub(o.Date())
				if days < 0 {
					days = -days
				}
				if days > cfg.Window {
					continue
				}
				res = append(res, candidate{j: j, score: cfg.score(t, o, diff, days)})
			}
		}
		// best score first, then earliest.
		slices.SortFunc(res, func(a, b candidate) int {
			if c := b.score.Cmp(a.score); c != 0 {
				return c
			}
			return a.j - b.j
		})
		return res
	}

	candidates := make([][]candidate, len(txs))
	if cfg.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(cfg.Workers)
		for i := range txs {
			g.Go(func() error {
				candidates[i] = candidatesOf(i)
				return nil
			})
		}
		_ = g.Wait() // candidatesOf never fails
	} else {
		for i := range txs {
			candidates[i] = candidatesOf(i)
		}
	}

	result := &ReconciliationResult{Config: cfg}
	used := make([]bool, len(txs))
	for i, t := range txs {
		if used[i] {
			continue
		}
		for _, c := range candidates[i] {
			if used[c.j] {
				continue
			}
			switch {
			case c.score.GreaterThanOrEqual(cfg.HighThreshold):
				result.Matched = append(result.Matched, newPair(t, txs[c.j], c.score, Matched))
				used[i], used[c.j] = true, true
			case c.score.GreaterThanOrEqual(cfg.LowThreshold):
				result.Doubtful = append(result.Doubtful, newPair(t, txs[c.j], c.score, Doubtful))
				used[i], used[c.j] = true, true
			}
			// candidates are sorted, the first free one is the best.
			break
		}
	}
	for i, t := range txs {
		if !used[i] {
			result.External = append(result.External, t)
		}
	}
	return result, nil
}
