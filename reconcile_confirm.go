package reckon

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownPair = errors.New("unknown transfer pair")
	ErrNotDoubtful = errors.New("transfer pair is not doubtful")
)

// ConfirmPair settles a doubtful pair and returns the new result, r is left
// unchanged. An accepted pair becomes matched. A rejected pair is kept in
// Rejected and both its transactions become external.
func ConfirmPair(r *ReconciliationResult, pairID string, accept bool) (*ReconciliationResult, error) {
	i := slices.IndexFunc(r.Doubtful, func(p TransferPair) bool { return p.ID == pairID })
	if i < 0 {
		if p, ok := r.Pair(pairID); ok {
			return nil, fmt.Errorf("pair %s is %v: %w", pairID, p.Status, ErrNotDoubtful)
		}
		return nil, fmt.Errorf("pair %q: %w", pairID, ErrUnknownPair)
	}
	pair := r.Doubtful[i]

	next := &ReconciliationResult{
		Config:   r.Config,
		Matched:  slices.Clone(r.Matched),
		Doubtful: slices.Delete(slices.Clone(r.Doubtful), i, i+1),
		Rejected: slices.Clone(r.Rejected),
		External: slices.Clone(r.External),
	}

	if !accept {
		pair.Status = Rejected
		next.Rejected = append(next.Rejected, pair)
		next.External = append(next.External, pair.Debit, pair.Credit)
		slices.SortFunc(next.External, compareTransactions)
		return next, nil
	}

	for _, m := range r.Matched {
		for _, id := range []string{pair.Debit.ID(), pair.Credit.ID()} {
			if m.Debit.ID() == id || m.Credit.ID() == id {
				return nil, fmt.Errorf("pair %s: transaction %s is already matched in pair %s", pairID, id, m.ID)
			}
		}
	}
	pair.Status = Matched
	next.Matched = append(next.Matched, pair)
	slices.SortFunc(next.Matched, func(a, b TransferPair) int {
		return compareTransactions(a.first(), b.first())
	})
	return next, nil
}

// first returns the earliest side of the pair.
func (p TransferPair) first() Transaction {
	if p.Credit.before(p.Debit) {
		return p.Credit
	}
	return p.Debit
}
