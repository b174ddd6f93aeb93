package reckon

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// tokens returns the set of lower case words of s.
func tokens(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		set[f] = true
	}
	return set
}

// jaccard returns |a∩b| / |a∪b|, zero when both are empty.
func jaccard(a, b map[string]bool) decimal.Decimal {
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(inter)).Div(decimal.NewFromInt(int64(union)))
}

// mentions reports whether every word of the account name appears in the
// description words.
func mentions(description map[string]bool, account string) bool {
	words := tokens(account)
	if len(words) == 0 {
		return false
	}
	for w := range words {
		if !description[w] {
			return false
		}
	}
	return true
}

// descriptionSimilarity is the token overlap of the two descriptions. A
// description naming the other account counts as a perfect match, "Transfer
// to Savings" is the usual way banks label an internal transfer.
func descriptionSimilarity(a, b Transaction) decimal.Decimal {
	ta, tb := tokens(a.Description), tokens(b.Description)
	if mentions(ta, b.Account) || mentions(tb, a.Account) {
		return decimal.NewFromInt(1)
	}
	return jaccard(ta, tb)
}

// amountSimilarity is 1 for equal magnitudes and decreases linearly to 0 at
// the tolerance.
func amountSimilarity(diff, tolerance decimal.Decimal) decimal.Decimal {
	if diff.IsZero() {
		return decimal.NewFromInt(1)
	}
	if tolerance.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(diff.Div(tolerance))
}

// proximity is 1 on the same day and decreases with the distance in days,
// staying positive inside the window.
func proximity(days, window int) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(int64(window + 1))))
}

// score rates a candidate pair in [0,1]. diff is the magnitude difference
// and days the distance in days, both already checked against the config.
func (c MatchConfig) score(a, b Transaction, diff decimal.Decimal, days int) decimal.Decimal {
	total := c.AmountWeight.Add(c.ProximityWeight).Add(c.DescriptionWeight)
	s := c.AmountWeight.Mul(amountSimilarity(diff, c.AmountTolerance)).
		Add(c.ProximityWeight.Mul(proximity(days, c.Window))).
		Add(c.DescriptionWeight.Mul(descriptionSimilarity(a, b)))
	return s.Div(total)
}
