package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resolution is the outcome of resolving one billable item's price.
type Resolution struct {
	EffectivePrice int64
	Rule           *RateRule
}

// Resolve selects the single applicable rule from a company/scope rule set
// and computes the effective price in minor units. Selection: keep active
// rules whose window contains asOf, partition into item-specific and default,
// take the lowest-priority rule of each partition, and prefer the
// item-specific winner. Same-priority ties inside a partition fall back to the
// lowest rule id; this is a deliberate deterministic choice, not an accident
// of iteration order. With no applicable rule the base price stands.
//
// Resolve is a pure function of its arguments, so callers pricing a
// multi-item order can fetch the rule set once and call it per line.
func Resolve(rules []RateRule, itemID string, basePrice int64, asOf time.Time) Resolution {
	var itemWinner, defaultWinner *RateRule
	for i := range rules {
		rule := &rules[i]
		if !rule.Active || !rule.InWindow(asOf) {
			continue
		}
		switch {
		case rule.MatchesItem(itemID):
			itemWinner = better(itemWinner, rule)
		case rule.RuleType == RuleTypeDefault:
			defaultWinner = better(defaultWinner, rule)
		}
	}

	winner := itemWinner
	if winner == nil {
		winner = defaultWinner
	}
	if winner == nil {
		return Resolution{EffectivePrice: basePrice}
	}
	return Resolution{EffectivePrice: winner.Apply(basePrice), Rule: winner}
}

// Apply computes the rule's effective price from a base price in minor
// units, floored at zero.
func (r RateRule) Apply(basePrice int64) int64 {
	base := decimal.NewFromInt(basePrice)
	var result decimal.Decimal
	switch r.Mode {
	case ModeFixedPrice:
		result = r.Value
	case ModePercentDiscount:
		result = base.Sub(base.Mul(r.Value).Div(decimal.NewFromInt(100)))
	case ModeFixedDiscount:
		result = base.Sub(r.Value)
	default:
		return basePrice
	}
	price := result.Round(0).IntPart()
	if price < 0 {
		return 0
	}
	return price
}

func better(current, candidate *RateRule) *RateRule {
	if current == nil {
		return candidate
	}
	if candidate.Priority < current.Priority {
		return candidate
	}
	if candidate.Priority == current.Priority && candidate.ID < current.ID {
		return candidate
	}
	return current
}
