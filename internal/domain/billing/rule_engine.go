package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

// PricingWarning flags a non-fatal condition raised while pricing
type PricingWarning string

const (
	// PricingWarningNone means a single rule matched cleanly
	PricingWarningNone PricingWarning = ""

	// PricingWarningUnconfiguredRate means no rule matched; the charge is
	// billed at cost. This must not block invoicing.
	PricingWarningUnconfiguredRate PricingWarning = "UNCONFIGURED_RATE"

	// PricingWarningRuleAmbiguity means two rules tied in specificity and the
	// tie broke deterministically toward the lowest rule id.
	PricingWarningRuleAmbiguity PricingWarning = "RULE_AMBIGUITY"
)

// PricingOutcome is the result of pricing one transaction against a rule
// snapshot
type PricingOutcome struct {
	BilledAmount valueobject.Money
	RuleID       *uuid.UUID
	Warning      PricingWarning
}

var percentDivisor = decimal.NewFromInt(100)

// EvaluateRule applies a single rule to a base amount.
// Percentage: base * (1 + value/100). Fixed: base + value.
func EvaluateRule(base valueobject.Money, rule *PricingRule) valueobject.Money {
	switch rule.RuleType {
	case RuleTypePercentage:
		factor := decimal.NewFromInt(1).Add(rule.Value.Div(percentDivisor))
		return base.Multiply(factor)
	case RuleTypeFixed:
		adjustment, _ := valueobject.NewMoney(rule.Value, base.Currency())
		return base.MustAdd(adjustment)
	default:
		return base
	}
}

// Evaluate prices a transaction against the frozen rule set. Evaluation is
// pure: identical (transaction, snapshot) inputs always yield the identical
// outcome, which reproducible audits depend on. The transaction is not
// mutated.
func Evaluate(tx *Transaction, snapshot *RuleSetSnapshot) PricingOutcome {
	selection := snapshot.SelectFor(tx)
	if selection.Rule == nil {
		return PricingOutcome{
			BilledAmount: tx.Amount,
			Warning:      PricingWarningUnconfiguredRate,
		}
	}

	outcome := PricingOutcome{
		BilledAmount: EvaluateRule(tx.Amount, selection.Rule),
		RuleID:       &selection.Rule.ID,
	}
	if selection.Ambiguous {
		outcome.Warning = PricingWarningRuleAmbiguity
	}
	return outcome
}
