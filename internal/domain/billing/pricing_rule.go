package billing

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warebill/backend/internal/domain/shared"
)

// RuleType determines how a pricing rule transforms the base amount
type RuleType string

const (
	// RuleTypePercentage bills base * (1 + value/100)
	RuleTypePercentage RuleType = "PERCENTAGE"

	// RuleTypeFixed bills base + value; value may be negative to model a waiver
	RuleTypeFixed RuleType = "FIXED"
)

// IsValid checks if the rule type is valid
func (t RuleType) IsValid() bool {
	return t == RuleTypePercentage || t == RuleTypeFixed
}

// RuleCondition is an optional predicate narrowing when a rule applies
type RuleCondition struct {
	// MinAmount and MaxAmount bound the transaction base amount, inclusive
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal

	// ReferenceType restricts the rule to one reference type
	ReferenceType *ReferenceType
}

// Matches reports whether the condition is satisfied by the transaction
func (c *RuleCondition) Matches(tx *Transaction) bool {
	if c == nil {
		return true
	}
	base := tx.Amount.Amount()
	if c.MinAmount != nil && base.LessThan(*c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && base.GreaterThan(*c.MaxAmount) {
		return false
	}
	if c.ReferenceType != nil && tx.ReferenceType != *c.ReferenceType {
		return false
	}
	return true
}

// PricingRule prices a charge for a tenant. Nil TenantID makes the rule
// global; nil FeeCategory makes it a category wildcard; a nil Condition
// always matches.
type PricingRule struct {
	shared.BaseEntity
	TenantID    *uuid.UUID
	FeeCategory *FeeCategory
	Condition   *RuleCondition
	RuleType    RuleType
	Value       decimal.Decimal
}

// AppliesTo reports whether the rule is a candidate for the transaction
func (r *PricingRule) AppliesTo(tx *Transaction) bool {
	if r.TenantID != nil && (tx.TenantID == nil || *r.TenantID != *tx.TenantID) {
		return false
	}
	if r.FeeCategory != nil && *r.FeeCategory != tx.FeeCategory {
		return false
	}
	return r.Condition.Matches(tx)
}

// Specificity is the partial order on candidate rules. Dimensions are
// compared lexicographically - tenant match, then category match, then
// condition match - never additively, so unrelated dimensions can never sum
// into an accidental tie.
type Specificity struct {
	TenantMatch    bool
	CategoryMatch  bool
	ConditionMatch bool
}

// SpecificityOf computes the rule's specificity for a transaction it applies to
func (r *PricingRule) SpecificityOf() Specificity {
	return Specificity{
		TenantMatch:    r.TenantID != nil,
		CategoryMatch:  r.FeeCategory != nil,
		ConditionMatch: r.Condition != nil,
	}
}

// Compare orders two specificities lexicographically.
// Returns >0 if s is more specific than other, <0 if less, 0 if tied.
func (s Specificity) Compare(other Specificity) int {
	if c := compareBool(s.TenantMatch, other.TenantMatch); c != 0 {
		return c
	}
	if c := compareBool(s.CategoryMatch, other.CategoryMatch); c != 0 {
		return c
	}
	return compareBool(s.ConditionMatch, other.ConditionMatch)
}

func compareBool(a, b bool) int {
	switch {
	case a && !b:
		return 1
	case !a && b:
		return -1
	default:
		return 0
	}
}

// RuleSetSnapshot is an immutable copy of the pricing rules taken at run
// start. Every transaction in one run prices against the same snapshot, so
// concurrent rule edits cannot be observed mid-run.
type RuleSetSnapshot struct {
	rules   []PricingRule
	TakenAt time.Time
}

// NewRuleSetSnapshot freezes the given rules. The slice is copied and sorted
// by rule id so selection is deterministic regardless of insertion order.
func NewRuleSetSnapshot(rules []PricingRule, takenAt time.Time) *RuleSetSnapshot {
	frozen := make([]PricingRule, len(rules))
	copy(frozen, rules)
	sort.Slice(frozen, func(i, j int) bool {
		return frozen[i].ID.String() < frozen[j].ID.String()
	})
	return &RuleSetSnapshot{rules: frozen, TakenAt: takenAt}
}

// Rules returns the frozen rules
func (s *RuleSetSnapshot) Rules() []PricingRule {
	return s.rules
}

// Len returns the number of rules in the snapshot
func (s *RuleSetSnapshot) Len() int {
	return len(s.rules)
}

// RuleSelection is the winning rule for a transaction plus whether the win
// involved a specificity tie
type RuleSelection struct {
	Rule      *PricingRule
	Ambiguous bool
}

// SelectFor picks the single most specific applicable rule. Ties in
// specificity break deterministically toward the lowest rule id and are
// reported as ambiguous so configuration can be fixed.
func (s *RuleSetSnapshot) SelectFor(tx *Transaction) RuleSelection {
	var winner *PricingRule
	ambiguous := false

	for i := range s.rules {
		rule := &s.rules[i]
		if !rule.AppliesTo(tx) {
			continue
		}
		if winner == nil {
			winner = rule
			ambiguous = false
			continue
		}
		switch rule.SpecificityOf().Compare(winner.SpecificityOf()) {
		case 1:
			winner = rule
			ambiguous = false
		case 0:
			// Rules are pre-sorted by id, so the current winner already has
			// the lowest id among the tied candidates.
			ambiguous = true
		}
	}

	return RuleSelection{Rule: winner, Ambiguous: ambiguous}
}
