// Package guard evaluates operator-configurable risk rules against
// trade submissions. Rules flag, never block: a matching rule produces
// a warning notification and leaves the workflow state untouched.
package guard

import (
	"fmt"

	"github.com/Knetic/govaluate"
	"github.com/rs/zerolog"
)

// Rule is one boolean expression over submission facts.
type Rule struct {
	Name       string
	Expression string
	Message    string
}

// Warning is the user-facing result of a matched rule.
type Warning struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// DefaultRules are the built-in checks every deployment starts with.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "recent-account",
			Expression: "is_recent_account == true",
			Message:    "The linked account was created very recently. Proceed with extra care.",
		},
		{
			Name:       "oversized-items",
			Expression: "item_length > 1024",
			Message:    "The item description is unusually long; make sure it matches what is actually being traded.",
		},
	}
}

type compiledRule struct {
	rule Rule
	expr *govaluate.EvaluableExpression
}

// Engine holds compiled rules.
type Engine struct {
	rules  []compiledRule
	logger zerolog.Logger
}

// NewEngine compiles the rule set. A rule that fails to compile is an
// error: bad expressions should surface at startup, not per submission.
func NewEngine(rules []Rule, logger zerolog.Logger) (*Engine, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, fmt.Errorf("guard rule %q: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{rule: r, expr: expr})
	}
	return &Engine{
		rules:  compiled,
		logger: logger.With().Str("service", "guard").Logger(),
	}, nil
}

// Evaluate runs every rule against the submission facts. Rules that
// error or return a non-boolean are logged and skipped; evaluation
// never fails the submission.
func (e *Engine) Evaluate(params map[string]interface{}) []Warning {
	var warnings []Warning
	for _, cr := range e.rules {
		result, err := cr.expr.Evaluate(params)
		if err != nil {
			e.logger.Warn().Err(err).Str("rule", cr.rule.Name).Msg("rule evaluation failed; skipping")
			continue
		}
		matched, ok := result.(bool)
		if !ok {
			e.logger.Warn().Str("rule", cr.rule.Name).Msg("rule did not evaluate to boolean; skipping")
			continue
		}
		if matched {
			warnings = append(warnings, Warning{Rule: cr.rule.Name, Message: cr.rule.Message})
		}
	}
	return warnings
}
