package engine

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"hr-backend/internal/metadata"
)

type compiledRule struct {
	rule *metadata.Rule
	prog *vm.Program
}

// RuleSet holds the compiled guard rules of every entity.
type RuleSet struct {
	byEntity map[string][]compiledRule
}

// CompileExpression compiles an expression string into an expr-lang program.
func CompileExpression(expression string) (*vm.Program, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return prog, nil
}

// CompileRules compiles the rules of all entities up front so a broken
// expression fails startup instead of a request.
func CompileRules(entities []*metadata.Entity) (*RuleSet, error) {
	rs := &RuleSet{byEntity: make(map[string][]compiledRule)}
	for _, e := range entities {
		for _, r := range e.Rules {
			prog, err := CompileExpression(r.Expression)
			if err != nil {
				return nil, fmt.Errorf("entity %s rule %s: %w", e.Name, r.Name, err)
			}
			rs.byEntity[e.Name] = append(rs.byEntity[e.Name], compiledRule{rule: r, prog: prog})
		}
	}
	return rs, nil
}

// Evaluate runs the entity's rules against a coerced record. id is nil on
// create. Returns nil if every rule passes (expression is false).
func (rs *RuleSet) Evaluate(entity string, record map[string]any, id any, action string) []ErrorDetail {
	rules := rs.byEntity[entity]
	if len(rules) == 0 {
		return nil
	}

	env := map[string]any{
		"record": record,
		"id":     id,
		"action": action,
	}

	var errs []ErrorDetail
	for _, cr := range rules {
		result, err := expr.Run(cr.prog, env)
		if err != nil {
			errs = append(errs, ErrorDetail{
				Field:   cr.rule.Field,
				Rule:    cr.rule.Name,
				Message: fmt.Sprintf("rule evaluation error: %v", err),
			})
			continue
		}
		if violated, ok := result.(bool); ok && violated {
			msg := cr.rule.Message
			if msg == "" {
				msg = "Expression rule violated"
			}
			errs = append(errs, ErrorDetail{Field: cr.rule.Field, Rule: cr.rule.Name, Message: msg})
		}
	}
	return errs
}
