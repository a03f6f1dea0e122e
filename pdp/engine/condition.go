// pdp/engine/condition.go
package engine

import (
	"strconv"
	"strings"
	"time"

	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	"github.com/arbiterhq/arbiter/model"
)

// ConditionEvaluator evaluates simple and composite conditions against a
// resolved attribute context.
//
// Data absence is never an error: a condition whose attribute (or referenced
// value) did not resolve evaluates to false. Errors are reserved for
// structural misconfiguration, e.g. CONTAINS applied to a boolean.
type ConditionEvaluator struct{}

func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{}
}

// Evaluate walks the condition tree. AND short-circuits on the first false
// child, OR on the first true child; NOT requires exactly one child.
func (e *ConditionEvaluator) Evaluate(cond model.Condition, attrs *model.AttributeContext) (bool, error) {
	if cond.Simple != nil {
		return e.EvaluateSimple(*cond.Simple, attrs)
	}

	switch cond.Logical {
	case model.LogicalAnd:
		for _, child := range cond.Children {
			ok, err := e.Evaluate(child, attrs)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case model.LogicalOr:
		for _, child := range cond.Children {
			ok, err := e.Evaluate(child, attrs)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case model.LogicalNot:
		if len(cond.Children) != 1 {
			return false, arbiter_errors.NewConfigurationError("", string(model.LogicalNot),
				"NOT requires exactly one child condition, got %d", len(cond.Children))
		}
		ok, err := e.Evaluate(cond.Children[0], attrs)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, arbiter_errors.NewConfigurationError("", string(cond.Logical),
			"condition is neither simple nor a known composite")
	}
}

// EvaluateSimple evaluates a single attribute comparison.
func (e *ConditionEvaluator) EvaluateSimple(cond model.AttributeCondition, attrs *model.AttributeContext) (bool, error) {
	// Presence operators look only at the context, never at the value.
	switch cond.Operator {
	case model.OpExists:
		return attrs.Has(cond.Attribute), nil
	case model.OpNotExists:
		return !attrs.Has(cond.Attribute), nil
	}

	left := attrs.Get(cond.Attribute)
	if left.IsAbsent() {
		return false, nil
	}

	right, resolved := e.resolveValue(cond.Value, attrs)
	if !resolved {
		return false, nil
	}

	switch cond.Operator {
	case model.OpEquals:
		l, r := coercePair(left, right)
		return l.Equal(r), nil
	case model.OpNotEquals:
		l, r := coercePair(left, right)
		return !l.Equal(r), nil
	case model.OpGreaterThan, model.OpLessThan, model.OpGreaterThanOrEqual, model.OpLessThanOrEqual:
		return e.evaluateOrdering(cond, left, right)
	case model.OpContains, model.OpNotContains:
		ok, err := e.evaluateContains(cond, left, right)
		if err != nil {
			return false, err
		}
		if cond.Operator == model.OpNotContains {
			return !ok, nil
		}
		return ok, nil
	case model.OpStartsWith, model.OpEndsWith:
		return e.evaluateAffix(cond, left, right)
	case model.OpIn, model.OpNotIn:
		ok, err := e.evaluateMembership(cond, left, right)
		if err != nil {
			return false, err
		}
		if cond.Operator == model.OpNotIn {
			return !ok, nil
		}
		return ok, nil
	default:
		return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
			"unknown operator")
	}
}

// resolveValue turns a condition value into a TypedValue. Attribute
// references are read from the same context snapshot as the left side, so a
// request sees one consistent view for its whole evaluation. The second
// return is false when the value (or referenced path) did not resolve.
func (e *ConditionEvaluator) resolveValue(value interface{}, attrs *model.AttributeContext) (model.TypedValue, bool) {
	if path, ok := model.ReferencePath(value); ok {
		v := attrs.Get(path)
		return v, !v.IsAbsent()
	}
	v := model.FromAny(value)
	return v, !v.IsAbsent()
}

func (e *ConditionEvaluator) evaluateOrdering(cond model.AttributeCondition, left, right model.TypedValue) (bool, error) {
	l, r := coercePair(left, right)

	switch l.Kind {
	case model.KindNumber:
		if r.Kind != model.KindNumber {
			return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
				"cannot compare number against %s", r.Kind)
		}
		return orderingHolds(cond.Operator, compareFloats(l.Num, r.Num)), nil
	case model.KindDate:
		if r.Kind != model.KindDate {
			return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
				"cannot compare date against %s", r.Kind)
		}
		return orderingHolds(cond.Operator, compareDates(l.Date, r.Date)), nil
	default:
		return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
			"ordering comparison is defined for numbers and dates, not %s", l.Kind)
	}
}

func (e *ConditionEvaluator) evaluateContains(cond model.AttributeCondition, left, right model.TypedValue) (bool, error) {
	switch left.Kind {
	case model.KindString:
		if right.Kind != model.KindString {
			return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
				"substring test requires a string value, got %s", right.Kind)
		}
		return strings.Contains(left.Str, right.Str), nil
	case model.KindArray:
		for _, item := range left.Arr {
			l, r := coercePair(item, right)
			if l.Equal(r) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
			"CONTAINS is defined for strings and arrays, not %s", left.Kind)
	}
}

func (e *ConditionEvaluator) evaluateAffix(cond model.AttributeCondition, left, right model.TypedValue) (bool, error) {
	if left.Kind != model.KindString {
		return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
			"%s is defined for strings, not %s", cond.Operator, left.Kind)
	}
	if right.Kind != model.KindString {
		return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
			"%s requires a string value, got %s", cond.Operator, right.Kind)
	}
	if cond.Operator == model.OpStartsWith {
		return strings.HasPrefix(left.Str, right.Str), nil
	}
	return strings.HasSuffix(left.Str, right.Str), nil
}

func (e *ConditionEvaluator) evaluateMembership(cond model.AttributeCondition, left, right model.TypedValue) (bool, error) {
	if right.Kind != model.KindArray {
		return false, arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
			"%s requires an array value, got %s", cond.Operator, right.Kind)
	}
	for _, item := range right.Arr {
		l, r := coercePair(left, item)
		if l.Equal(r) {
			return true, nil
		}
	}
	return false, nil
}

// coercePair reconciles mixed-kind pairs before comparison: a numeric string
// next to a number becomes a number, an RFC3339 string next to a date becomes
// a date. Anything else is returned unchanged.
func coercePair(left, right model.TypedValue) (model.TypedValue, model.TypedValue) {
	if left.Kind == right.Kind {
		return left, right
	}
	if v, ok := coerceTo(right, left.Kind); ok {
		return left, v
	}
	if v, ok := coerceTo(left, right.Kind); ok {
		return v, right
	}
	return left, right
}

func coerceTo(v model.TypedValue, kind model.ValueKind) (model.TypedValue, bool) {
	if v.Kind != model.KindString {
		return v, false
	}
	switch kind {
	case model.KindNumber:
		if n, err := strconv.ParseFloat(v.Str, 64); err == nil {
			return model.NumberValue(n), true
		}
	case model.KindDate:
		if t, err := time.Parse(time.RFC3339, v.Str); err == nil {
			return model.DateValue(t), true
		}
	}
	return v, false
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareDates(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func orderingHolds(op model.Operator, cmp int) bool {
	switch op {
	case model.OpGreaterThan:
		return cmp > 0
	case model.OpLessThan:
		return cmp < 0
	case model.OpGreaterThanOrEqual:
		return cmp >= 0
	case model.OpLessThanOrEqual:
		return cmp <= 0
	default:
		return false
	}
}
