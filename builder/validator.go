// builder/validator.go
package builder

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/arbiterhq/arbiter/catalog"
	"github.com/arbiterhq/arbiter/model"
)

// Level selects how deep validation goes. Each level includes the previous
// one.
type Level string

const (
	LevelBasic         Level = "basic"
	LevelComprehensive Level = "comprehensive"
	LevelPerformance   Level = "performance"
)

const (
	// categoryWarnThreshold flags a single condition category growing past
	// the point where authoring mistakes become likely.
	categoryWarnThreshold = 20
	rulesWarnThreshold    = 50
	// complexityWarnThreshold bounds the estimated evaluation cost before a
	// performance warning is raised.
	complexityWarnThreshold = 100
)

// Issue is one field-level validation finding.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating a draft. Errors block persistence and
// activation; warnings never do.
type Result struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Result) addError(field, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) addWarning(field, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validator checks policy drafts for structural completeness, authoring
// mistakes, and estimated evaluation cost. It reuses the attribute catalog
// for operator/type compatibility.
type Validator struct {
	catalog  *catalog.Catalog
	validate *validator.Validate
}

func NewValidator(cat *catalog.Catalog) *Validator {
	return &Validator{
		catalog:  cat,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate runs the draft through the requested level.
func (v *Validator) Validate(p model.Policy, level Level) Result {
	var result Result

	v.basic(p, &result)
	if level == LevelComprehensive || level == LevelPerformance {
		v.comprehensive(p, &result)
	}
	if level == LevelPerformance {
		v.performance(p, &result)
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

func (v *Validator) basic(p model.Policy, result *Result) {
	if err := v.validate.Struct(p); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				result.addError(fe.Field(), "failed %q validation (value %v)", fe.Tag(), fe.Value())
			}
		} else {
			result.addError("policy", "structural validation failed: %v", err)
		}
	}

	if p.ConditionCount() == 0 {
		result.addError("policy", "policy must carry at least one target condition or rule")
	}
	if p.Status == model.StatusActive && len(p.Rules) == 0 {
		result.addError("rules", "an active policy must have at least one rule")
	}
	if p.ValidFrom != nil && p.ValidTo != nil && !p.ValidFrom.Before(*p.ValidTo) {
		result.addError("valid_from", "valid_from must be before valid_to")
	}
}

func (v *Validator) comprehensive(p model.Policy, result *Result) {
	categories := map[string][]model.AttributeCondition{
		"target.subjects":    p.Target.Subjects,
		"target.resources":   p.Target.Resources,
		"target.environment": p.Target.Environment,
	}

	seen := make(map[string]string)
	for _, field := range []string{"target.subjects", "target.resources", "target.environment"} {
		conds := categories[field]
		if len(conds) > categoryWarnThreshold {
			result.addWarning(field, "%d conditions in one category may slow evaluation (threshold %d)",
				len(conds), categoryWarnThreshold)
		}
		for _, cond := range conds {
			if err := v.catalog.ValidateCondition(cond); err != nil {
				result.addError(field, "%v", err)
			}
			if prev, dup := seen[cond.Attribute]; dup {
				result.addWarning(field, "attribute %q already constrained in %s", cond.Attribute, prev)
			} else {
				seen[cond.Attribute] = field
			}
		}
	}

	if len(p.Rules) > rulesWarnThreshold {
		result.addWarning("rules", "%d rules may slow evaluation (threshold %d)", len(p.Rules), rulesWarnThreshold)
	}
	for _, rule := range p.Rules {
		v.checkRuleConditions(rule.Condition, "rules."+rule.ID, result)
	}
}

func (v *Validator) checkRuleConditions(cond model.Condition, field string, result *Result) {
	if cond.Simple != nil {
		if err := v.catalog.ValidateCondition(*cond.Simple); err != nil {
			result.addError(field, "%v", err)
		}
		return
	}
	if cond.Logical == model.LogicalNot && len(cond.Children) != 1 {
		result.addError(field, "NOT composite requires exactly one child, got %d", len(cond.Children))
	}
	for _, child := range cond.Children {
		v.checkRuleConditions(child, field, result)
	}
}

func (v *Validator) performance(p model.Policy, result *Result) {
	score := ComplexityScore(p)
	if score > complexityWarnThreshold {
		result.addWarning("policy", "estimated complexity %d exceeds threshold %d", score, complexityWarnThreshold)
	}
}

// ComplexityScore estimates evaluation cost: subject, resource and
// environment target conditions weigh 2, action entries weigh 1, and each
// rule contributes its recursive condition complexity (a simple condition
// counts 1, a composite counts 1 plus its children).
func ComplexityScore(p model.Policy) int {
	score := 2 * (len(p.Target.Subjects) + len(p.Target.Resources) + len(p.Target.Environment))
	score += len(p.Target.Actions)
	for _, rule := range p.Rules {
		score += conditionComplexity(rule.Condition)
	}
	return score
}

func conditionComplexity(cond model.Condition) int {
	if !cond.IsComposite() {
		return 1
	}
	total := 1
	for _, child := range cond.Children {
		total += conditionComplexity(child)
	}
	return total
}
