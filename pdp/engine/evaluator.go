// pdp/engine/evaluator.go
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
	pdp_model "github.com/arbiterhq/arbiter/pdp/model"
	"go.uber.org/zap"
)

// PolicyEvaluator is the decision combiner: it gates candidates, evaluates
// each candidate's target and rules, and folds the surviving local effects
// into one decision using the configured combining algorithm.
//
// Evaluation is stateless per request; the evaluator itself holds no mutable
// state and is safe for concurrent use.
type PolicyEvaluator struct {
	matcher    *PolicyMatcher
	conditions *ConditionEvaluator
	algorithm  model.CombiningAlgorithm
	now        func() time.Time
}

func NewPolicyEvaluator(algorithm model.CombiningAlgorithm) *PolicyEvaluator {
	conditions := NewConditionEvaluator()
	return &PolicyEvaluator{
		matcher:    NewPolicyMatcher(conditions),
		conditions: conditions,
		algorithm:  algorithm,
		now:        time.Now,
	}
}

// WithClock replaces the evaluator's time source. Intended for tests.
func (pe *PolicyEvaluator) WithClock(now func() time.Time) *PolicyEvaluator {
	pe.now = now
	return pe
}

// Algorithm returns the configured combining algorithm.
func (pe *PolicyEvaluator) Algorithm() model.CombiningAlgorithm { return pe.algorithm }

// Evaluate runs the full combination over the given policy set. Policies are
// gated by status and validity window, ordered by (priority desc, name asc),
// then evaluated. A configuration error inside one policy voids only that
// policy; the loop continues.
func (pe *PolicyEvaluator) Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest, attrs *model.AttributeContext, policies []*model.Policy) *pdp_model.Decision {
	start := pe.now()

	candidates := pe.matcher.FilterCandidates(policies, start)
	sortPolicies(candidates)

	results := make([]pdp_model.PolicyEvaluationResult, 0, len(candidates))
	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			// Cancelled mid-evaluation: fail closed.
			return &pdp_model.Decision{
				Effect:           pdp_model.DecisionNotApplicable,
				Reason:           "evaluation cancelled",
				EvaluationTimeMs: time.Since(start).Milliseconds(),
			}
		}

		result := pe.evaluatePolicy(p, req.ActionType, attrs)
		if result.Err != nil {
			logger.Warn("Policy voided by configuration error",
				zap.String("policyID", p.ID),
				zap.String("policyName", p.Name),
				zap.Error(result.Err))
		}
		results = append(results, result)

		if pe.algorithm == model.FirstApplicable && result.Applicable {
			break
		}
	}

	decision := pe.combine(results)
	decision.EvaluationTimeMs = time.Since(start).Milliseconds()
	return decision
}

// evaluatePolicy derives a policy's local effect: its declared effect when
// the target matches and every rule holds, otherwise not applicable. Rules
// are implicitly AND-ed regardless of their internal structure.
func (pe *PolicyEvaluator) evaluatePolicy(p *model.Policy, action string, attrs *model.AttributeContext) pdp_model.PolicyEvaluationResult {
	result := pdp_model.PolicyEvaluationResult{
		PolicyID:    p.ID,
		PolicyName:  p.Name,
		Effect:      p.Effect,
		Priority:    p.Priority,
		Obligations: p.Obligations,
		Advice:      p.Advice,
	}

	matched, err := pe.matcher.Matches(p, action, attrs)
	if err != nil {
		result.Err = err
		result.Reason = "target evaluation failed"
		return result
	}
	if !matched {
		result.Reason = "target did not match"
		return result
	}

	for _, rule := range p.Rules {
		ok, err := pe.conditions.Evaluate(rule.Condition, attrs)
		if err != nil {
			result.Err = err
			result.Reason = fmt.Sprintf("rule %s evaluation failed", rule.ID)
			return result
		}
		if !ok {
			result.Reason = fmt.Sprintf("rule %s did not hold", rule.ID)
			return result
		}
	}

	result.Applicable = true
	return result
}

func (pe *PolicyEvaluator) combine(results []pdp_model.PolicyEvaluationResult) *pdp_model.Decision {
	applicable := make([]pdp_model.PolicyEvaluationResult, 0, len(results))
	for _, r := range results {
		if r.Applicable {
			applicable = append(applicable, r)
		}
	}

	switch pe.algorithm {
	case model.PermitOverrides:
		return combineOverrides(applicable, model.EffectPermit)
	case model.FirstApplicable:
		return combineFirstApplicable(applicable)
	case model.OnlyOneApplicable:
		return combineOnlyOne(applicable)
	default:
		// deny_overrides is the documented default.
		return combineOverrides(applicable, model.EffectDeny)
	}
}

// combineOverrides implements deny_overrides and permit_overrides: any
// applicable policy carrying the dominant effect forces the outcome; the
// opposite effect wins only when at least one policy applies and none carry
// the dominant effect.
func combineOverrides(applicable []pdp_model.PolicyEvaluationResult, dominant model.Effect) *pdp_model.Decision {
	if len(applicable) == 0 {
		return notApplicableDecision()
	}

	winner := dominant
	if !anyWithEffect(applicable, dominant) {
		if dominant == model.EffectDeny {
			winner = model.EffectPermit
		} else {
			winner = model.EffectDeny
		}
	}

	decision := &pdp_model.Decision{Effect: toDecisionEffect(winner)}
	for _, r := range applicable {
		if r.Effect != winner {
			continue
		}
		decision.MatchedPolicyIDs = append(decision.MatchedPolicyIDs, r.PolicyID)
		decision.Obligations = append(decision.Obligations, r.Obligations...)
		decision.Advice = append(decision.Advice, r.Advice...)
	}
	decision.Reason = fmt.Sprintf("%s under %s_overrides", winner, dominant)
	return decision
}

func combineFirstApplicable(applicable []pdp_model.PolicyEvaluationResult) *pdp_model.Decision {
	if len(applicable) == 0 {
		return notApplicableDecision()
	}
	first := applicable[0]
	return &pdp_model.Decision{
		Effect:           toDecisionEffect(first.Effect),
		MatchedPolicyIDs: []string{first.PolicyID},
		Obligations:      first.Obligations,
		Advice:           first.Advice,
		Reason:           fmt.Sprintf("first applicable policy %s", first.PolicyName),
	}
}

// combineOnlyOne demands exactly one applicable policy; anything else is a
// conflict surfaced as not_applicable, never an arbitrary pick.
func combineOnlyOne(applicable []pdp_model.PolicyEvaluationResult) *pdp_model.Decision {
	if len(applicable) != 1 {
		return &pdp_model.Decision{
			Effect:           pdp_model.DecisionNotApplicable,
			ConflictDetected: true,
			Reason:           fmt.Sprintf("expected exactly one applicable policy, got %d", len(applicable)),
		}
	}
	only := applicable[0]
	return &pdp_model.Decision{
		Effect:           toDecisionEffect(only.Effect),
		MatchedPolicyIDs: []string{only.PolicyID},
		Obligations:      only.Obligations,
		Advice:           only.Advice,
		Reason:           fmt.Sprintf("single applicable policy %s", only.PolicyName),
	}
}

func notApplicableDecision() *pdp_model.Decision {
	return &pdp_model.Decision{
		Effect: pdp_model.DecisionNotApplicable,
		Reason: "no applicable policy",
	}
}

func anyWithEffect(results []pdp_model.PolicyEvaluationResult, effect model.Effect) bool {
	for _, r := range results {
		if r.Effect == effect {
			return true
		}
	}
	return false
}

func toDecisionEffect(effect model.Effect) pdp_model.DecisionEffect {
	if effect == model.EffectDeny {
		return pdp_model.DecisionDeny
	}
	return pdp_model.DecisionPermit
}

// sortPolicies fixes the evaluation order: priority descending, then name
// ascending for ties. Store insertion order never leaks into decisions.
func sortPolicies(policies []*model.Policy) {
	sort.SliceStable(policies, func(i, j int) bool {
		if policies[i].Priority != policies[j].Priority {
			return policies[i].Priority > policies[j].Priority
		}
		return policies[i].Name < policies[j].Name
	})
}
