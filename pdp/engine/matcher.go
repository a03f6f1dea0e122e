// pdp/engine/matcher.go
package engine

import (
	"time"

	"github.com/arbiterhq/arbiter/model"
)

// PolicyMatcher decides whether a policy participates in a request: first the
// status/temporal gate, then target matching against the resolved context.
type PolicyMatcher struct {
	conditions *ConditionEvaluator
}

func NewPolicyMatcher(conditions *ConditionEvaluator) *PolicyMatcher {
	return &PolicyMatcher{conditions: conditions}
}

// IsCandidate applies the status and validity-window gate. Only active
// policies inside [ValidFrom, ValidTo] qualify; unset bounds are unbounded.
func (m *PolicyMatcher) IsCandidate(p *model.Policy, now time.Time) bool {
	if p.Status != model.StatusActive {
		return false
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidTo != nil && now.After(*p.ValidTo) {
		return false
	}
	return true
}

// FilterCandidates returns the subset of policies passing IsCandidate.
func (m *PolicyMatcher) FilterCandidates(policies []*model.Policy, now time.Time) []*model.Policy {
	candidates := make([]*model.Policy, 0, len(policies))
	for _, p := range policies {
		if m.IsCandidate(p, now) {
			candidates = append(candidates, p)
		}
	}
	return candidates
}

// Matches evaluates the policy target against the context. All four
// categories must be satisfied; an empty category list means "no constraint"
// and is always satisfied. Errors are configuration errors from individual
// target conditions.
func (m *PolicyMatcher) Matches(p *model.Policy, action string, attrs *model.AttributeContext) (bool, error) {
	ok, err := m.allHold(p.Target.Subjects, attrs)
	if err != nil || !ok {
		return false, err
	}
	ok, err = m.allHold(p.Target.Resources, attrs)
	if err != nil || !ok {
		return false, err
	}
	if !actionMatches(p.Target.Actions, action) {
		return false, nil
	}
	ok, err = m.allHold(p.Target.Environment, attrs)
	if err != nil || !ok {
		return false, err
	}
	return true, nil
}

func (m *PolicyMatcher) allHold(conds []model.AttributeCondition, attrs *model.AttributeContext) (bool, error) {
	for _, cond := range conds {
		ok, err := m.conditions.EvaluateSimple(cond, attrs)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func actionMatches(targetActions []string, action string) bool {
	if len(targetActions) == 0 {
		return true
	}
	for _, a := range targetActions {
		if a == action {
			return true
		}
	}
	return false
}
