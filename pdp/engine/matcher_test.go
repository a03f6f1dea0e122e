// pdp/engine/matcher_test.go
package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/pdp/engine"
)

func TestIsCandidate_StatusGate(t *testing.T) {
	m := engine.NewPolicyMatcher(engine.NewConditionEvaluator())
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	for _, status := range []model.PolicyStatus{model.StatusDraft, model.StatusInactive, model.StatusArchived} {
		assert.False(t, m.IsCandidate(&model.Policy{Status: status}, now), "status %s must be gated out", status)
	}
	assert.True(t, m.IsCandidate(&model.Policy{Status: model.StatusActive}, now))
}

func TestIsCandidate_ValidityWindow(t *testing.T) {
	m := engine.NewPolicyMatcher(engine.NewConditionEvaluator())
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		validFrom *time.Time
		validTo   *time.Time
		want      bool
	}{
		{"unbounded", nil, nil, true},
		{"inside window", &past, &future, true},
		{"not yet valid", &future, nil, false},
		{"expired", nil, &past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &model.Policy{Status: model.StatusActive, ValidFrom: tt.validFrom, ValidTo: tt.validTo}
			assert.Equal(t, tt.want, m.IsCandidate(p, now))
		})
	}
}

func TestMatches_TargetCategories(t *testing.T) {
	m := engine.NewPolicyMatcher(engine.NewConditionEvaluator())
	attrs := contextWith(map[string]model.TypedValue{
		"subject.role.name":           model.StringValue("department_manager"),
		"resource.type":               model.StringValue("purchase_order"),
		"environment.isBusinessHours": model.BoolValue(true),
	})

	policy := &model.Policy{
		Status: model.StatusActive,
		Target: model.Target{
			Subjects: []model.AttributeCondition{
				{Attribute: "subject.role.name", Operator: model.OpEquals, Value: "department_manager"},
			},
			Resources: []model.AttributeCondition{
				{Attribute: "resource.type", Operator: model.OpEquals, Value: "purchase_order"},
			},
			Actions: []string{"approve_department"},
			Environment: []model.AttributeCondition{
				{Attribute: "environment.isBusinessHours", Operator: model.OpEquals, Value: true},
			},
		},
	}

	matched, err := m.Matches(policy, "approve_department", attrs)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = m.Matches(policy, "delete", attrs)
	require.NoError(t, err)
	assert.False(t, matched, "action outside the target list must not match")
}

func TestMatches_EmptyTargetMatchesEverything(t *testing.T) {
	m := engine.NewPolicyMatcher(engine.NewConditionEvaluator())
	attrs := contextWith(map[string]model.TypedValue{
		"subject.id": model.StringValue("u-1"),
	})

	matched, err := m.Matches(&model.Policy{Status: model.StatusActive}, "anything", attrs)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatches_AbsentAttributeFailsClosed(t *testing.T) {
	m := engine.NewPolicyMatcher(engine.NewConditionEvaluator())
	attrs := contextWith(nil)

	policy := &model.Policy{
		Status: model.StatusActive,
		Target: model.Target{
			Subjects: []model.AttributeCondition{
				{Attribute: "subject.clearanceLevel", Operator: model.OpEquals, Value: "secret"},
			},
		},
	}

	matched, err := m.Matches(policy, "read", attrs)
	require.NoError(t, err)
	assert.False(t, matched)
}
