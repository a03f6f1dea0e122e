// pdp/engine/evaluator_test.go
package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/pdp/engine"
	pdp_model "github.com/arbiterhq/arbiter/pdp/model"
)

func activePolicy(name string, effect model.Effect, priority int) *model.Policy {
	return &model.Policy{
		ID:       "id-" + name,
		Name:     name,
		Effect:   effect,
		Priority: priority,
		Status:   model.StatusActive,
		Rules: []model.Rule{
			{ID: "r1", Condition: model.SimpleCondition("subject.id", model.OpExists, nil)},
		},
	}
}

func evalRequest(action string) *pdp_model.EvaluationRequest {
	return &pdp_model.EvaluationRequest{
		SubjectID:    "u-1",
		ResourceType: "purchase_order",
		ResourceID:   "po-9",
		ActionType:   action,
		Timestamp:    time.Now(),
	}
}

func baseContext() *model.AttributeContext {
	return contextWith(map[string]model.TypedValue{
		"subject.id": model.StringValue("u-1"),
	})
}

func TestEvaluate_DenyOverrides(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.DenyOverrides)
	policies := []*model.Policy{
		activePolicy("allow-read", model.EffectPermit, 100),
		activePolicy("deny-read", model.EffectDeny, 50),
	}

	decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), policies)
	assert.Equal(t, pdp_model.DecisionDeny, decision.Effect)
	assert.Equal(t, []string{"id-deny-read"}, decision.MatchedPolicyIDs)
}

func TestEvaluate_PermitOverrides(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.PermitOverrides)
	policies := []*model.Policy{
		activePolicy("deny-read", model.EffectDeny, 900),
		activePolicy("allow-read", model.EffectPermit, 10),
	}

	decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), policies)
	assert.Equal(t, pdp_model.DecisionPermit, decision.Effect)
	assert.Equal(t, []string{"id-allow-read"}, decision.MatchedPolicyIDs)
}

func TestEvaluate_FirstApplicable_PriorityWinsOverInsertionOrder(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.FirstApplicable)

	lowPermit := activePolicy("low-permit", model.EffectPermit, 100)
	highDeny := activePolicy("high-deny", model.EffectDeny, 900)

	// Insertion order must not matter; priority ordering decides.
	for _, policies := range [][]*model.Policy{
		{lowPermit, highDeny},
		{highDeny, lowPermit},
	} {
		decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), policies)
		assert.Equal(t, pdp_model.DecisionDeny, decision.Effect)
		assert.Equal(t, []string{"id-high-deny"}, decision.MatchedPolicyIDs)
	}
}

func TestEvaluate_PriorityTieBreaksByName(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.FirstApplicable)
	a := activePolicy("alpha", model.EffectPermit, 500)
	b := activePolicy("beta", model.EffectDeny, 500)

	decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), []*model.Policy{b, a})
	assert.Equal(t, pdp_model.DecisionPermit, decision.Effect)
	assert.Equal(t, []string{"id-alpha"}, decision.MatchedPolicyIDs)
}

func TestEvaluate_OnlyOneApplicable(t *testing.T) {
	t.Run("exactly one applies", func(t *testing.T) {
		e := engine.NewPolicyEvaluator(model.OnlyOneApplicable)
		decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(),
			[]*model.Policy{activePolicy("only", model.EffectPermit, 10)})
		assert.Equal(t, pdp_model.DecisionPermit, decision.Effect)
		assert.False(t, decision.ConflictDetected)
	})

	t.Run("two applicable is a conflict", func(t *testing.T) {
		e := engine.NewPolicyEvaluator(model.OnlyOneApplicable)
		decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(),
			[]*model.Policy{
				activePolicy("one", model.EffectPermit, 10),
				activePolicy("two", model.EffectDeny, 20),
			})
		assert.Equal(t, pdp_model.DecisionNotApplicable, decision.Effect)
		assert.True(t, decision.ConflictDetected)
	})

	t.Run("none applicable is a conflict", func(t *testing.T) {
		e := engine.NewPolicyEvaluator(model.OnlyOneApplicable)
		decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), nil)
		assert.Equal(t, pdp_model.DecisionNotApplicable, decision.Effect)
		assert.True(t, decision.ConflictDetected)
	})
}

func TestEvaluate_NoApplicablePolicies(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.DenyOverrides)

	inactive := activePolicy("inactive", model.EffectPermit, 10)
	inactive.Status = model.StatusInactive

	decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), []*model.Policy{inactive})
	assert.Equal(t, pdp_model.DecisionNotApplicable, decision.Effect)
	assert.Empty(t, decision.MatchedPolicyIDs)
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.DenyOverrides)
	policies := []*model.Policy{
		activePolicy("allow", model.EffectPermit, 100),
		activePolicy("deny", model.EffectDeny, 50),
	}

	first := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), policies)
	for i := 0; i < 5; i++ {
		again := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), policies)
		assert.Equal(t, first.Effect, again.Effect)
		assert.Equal(t, first.MatchedPolicyIDs, again.MatchedPolicyIDs)
	}
}

func TestEvaluate_ConfigurationErrorVoidsOnlyThatPolicy(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.DenyOverrides)

	broken := activePolicy("broken", model.EffectDeny, 900)
	broken.Rules = []model.Rule{
		// Ordering against a boolean is a configuration error.
		{ID: "bad", Condition: model.SimpleCondition("subject.onDuty", model.OpGreaterThan, true)},
	}
	healthy := activePolicy("healthy", model.EffectPermit, 100)

	attrs := contextWith(map[string]model.TypedValue{
		"subject.id":     model.StringValue("u-1"),
		"subject.onDuty": model.BoolValue(true),
	})

	decision := e.Evaluate(context.Background(), evalRequest("read"), attrs, []*model.Policy{broken, healthy})
	assert.Equal(t, pdp_model.DecisionPermit, decision.Effect)
	assert.Equal(t, []string{"id-healthy"}, decision.MatchedPolicyIDs)
}

func TestEvaluate_ObligationsAndAdviceFollowEvaluationOrder(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.DenyOverrides)

	high := activePolicy("high", model.EffectPermit, 900)
	high.Obligations = []model.Obligation{{Type: "log", Action: "first"}}
	high.Advice = []model.Advice{{Type: "note", Message: "from high"}}

	low := activePolicy("low", model.EffectPermit, 100)
	low.Obligations = []model.Obligation{{Type: "log", Action: "second"}}

	decision := e.Evaluate(context.Background(), evalRequest("read"), baseContext(), []*model.Policy{low, high})
	require.Equal(t, pdp_model.DecisionPermit, decision.Effect)
	require.Len(t, decision.Obligations, 2)
	assert.Equal(t, "first", decision.Obligations[0].Action)
	assert.Equal(t, "second", decision.Obligations[1].Action)
	require.Len(t, decision.Advice, 1)
	assert.Equal(t, "from high", decision.Advice[0].Message)
}

func TestEvaluate_CancelledContextFailsClosed(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.DenyOverrides)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	decision := e.Evaluate(ctx, evalRequest("read"), baseContext(),
		[]*model.Policy{activePolicy("allow", model.EffectPermit, 10)})
	assert.Equal(t, pdp_model.DecisionNotApplicable, decision.Effect)
	assert.Equal(t, "evaluation cancelled", decision.Reason)
}

// Approval-limit scenario: a manager may approve a purchase order only when
// their approval limit covers the order total.
func TestEvaluate_ApprovalLimitScenario(t *testing.T) {
	e := engine.NewPolicyEvaluator(model.DenyOverrides)

	policy := &model.Policy{
		ID:       "pol-approve",
		Name:     "manager-approval",
		Effect:   model.EffectPermit,
		Priority: 500,
		Status:   model.StatusActive,
		Target: model.Target{
			Subjects: []model.AttributeCondition{
				{Attribute: "subject.role.name", Operator: model.OpEquals, Value: "department_manager"},
			},
			Resources: []model.AttributeCondition{
				{Attribute: "resource.type", Operator: model.OpEquals, Value: "purchase_order"},
			},
			Actions: []string{"approve_department"},
		},
		Rules: []model.Rule{
			{
				ID: "within-limit",
				Condition: model.SimpleCondition(
					"subject.approvalLimit.amount",
					model.OpGreaterThanOrEqual,
					map[string]interface{}{"attribute": "resource.totalValue.amount"},
				),
			},
		},
	}

	makeAttrs := func(total float64) *model.AttributeContext {
		return contextWith(map[string]model.TypedValue{
			"subject.id":                   model.StringValue("u-1"),
			"subject.role.name":            model.StringValue("department_manager"),
			"subject.approvalLimit.amount": model.NumberValue(5000),
			"resource.type":                model.StringValue("purchase_order"),
			"resource.totalValue.amount":   model.NumberValue(total),
		})
	}

	req := evalRequest("approve_department")

	decision := e.Evaluate(context.Background(), req, makeAttrs(3000), []*model.Policy{policy})
	assert.Equal(t, pdp_model.DecisionPermit, decision.Effect, "3000 within a 5000 limit")

	decision = e.Evaluate(context.Background(), req, makeAttrs(6000), []*model.Policy{policy})
	assert.Equal(t, pdp_model.DecisionNotApplicable, decision.Effect, "6000 exceeds a 5000 limit")
}
