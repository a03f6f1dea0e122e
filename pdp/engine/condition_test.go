// pdp/engine/condition_test.go
package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/pdp/engine"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

func contextWith(values map[string]model.TypedValue) *model.AttributeContext {
	attrs := model.NewAttributeContext()
	for path, v := range values {
		attrs.Set(path, v)
	}
	return attrs
}

func TestEvaluateSimple_Operators(t *testing.T) {
	e := engine.NewConditionEvaluator()
	attrs := contextWith(map[string]model.TypedValue{
		"subject.role.name":            model.StringValue("department_manager"),
		"subject.roles":                model.StringArrayValue([]string{"employee", "department_manager"}),
		"subject.approvalLimit.amount": model.NumberValue(5000),
		"subject.onDuty":               model.BoolValue(true),
		"resource.type":                model.StringValue("purchase_order"),
		"resource.totalValue.amount":   model.NumberValue(3000),
		"environment.timestamp":        model.DateValue(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)),
	})

	tests := []struct {
		name string
		cond model.AttributeCondition
		want bool
	}{
		{"equals match", model.AttributeCondition{Attribute: "subject.role.name", Operator: model.OpEquals, Value: "department_manager"}, true},
		{"equals mismatch", model.AttributeCondition{Attribute: "subject.role.name", Operator: model.OpEquals, Value: "analyst"}, false},
		{"not equals", model.AttributeCondition{Attribute: "resource.type", Operator: model.OpNotEquals, Value: "vendor"}, true},
		{"greater than holds", model.AttributeCondition{Attribute: "subject.approvalLimit.amount", Operator: model.OpGreaterThan, Value: 3000}, true},
		{"greater than fails", model.AttributeCondition{Attribute: "resource.totalValue.amount", Operator: model.OpGreaterThan, Value: 5000}, false},
		{"less than or equal", model.AttributeCondition{Attribute: "resource.totalValue.amount", Operator: model.OpLessThanOrEqual, Value: 3000}, true},
		{"numeric string coerced", model.AttributeCondition{Attribute: "subject.approvalLimit.amount", Operator: model.OpEquals, Value: "5000"}, true},
		{"array contains", model.AttributeCondition{Attribute: "subject.roles", Operator: model.OpContains, Value: "employee"}, true},
		{"array not contains", model.AttributeCondition{Attribute: "subject.roles", Operator: model.OpNotContains, Value: "auditor"}, true},
		{"string contains", model.AttributeCondition{Attribute: "resource.type", Operator: model.OpContains, Value: "purchase"}, true},
		{"starts with", model.AttributeCondition{Attribute: "resource.type", Operator: model.OpStartsWith, Value: "purchase"}, true},
		{"ends with", model.AttributeCondition{Attribute: "resource.type", Operator: model.OpEndsWith, Value: "_order"}, true},
		{"in membership", model.AttributeCondition{Attribute: "resource.type", Operator: model.OpIn, Value: []interface{}{"purchase_order", "grn"}}, true},
		{"not in membership", model.AttributeCondition{Attribute: "resource.type", Operator: model.OpNotIn, Value: []interface{}{"vendor", "product"}}, true},
		{"exists", model.AttributeCondition{Attribute: "subject.onDuty", Operator: model.OpExists}, true},
		{"not exists", model.AttributeCondition{Attribute: "subject.clearanceLevel", Operator: model.OpNotExists}, true},
		{"date ordering", model.AttributeCondition{Attribute: "environment.timestamp", Operator: model.OpGreaterThan, Value: "2026-01-01T00:00:00Z"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EvaluateSimple(tt.cond, attrs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateSimple_AbsentAttributeNeverMatches(t *testing.T) {
	e := engine.NewConditionEvaluator()
	attrs := contextWith(nil)

	for _, op := range []model.Operator{
		model.OpEquals, model.OpNotEquals, model.OpGreaterThan, model.OpContains, model.OpIn,
	} {
		got, err := e.EvaluateSimple(model.AttributeCondition{
			Attribute: "subject.clearanceLevel", Operator: op, Value: "secret",
		}, attrs)
		require.NoError(t, err, "operator %s", op)
		assert.False(t, got, "absent attribute must not match under %s", op)
	}

	// Presence checks still see the absence itself.
	got, err := e.EvaluateSimple(model.AttributeCondition{
		Attribute: "subject.clearanceLevel", Operator: model.OpNotExists,
	}, attrs)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateSimple_AttributeReference(t *testing.T) {
	e := engine.NewConditionEvaluator()
	attrs := contextWith(map[string]model.TypedValue{
		"subject.approvalLimit.amount": model.NumberValue(5000),
		"resource.totalValue.amount":   model.NumberValue(3000),
	})

	got, err := e.EvaluateSimple(model.AttributeCondition{
		Attribute: "subject.approvalLimit.amount",
		Operator:  model.OpGreaterThanOrEqual,
		Value:     map[string]interface{}{"attribute": "resource.totalValue.amount"},
	}, attrs)
	require.NoError(t, err)
	assert.True(t, got)

	// Reference to an unresolved path does not match and does not error.
	got, err = e.EvaluateSimple(model.AttributeCondition{
		Attribute: "subject.approvalLimit.amount",
		Operator:  model.OpGreaterThan,
		Value:     map[string]interface{}{"attribute": "resource.missing"},
	}, attrs)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateSimple_ConfigurationErrors(t *testing.T) {
	e := engine.NewConditionEvaluator()
	attrs := contextWith(map[string]model.TypedValue{
		"subject.onDuty":    model.BoolValue(true),
		"subject.role.name": model.StringValue("analyst"),
	})

	tests := []struct {
		name string
		cond model.AttributeCondition
	}{
		{"ordering on bool", model.AttributeCondition{Attribute: "subject.onDuty", Operator: model.OpGreaterThan, Value: true}},
		{"contains on bool", model.AttributeCondition{Attribute: "subject.onDuty", Operator: model.OpContains, Value: "x"}},
		{"starts_with non-string value", model.AttributeCondition{Attribute: "subject.role.name", Operator: model.OpStartsWith, Value: 42}},
		{"in with non-array value", model.AttributeCondition{Attribute: "subject.role.name", Operator: model.OpIn, Value: "analyst"}},
		{"unknown operator", model.AttributeCondition{Attribute: "subject.role.name", Operator: model.Operator("LIKE"), Value: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.EvaluateSimple(tt.cond, attrs)
			require.Error(t, err)
			assert.True(t, arbiter_errors.IsConfigurationError(err))
		})
	}
}

func TestEvaluate_CompositeConditions(t *testing.T) {
	e := engine.NewConditionEvaluator()
	attrs := contextWith(map[string]model.TypedValue{
		"subject.role.name": model.StringValue("department_manager"),
		"subject.onDuty":    model.BoolValue(true),
	})

	isManager := model.SimpleCondition("subject.role.name", model.OpEquals, "department_manager")
	isAnalyst := model.SimpleCondition("subject.role.name", model.OpEquals, "analyst")
	onDuty := model.SimpleCondition("subject.onDuty", model.OpEquals, true)

	t.Run("and all hold", func(t *testing.T) {
		got, err := e.Evaluate(model.CompositeCondition(model.LogicalAnd, isManager, onDuty), attrs)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("and one fails", func(t *testing.T) {
		got, err := e.Evaluate(model.CompositeCondition(model.LogicalAnd, isManager, isAnalyst), attrs)
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("or short-circuits", func(t *testing.T) {
		got, err := e.Evaluate(model.CompositeCondition(model.LogicalOr, isAnalyst, isManager), attrs)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("not inverts", func(t *testing.T) {
		got, err := e.Evaluate(model.CompositeCondition(model.LogicalNot, isAnalyst), attrs)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("not with two children is a configuration error", func(t *testing.T) {
		_, err := e.Evaluate(model.CompositeCondition(model.LogicalNot, isAnalyst, isManager), attrs)
		require.Error(t, err)
		assert.True(t, arbiter_errors.IsConfigurationError(err))
	})

	t.Run("nested composite", func(t *testing.T) {
		nested := model.CompositeCondition(model.LogicalAnd,
			onDuty,
			model.CompositeCondition(model.LogicalOr, isAnalyst, isManager),
		)
		got, err := e.Evaluate(nested, attrs)
		require.NoError(t, err)
		assert.True(t, got)
	})
}
