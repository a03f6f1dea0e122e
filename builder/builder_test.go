// builder/builder_test.go
package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/builder"
	"github.com/arbiterhq/arbiter/model"
)

func managerConditions() []model.AttributeCondition {
	return []model.AttributeCondition{
		{Attribute: "subject.role.name", Operator: model.OpEquals, Value: "department_manager"},
	}
}

func TestWizard_HappyPath(t *testing.T) {
	w := builder.NewWizard("manager-approval", "managers approve orders", model.EffectPermit, 500)
	require.Equal(t, builder.StageSubject, w.State().Stage)

	require.NoError(t, w.SetSubjectConditions(managerConditions()))
	require.NoError(t, w.Advance())

	require.NoError(t, w.SetResource("purchase_order", nil))
	require.NoError(t, w.Advance())

	require.NoError(t, w.SetActions([]string{"approve_department", "read"}))
	require.NoError(t, w.Advance())

	require.NoError(t, w.SetEnvironmentConditions([]model.AttributeCondition{
		{Attribute: "environment.isBusinessHours", Operator: model.OpEquals, Value: true},
	}))
	require.NoError(t, w.Advance())
	require.Equal(t, builder.StageReview, w.State().Stage)

	rules := []model.Rule{
		{ID: "within-limit", Condition: model.SimpleCondition("subject.approvalLimit.amount", model.OpGreaterThanOrEqual, 1000)},
	}
	require.NoError(t, w.SetReview(rules, nil, nil, []string{"procurement"}, nil, nil))

	policy, result, err := w.Finish(newValidator())
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	assert.Equal(t, "manager-approval", policy.Name)
	assert.Equal(t, model.EffectPermit, policy.Effect)
	assert.Equal(t, model.StatusDraft, policy.Status)
	assert.Equal(t, 1, policy.Version)
	assert.Equal(t, []string{"approve_department", "read"}, policy.Target.Actions)

	// The chosen resource type becomes the leading resource condition.
	require.NotEmpty(t, policy.Target.Resources)
	first := policy.Target.Resources[0]
	assert.Equal(t, "resource.type", first.Attribute)
	assert.Equal(t, model.OpEquals, first.Operator)
	assert.Equal(t, "purchase_order", first.Value)
}

func TestWizard_StageGating(t *testing.T) {
	w := builder.NewWizard("p", "", model.EffectDeny, 100)

	// Stage writes outside their stage are rejected.
	assert.Error(t, w.SetResource("vendor", nil))
	assert.Error(t, w.SetActions([]string{"read"}))
	assert.Error(t, w.SetEnvironmentConditions(nil))
	assert.Error(t, w.SetReview(nil, nil, nil, nil, nil, nil))

	require.NoError(t, w.Advance())
	// Leaving the resource stage requires a chosen resource type.
	assert.Error(t, w.Advance())
	require.NoError(t, w.SetResource("vendor", nil))
	require.NoError(t, w.Advance())
	require.Equal(t, builder.StageActions, w.State().Stage)

	// Back keeps entered data.
	require.NoError(t, w.Back())
	assert.Equal(t, builder.StageResource, w.State().Stage)
	assert.Equal(t, "vendor", w.State().ResourceType)

	require.NoError(t, w.Back())
	assert.Error(t, w.Back(), "cannot step back past the first stage")
}

func TestWizard_SetActionsValidatesSelectability(t *testing.T) {
	w := builder.NewWizard("p", "", model.EffectPermit, 100)
	require.NoError(t, w.Advance())
	require.NoError(t, w.SetResource("vendor", nil))
	require.NoError(t, w.Advance())

	assert.Error(t, w.SetActions([]string{"approve_department"}), "purchase order action is not selectable for vendors")
	assert.NoError(t, w.SetActions([]string{"approve_vendor", "read"}))
}

func TestSelectableActions(t *testing.T) {
	assert.Contains(t, builder.SelectableActions("purchase_order"), "approve_department")
	assert.Contains(t, builder.SelectableActions("grn"), "approve_grn")
	// Unknown resource types fall back to the CRUD set.
	assert.ElementsMatch(t, []string{"read", "create", "update", "delete"}, builder.SelectableActions("gadget"))
}

func TestWizard_FinishRequiresReviewStage(t *testing.T) {
	w := builder.NewWizard("p", "", model.EffectPermit, 100)
	_, _, err := w.Finish(newValidator())
	assert.Error(t, err)
}

func TestWizard_FinishRejectsInvalidDraft(t *testing.T) {
	w := builder.NewWizard("p", "", model.EffectPermit, 100)
	require.NoError(t, w.Advance())
	require.NoError(t, w.SetResource("vendor", nil))
	require.NoError(t, w.Advance())
	require.NoError(t, w.SetActions([]string{"read"}))
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())

	// A rule referencing an unregistered attribute fails comprehensive
	// validation at finish.
	rules := []model.Rule{
		{ID: "r1", Condition: model.SimpleCondition("subject.shoeSize", model.OpEquals, 42)},
	}
	require.NoError(t, w.SetReview(rules, nil, nil, nil, nil, nil))

	_, result, err := w.Finish(newValidator())
	require.Error(t, err)
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)
}
