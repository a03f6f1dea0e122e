// pdp/resolver/resolver_test.go
package resolver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
	pdp_model "github.com/arbiterhq/arbiter/pdp/model"
	"github.com/arbiterhq/arbiter/pdp/resolver"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

type fakeSubjectStore struct {
	subjects map[string]*model.Subject
	err      error
}

func (s *fakeSubjectStore) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.subjects[id], nil
}

type fakeResourceStore struct {
	defs map[string]*model.ResourceDefinition
	err  error
}

func (s *fakeResourceStore) GetResourceDefinition(ctx context.Context, resourceType string) (*model.ResourceDefinition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.defs[resourceType], nil
}

// Monday, 10:00 UTC.
var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newResolver(subjects *fakeSubjectStore, resources *fakeResourceStore) *resolver.Resolver {
	return resolver.New(subjects, resources, resolver.Options{Clock: fixedClock})
}

func requireString(t *testing.T, attrs *model.AttributeContext, path, want string) {
	t.Helper()
	v := attrs.Get(path)
	require.False(t, v.IsAbsent(), "attribute %s should be present", path)
	assert.Equal(t, want, v.Str, "attribute %s", path)
}

func TestResolve_SubjectNamespace(t *testing.T) {
	subjects := &fakeSubjectStore{subjects: map[string]*model.Subject{
		"u-1": {
			ID:             "u-1",
			Active:         true,
			DepartmentID:   "dept-7",
			Location:       "berlin",
			ClearanceLevel: "confidential",
			ApprovalLimit:  &model.Money{Amount: 5000, Currency: "EUR"},
			RoleAssignments: []model.RoleAssignment{
				{RoleID: "r1", RoleName: "employee"},
				{RoleID: "r2", RoleName: "department_manager", IsPrimary: true},
			},
			Attributes: map[string]interface{}{"costCenter": "cc-42"},
			CreatedAt:  testNow.AddDate(-3, 0, -1),
		},
	}}
	r := newResolver(subjects, &fakeResourceStore{})

	attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{
		SubjectID: "u-1", ResourceType: "purchase_order", ActionType: "read",
	})

	requireString(t, attrs, "subject.id", "u-1")
	requireString(t, attrs, "subject.role.name", "department_manager")
	requireString(t, attrs, "subject.department.id", "dept-7")
	requireString(t, attrs, "subject.location", "berlin")
	requireString(t, attrs, "subject.clearanceLevel", "confidential")
	requireString(t, attrs, "subject.accountStatus", "active")
	requireString(t, attrs, "subject.costCenter", "cc-42")

	roles := attrs.Get("subject.roles")
	require.Equal(t, model.KindArray, roles.Kind)
	require.Len(t, roles.Arr, 2)
	assert.Equal(t, "employee", roles.Arr[0].Str)
	assert.Equal(t, "department_manager", roles.Arr[1].Str)

	assert.Equal(t, float64(5000), attrs.Get("subject.approvalLimit.amount").Num)
	requireString(t, attrs, "subject.approvalLimit.currency", "EUR")
	assert.Equal(t, float64(3), attrs.Get("subject.tenureYears").Num)
	assert.True(t, attrs.Get("subject.onDuty").Bool)
}

func TestResolve_SuspendedSubject(t *testing.T) {
	subjects := &fakeSubjectStore{subjects: map[string]*model.Subject{
		"u-2": {ID: "u-2", Active: false, CreatedAt: testNow.AddDate(0, -6, 0)},
	}}
	r := newResolver(subjects, &fakeResourceStore{})

	attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{SubjectID: "u-2", ActionType: "read"})

	requireString(t, attrs, "subject.accountStatus", "suspended")
	assert.Equal(t, float64(0), attrs.Get("subject.tenureYears").Num)
}

func TestResolve_SubjectLookupFailureDegradesNamespace(t *testing.T) {
	subjects := &fakeSubjectStore{err: errors.New("store down")}
	r := newResolver(subjects, &fakeResourceStore{})

	attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{
		SubjectID: "u-1", ResourceType: "purchase_order", ActionType: "read",
	})

	// The identifier survives; everything looked up stays absent.
	requireString(t, attrs, "subject.id", "u-1")
	assert.False(t, attrs.Has("subject.accountStatus"))
	assert.False(t, attrs.Has("subject.role.name"))

	// The other namespaces are unaffected.
	requireString(t, attrs, "resource.type", "purchase_order")
	requireString(t, attrs, "action.name", "read")
}

func TestResolve_ResourceNamespace(t *testing.T) {
	resources := &fakeResourceStore{defs: map[string]*model.ResourceDefinition{
		"purchase_order": {
			Type:           "purchase_order",
			Category:       "procurement",
			Classification: "confidential",
			Attributes:     map[string]interface{}{"workflow": "two_step"},
		},
	}}
	r := newResolver(&fakeSubjectStore{}, resources)

	attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{
		SubjectID:    "u-1",
		ResourceType: "purchase_order",
		ResourceID:   "po-9",
		ActionType:   "read",
		ResourceAttributes: map[string]interface{}{
			"totalValue": map[string]interface{}{"amount": 3000.0},
			"workflow":   "single_step",
		},
	})

	requireString(t, attrs, "resource.type", "purchase_order")
	requireString(t, attrs, "resource.id", "po-9")
	requireString(t, attrs, "resource.category", "procurement")
	requireString(t, attrs, "resource.classification", "confidential")
	// Request attributes override definition defaults.
	requireString(t, attrs, "resource.workflow", "single_step")

	total := attrs.Get("resource.totalValue")
	require.Equal(t, model.KindObject, total.Kind)
	// Nested maps are flattened so conditions can address the leaf.
	assert.Equal(t, float64(3000), attrs.Get("resource.totalValue.amount").Num)
}

func TestResolve_UnknownResourceTypeDefaultsClassification(t *testing.T) {
	r := newResolver(&fakeSubjectStore{}, &fakeResourceStore{})

	attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{
		SubjectID: "u-1", ResourceType: "gadget", ActionType: "read",
	})

	requireString(t, attrs, "resource.type", "gadget")
	requireString(t, attrs, "resource.classification", model.DefaultClassification)
}

func TestResolve_EnvironmentNamespace(t *testing.T) {
	r := newResolver(&fakeSubjectStore{}, &fakeResourceStore{})

	attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{
		SubjectID:          "u-1",
		ResourceType:       "purchase_order",
		ActionType:         "read",
		EnvironmentContext: map[string]interface{}{"requestIP": "10.0.0.8"},
	})

	requireString(t, attrs, "environment.dayOfWeek", "Monday")
	requireString(t, attrs, "environment.requestIP", "10.0.0.8")
	assert.True(t, attrs.Get("environment.isBusinessHours").Bool, "10:00 falls inside the default 8-17 window")
	assert.True(t, attrs.Get("environment.timestamp").Date.Equal(testNow))
}

func TestResolve_RequestTimestampOverridesClock(t *testing.T) {
	r := newResolver(&fakeSubjectStore{}, &fakeResourceStore{})

	// Saturday, 22:00 UTC, well away from the fixed Monday-morning clock.
	at := time.Date(2026, 3, 7, 22, 0, 0, 0, time.UTC)
	attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{
		SubjectID: "u-1", ResourceType: "x", ActionType: "read", Timestamp: at,
	})

	requireString(t, attrs, "environment.dayOfWeek", "Saturday")
	assert.False(t, attrs.Get("environment.isBusinessHours").Bool)
	assert.True(t, attrs.Get("environment.timestamp").Date.Equal(at))
}

func TestResolve_BusinessHoursBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want bool
	}{
		{7, false},
		{8, true},
		{16, true},
		{17, false},
		{23, false},
	}

	for _, tt := range tests {
		clock := func() time.Time {
			return time.Date(2026, 3, 2, tt.hour, 30, 0, 0, time.UTC)
		}
		r := resolver.New(&fakeSubjectStore{}, &fakeResourceStore{}, resolver.Options{Clock: clock})
		attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{
			SubjectID: "u-1", ResourceType: "x", ActionType: "read",
		})
		assert.Equal(t, tt.want, attrs.Get("environment.isBusinessHours").Bool, "hour %d", tt.hour)
	}
}

func TestResolve_ActionNamespace(t *testing.T) {
	r := newResolver(&fakeSubjectStore{}, &fakeResourceStore{})

	tests := []struct {
		action           string
		wantType         string
		wantRisk         string
		requiresApproval bool
		auditRequired    bool
	}{
		{"read", "read", "low", false, false},
		{"update", "write", "medium", false, true},
		{"delete", "write", "high", true, true},
		{"approve", "approve", "high", true, true},
		// Compound names classify by their leading token.
		{"approve_department", "approve", "high", true, true},
		{"export_report", "export", "high", false, true},
		// Unknown actions default to read/medium.
		{"frobnicate", "read", "medium", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			attrs := r.Resolve(context.Background(), &pdp_model.EvaluationRequest{
				SubjectID: "u-1", ResourceType: "x", ActionType: tt.action,
			})

			requireString(t, attrs, "action.name", tt.action)
			requireString(t, attrs, "action.type", tt.wantType)
			requireString(t, attrs, "action.riskLevel", tt.wantRisk)
			assert.Equal(t, tt.requiresApproval, attrs.Get("action.requiresApproval").Bool)
			assert.Equal(t, tt.auditRequired, attrs.Get("action.auditRequired").Bool)
		})
	}
}
