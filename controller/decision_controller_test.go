// controller/decision_controller_test.go
package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/audit"
	"github.com/arbiterhq/arbiter/controller"
	pdp_model "github.com/arbiterhq/arbiter/pdp/model"
)

type fakeDecisionService struct {
	evaluateFn func(ctx context.Context, req *pdp_model.EvaluationRequest) (*pdp_model.Decision, error)
	queryFn    func(ctx context.Context, from, to time.Time, subjectID, resourceType string) ([]audit.DecisionLog, error)
}

func (f *fakeDecisionService) Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (*pdp_model.Decision, error) {
	return f.evaluateFn(ctx, req)
}

func (f *fakeDecisionService) QueryDecisions(ctx context.Context, from, to time.Time, subjectID, resourceType string) ([]audit.DecisionLog, error) {
	return f.queryFn(ctx, from, to, subjectID, resourceType)
}

func setupDecisionRouter(svc *fakeDecisionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	controller.NewDecisionController(svc).RegisterRoutes(api)
	return r
}

func TestEvaluateEndpoint(t *testing.T) {
	t.Run("permit decision", func(t *testing.T) {
		svc := &fakeDecisionService{
			evaluateFn: func(ctx context.Context, req *pdp_model.EvaluationRequest) (*pdp_model.Decision, error) {
				assert.Equal(t, "u-1", req.SubjectID)
				assert.Equal(t, "approve_department", req.ActionType)
				return &pdp_model.Decision{
					Effect:           pdp_model.DecisionPermit,
					MatchedPolicyIDs: []string{"pol-approve"},
				}, nil
			},
		}
		router := setupDecisionRouter(svc)

		body := `{"subject_id":"u-1","resource_type":"purchase_order","resource_id":"po-9","action_type":"approve_department"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var decision pdp_model.Decision
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.Equal(t, pdp_model.DecisionPermit, decision.Effect)
		assert.Equal(t, []string{"pol-approve"}, decision.MatchedPolicyIDs)
	})

	t.Run("missing required fields", func(t *testing.T) {
		svc := &fakeDecisionService{
			evaluateFn: func(ctx context.Context, req *pdp_model.EvaluationRequest) (*pdp_model.Decision, error) {
				t.Fatal("service must not be called for an incomplete request")
				return nil, nil
			},
		}
		router := setupDecisionRouter(svc)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", strings.NewReader(`{"subject_id":"u-1"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := setupDecisionRouter(&fakeDecisionService{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQueryDecisionsEndpoint(t *testing.T) {
	t.Run("explicit window and filters", func(t *testing.T) {
		from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

		svc := &fakeDecisionService{
			queryFn: func(ctx context.Context, gotFrom, gotTo time.Time, subjectID, resourceType string) ([]audit.DecisionLog, error) {
				assert.True(t, gotFrom.Equal(from))
				assert.True(t, gotTo.Equal(to))
				assert.Equal(t, "u-1", subjectID)
				assert.Equal(t, "purchase_order", resourceType)
				return []audit.DecisionLog{{SubjectID: "u-1", Effect: "deny"}}, nil
			},
		}
		router := setupDecisionRouter(svc)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/api/v1/decisions?from=2026-03-01T00:00:00Z&to=2026-03-02T00:00:00Z&subject_id=u-1&resource_type=purchase_order", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var logs []audit.DecisionLog
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
		require.Len(t, logs, 1)
		assert.Equal(t, "deny", logs[0].Effect)
	})

	t.Run("defaults to the last day", func(t *testing.T) {
		svc := &fakeDecisionService{
			queryFn: func(ctx context.Context, from, to time.Time, subjectID, resourceType string) ([]audit.DecisionLog, error) {
				assert.WithinDuration(t, time.Now().Add(-24*time.Hour), from, time.Minute)
				assert.WithinDuration(t, time.Now(), to, time.Minute)
				return nil, nil
			},
		}
		router := setupDecisionRouter(svc)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/decisions", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid timestamp", func(t *testing.T) {
		router := setupDecisionRouter(&fakeDecisionService{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/decisions?from=yesterday", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
