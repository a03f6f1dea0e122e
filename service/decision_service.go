package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arbiterhq/arbiter/audit"
	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/pdp/engine"
	pdp_model "github.com/arbiterhq/arbiter/pdp/model"
	"github.com/arbiterhq/arbiter/pdp/resolver"
	"github.com/arbiterhq/arbiter/util"
)

// ActivePolicyProvider loads the policy set a request is evaluated against.
type ActivePolicyProvider interface {
	FindActivePolicies(ctx context.Context) ([]*model.Policy, error)
}

// DecisionCache stores finished decisions keyed by request digest.
type DecisionCache interface {
	GetDecision(ctx context.Context, cacheKey string) (*pdp_model.Decision, error)
	SetDecision(ctx context.Context, cacheKey string, decision *pdp_model.Decision, ttl time.Duration) error
}

// IDecisionService is the contract the decision controller programs against.
type IDecisionService interface {
	Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (*pdp_model.Decision, error)
	QueryDecisions(ctx context.Context, from, to time.Time, subjectID, resourceType string) ([]audit.DecisionLog, error)
}

// DecisionService runs the full evaluation pipeline: decision cache lookup,
// attribute resolution, policy combination, then caching and audit of the
// outcome.
type DecisionService struct {
	policies        ActivePolicyProvider
	resolver        *resolver.Resolver
	evaluator       *engine.PolicyEvaluator
	cache           DecisionCache
	auditSvc        audit.Service
	notificationSvc *util.NotificationService

	cacheTTL    time.Duration
	evalTimeout time.Duration
}

func NewDecisionService(
	policies ActivePolicyProvider,
	attrResolver *resolver.Resolver,
	evaluator *engine.PolicyEvaluator,
	cache DecisionCache,
	auditSvc audit.Service,
	notificationSvc *util.NotificationService,
	cacheTTL time.Duration,
	evalTimeout time.Duration,
) *DecisionService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if evalTimeout <= 0 {
		evalTimeout = 500 * time.Millisecond
	}
	return &DecisionService{
		policies:        policies,
		resolver:        attrResolver,
		evaluator:       evaluator,
		cache:           cache,
		auditSvc:        auditSvc,
		notificationSvc: notificationSvc,
		cacheTTL:        cacheTTL,
		evalTimeout:     evalTimeout,
	}
}

// Evaluate answers one access request. Identical requests inside the cache
// TTL are served from the decision cache; everything else walks the full
// pipeline under the evaluation timeout.
func (s *DecisionService) Evaluate(ctx context.Context, req *pdp_model.EvaluationRequest) (*pdp_model.Decision, error) {
	if req.SubjectID == "" || req.ResourceType == "" || req.ActionType == "" {
		return nil, errors.New("subject_id, resource_type and action_type are required")
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	cacheKey := req.CacheKey()
	if s.cache != nil {
		cached, err := s.cache.GetDecision(ctx, cacheKey)
		if err != nil {
			logger.Warn("Decision cache lookup failed", zap.Error(err))
		} else if cached != nil {
			s.logDecisionAsync(req, cached, true)
			return cached, nil
		}
	}

	policies, err := s.policies.FindActivePolicies(ctx)
	if err != nil {
		logger.Error("Failed to load active policies", zap.Error(err))
		return nil, fmt.Errorf("failed to load active policies: %w", err)
	}

	evalCtx, cancel := context.WithTimeout(ctx, s.evalTimeout)
	defer cancel()

	attrs := s.resolver.Resolve(evalCtx, req)
	decision := s.evaluator.Evaluate(evalCtx, req, attrs, policies)

	if errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("Evaluation timed out",
			zap.String("subjectID", req.SubjectID),
			zap.String("actionType", req.ActionType),
			zap.Duration("timeout", s.evalTimeout))
		decision = &pdp_model.Decision{
			Effect:           pdp_model.DecisionNotApplicable,
			Reason:           "evaluation timed out",
			EvaluationTimeMs: decision.EvaluationTimeMs,
		}
	}

	if decision.ConflictDetected && s.notificationSvc != nil {
		if err := s.notificationSvc.NotifyDecisionConflict(ctx, req.SubjectID, req.ResourceType, req.ActionType, decision.MatchedPolicyIDs); err != nil {
			logger.Warn("Failed to notify decision conflict", zap.Error(err))
		}
	}

	if s.cache != nil && evalCtx.Err() == nil {
		if err := s.cache.SetDecision(ctx, cacheKey, decision, s.cacheTTL); err != nil {
			logger.Warn("Failed to cache decision", zap.Error(err))
		}
	}

	s.logDecisionAsync(req, decision, false)
	return decision, nil
}

// QueryDecisions exposes the decision audit trail.
func (s *DecisionService) QueryDecisions(ctx context.Context, from, to time.Time, subjectID, resourceType string) ([]audit.DecisionLog, error) {
	return s.auditSvc.QueryDecisions(ctx, from, to, subjectID, resourceType)
}

// logDecisionAsync writes the audit record off the request path; an audit
// outage must not delay or fail the decision.
func (s *DecisionService) logDecisionAsync(req *pdp_model.EvaluationRequest, decision *pdp_model.Decision, cacheHit bool) {
	if s.auditSvc == nil {
		return
	}
	entry := audit.DecisionLog{
		Timestamp:        time.Now(),
		SubjectID:        req.SubjectID,
		ResourceType:     req.ResourceType,
		ResourceID:       req.ResourceID,
		ActionType:       req.ActionType,
		Effect:           string(decision.Effect),
		MatchedPolicyIDs: decision.MatchedPolicyIDs,
		ConflictDetected: decision.ConflictDetected,
		Reason:           decision.Reason,
		EvaluationTimeMs: decision.EvaluationTimeMs,
		CacheHit:         cacheHit,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.auditSvc.LogDecision(ctx, entry); err != nil {
			logger.Error("Failed to write decision audit log", zap.Error(err))
		}
	}()
}
