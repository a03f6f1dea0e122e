package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arbiterhq/arbiter/builder"
	"github.com/arbiterhq/arbiter/dao"
	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/util"
)

// IPolicyService is the contract the policy controller programs against.
type IPolicyService interface {
	CreatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error)
	UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error)
	DeletePolicy(ctx context.Context, policyID string, userID string) error
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error)
	SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error)
	BulkCreatePolicies(ctx context.Context, policies []model.Policy, userID string) ([]string, error)
	BulkUpdateStatus(ctx context.Context, policyIDs []string, status model.PolicyStatus, userID string) (int, error)
	ChangePolicyStatus(ctx context.Context, policyID string, status model.PolicyStatus, userID string) (*model.Policy, error)
	ValidatePolicy(ctx context.Context, policy model.Policy, level builder.Level) builder.Result
}

// PolicyService handles business logic for policy operations
type PolicyService struct {
	policyDAO       *dao.PolicyDAO
	validator       *builder.Validator
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(policyDAO *dao.PolicyDAO, validator *builder.Validator, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *PolicyService {
	service := &PolicyService{
		policyDAO:       policyDAO,
		validator:       validator,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe(util.EventPolicyCreated, service.handlePolicyCreated)
	eventBus.Subscribe(util.EventPolicyUpdated, service.handlePolicyUpdated)
	eventBus.Subscribe(util.EventPolicyDeleted, service.handlePolicyDeleted)
	eventBus.Subscribe(util.EventPolicyStatusMoved, service.handlePolicyStatusChanged)

	return service
}

func (s *PolicyService) handlePolicyCreated(ctx context.Context, event util.Event) error {
	policy := event.Payload.(model.Policy)
	logger.Info("Policy created event received", zap.String("policyID", policy.ID))

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "created", policy); err != nil {
		logger.Warn("Failed to send policy creation notification", zap.Error(err), zap.String("policyID", policy.ID))
	}

	// Decisions cached against the old policy set are stale now.
	if err := s.cacheService.InvalidateDecisions(ctx); err != nil {
		logger.Error("Failed to invalidate decision cache", zap.Error(err), zap.String("policyID", policy.ID))
		return err
	}

	return nil
}

func (s *PolicyService) handlePolicyUpdated(ctx context.Context, event util.Event) error {
	payload, ok := event.Payload.(map[string]interface{})
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	newPolicy, ok := payload["new"].(model.Policy)
	if !ok {
		logger.Error("New policy not found in event payload", zap.Any("payload", payload))
		return errors.New("new policy not found in event payload")
	}

	logger.Info("Policy updated event received",
		zap.String("policyID", newPolicy.ID),
		zap.Int("version", newPolicy.Version))

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "updated", newPolicy); err != nil {
		logger.Warn("Failed to send policy update notification", zap.Error(err), zap.String("policyID", newPolicy.ID))
	}

	if err := s.cacheService.InvalidateDecisions(ctx); err != nil {
		logger.Error("Failed to invalidate decision cache", zap.Error(err), zap.String("policyID", newPolicy.ID))
		return err
	}

	return nil
}

func (s *PolicyService) handlePolicyDeleted(ctx context.Context, event util.Event) error {
	policyID, ok := event.Payload.(string)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	logger.Info("Policy deleted event received", zap.String("policyID", policyID))

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "deleted", model.Policy{ID: policyID}); err != nil {
		logger.Warn("Failed to send policy deletion notification", zap.Error(err), zap.String("policyID", policyID))
	}

	if err := s.cacheService.InvalidateDecisions(ctx); err != nil {
		logger.Error("Failed to invalidate decision cache", zap.Error(err), zap.String("policyID", policyID))
		return err
	}

	return nil
}

func (s *PolicyService) handlePolicyStatusChanged(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.Policy)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	logger.Info("Policy status changed event received",
		zap.String("policyID", policy.ID),
		zap.String("status", string(policy.Status)))

	if err := s.notificationSvc.NotifyPolicyChange(ctx, "status_changed", policy); err != nil {
		logger.Warn("Failed to send policy status notification", zap.Error(err), zap.String("policyID", policy.ID))
	}

	if err := s.cacheService.InvalidateDecisions(ctx); err != nil {
		logger.Error("Failed to invalidate decision cache", zap.Error(err), zap.String("policyID", policy.ID))
		return err
	}

	return nil
}

// CreatePolicy handles the creation of a new policy. A draft that fails
// comprehensive validation is rejected before touching the store.
func (s *PolicyService) CreatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	if policy.Status == "" {
		policy.Status = model.StatusDraft
	}
	if result := s.validator.Validate(policy, builder.LevelComprehensive); !result.IsValid {
		return nil, fmt.Errorf("%w: %d validation error(s)", arbiter_errors.ErrInvalidPolicyData, len(result.Errors))
	}
	if policy.Status == model.StatusActive {
		if err := s.checkActivationGate(policy); err != nil {
			return nil, err
		}
	}

	policy.CreatedAt = time.Now()
	policy.UpdatedAt = time.Now()
	policy.Version = 1

	policyID, err := s.policyDAO.CreatePolicy(ctx, policy, userID)
	if err != nil {
		logger.Error("Error creating policy", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	policy.ID = policyID

	// Update cache
	if err := s.cacheService.SetPolicy(ctx, policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, util.EventPolicyCreated, policy)

	logger.Info("Policy created successfully", zap.String("policyID", policyID), zap.String("userID", userID))
	return &policy, nil
}

// UpdatePolicy handles updates to an existing policy. Concurrent writers on
// the same policy are serialized through a redis lock.
func (s *PolicyService) UpdatePolicy(ctx context.Context, policy model.Policy, userID string) (*model.Policy, error) {
	if result := s.validator.Validate(policy, builder.LevelComprehensive); !result.IsValid {
		return nil, fmt.Errorf("%w: %d validation error(s)", arbiter_errors.ErrInvalidPolicyData, len(result.Errors))
	}

	locked, err := s.cacheService.LockPolicy(ctx, policy.ID, 10*time.Second)
	if err != nil {
		logger.Warn("Policy lock unavailable, proceeding without it", zap.Error(err), zap.String("policyID", policy.ID))
	} else if !locked {
		return nil, fmt.Errorf("%w: policy %s is being modified by another request", arbiter_errors.ErrPolicyConflict, policy.ID)
	} else {
		defer func() {
			if err := s.cacheService.UnlockPolicy(ctx, policy.ID); err != nil {
				logger.Warn("Failed to release policy lock", zap.Error(err), zap.String("policyID", policy.ID))
			}
		}()
	}

	oldPolicy, err := s.policyDAO.GetPolicy(ctx, policy.ID)
	if err != nil {
		logger.Error("Error retrieving existing policy", zap.Error(err), zap.String("policyID", policy.ID))
		return nil, err
	}

	if oldPolicy.Status == model.StatusArchived {
		return nil, arbiter_errors.ErrPolicyArchived
	}
	if policy.Status != oldPolicy.Status {
		if !oldPolicy.CanTransitionTo(policy.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", arbiter_errors.ErrInvalidStatusChange, oldPolicy.Status, policy.Status)
		}
		if policy.Status == model.StatusActive {
			if err := s.checkActivationGate(policy); err != nil {
				return nil, err
			}
		}
	}

	// Check if there are any differences between the old and new policies
	if !s.hasPolicyChanged(oldPolicy, &policy) {
		logger.Info("No changes detected in the policy, skipping update", zap.String("policyID", policy.ID))
		return oldPolicy, nil
	}

	policy.UpdatedAt = time.Now()
	policy.Version = oldPolicy.Version + 1

	updatedPolicy, err := s.policyDAO.UpdatePolicy(ctx, policy, userID)
	if err != nil {
		logger.Error("Error updating policy", zap.Error(err), zap.String("policyID", policy.ID), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}

	// Update cache
	if err := s.cacheService.SetPolicy(ctx, *updatedPolicy); err != nil {
		logger.Warn("Failed to update policy in cache", zap.Error(err), zap.String("policyID", policy.ID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, util.EventPolicyUpdated, map[string]interface{}{
		"old": *oldPolicy,
		"new": *updatedPolicy,
	})

	logger.Info("Policy updated successfully", zap.String("policyID", policy.ID), zap.String("userID", userID))
	return updatedPolicy, nil
}

// DeletePolicy handles the deletion of a policy
func (s *PolicyService) DeletePolicy(ctx context.Context, policyID string, userID string) error {
	err := s.policyDAO.DeletePolicy(ctx, policyID, userID)
	if err != nil {
		logger.Error("Error deleting policy", zap.Error(err), zap.String("policyID", policyID), zap.String("userID", userID))
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	// Remove from cache
	if err := s.cacheService.DeletePolicy(ctx, policyID); err != nil {
		logger.Warn("Failed to delete policy from cache", zap.Error(err), zap.String("policyID", policyID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, util.EventPolicyDeleted, policyID)

	logger.Info("Policy deleted successfully", zap.String("policyID", policyID), zap.String("userID", userID))
	return nil
}

// GetPolicy retrieves a policy by its ID
func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	// Try to get from cache first
	cachedPolicy, err := s.cacheService.GetPolicy(ctx, policyID)
	if err == nil && cachedPolicy != nil {
		return cachedPolicy, nil
	}

	policy, err := s.policyDAO.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, arbiter_errors.ErrPolicyNotFound) {
			return nil, arbiter_errors.ErrPolicyNotFound
		}
		logger.Error("Error retrieving policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, arbiter_errors.ErrInternalServer
	}

	// Update cache
	if err := s.cacheService.SetPolicy(ctx, *policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}

	return policy, nil
}

// ListPolicies retrieves all policies, possibly with pagination
func (s *PolicyService) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	policies, err := s.policyDAO.ListPolicies(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing policies", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	return policies, nil
}

// BulkCreatePolicies creates multiple policies in parallel
func (s *PolicyService) BulkCreatePolicies(ctx context.Context, policies []model.Policy, userID string) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	policyIDs := make([]string, len(policies))

	// Limit concurrency to avoid overwhelming the store
	semaphore := make(chan struct{}, 10)

	for i, policy := range policies {
		i, policy := i, policy
		g.Go(func() error {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			createdPolicy, err := s.CreatePolicy(ctx, policy, userID)
			if err != nil {
				return err
			}
			policyIDs[i] = createdPolicy.ID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Error in bulk create policies", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("failed to bulk create policies: %w", err)
	}

	logger.Info("Bulk create policies completed", zap.Int("count", len(policyIDs)), zap.String("userID", userID))
	return policyIDs, nil
}

// BulkUpdateStatus moves many policies to the same status. Every transition is
// checked against the lifecycle before any write happens.
func (s *PolicyService) BulkUpdateStatus(ctx context.Context, policyIDs []string, status model.PolicyStatus, userID string) (int, error) {
	for _, policyID := range policyIDs {
		policy, err := s.GetPolicy(ctx, policyID)
		if err != nil {
			return 0, err
		}
		if policy.Status == status {
			continue
		}
		if !policy.CanTransitionTo(status) {
			return 0, fmt.Errorf("%w: policy %s cannot move %s -> %s",
				arbiter_errors.ErrInvalidStatusChange, policyID, policy.Status, status)
		}
		if status == model.StatusActive {
			if err := s.checkActivationGate(*policy); err != nil {
				return 0, fmt.Errorf("policy %s: %w", policyID, err)
			}
		}
	}

	updated, err := s.policyDAO.BulkUpdateStatus(ctx, policyIDs, status, userID)
	if err != nil {
		logger.Error("Error in bulk status update", zap.Error(err), zap.String("userID", userID))
		return 0, fmt.Errorf("failed to bulk update status: %w", err)
	}

	for _, policyID := range policyIDs {
		if err := s.cacheService.DeletePolicy(ctx, policyID); err != nil {
			logger.Warn("Failed to evict policy from cache", zap.Error(err), zap.String("policyID", policyID))
		}
	}
	s.eventBus.Publish(ctx, util.EventPolicyStatusMoved, model.Policy{Status: status})

	return updated, nil
}

// ChangePolicyStatus moves one policy through its lifecycle.
func (s *PolicyService) ChangePolicyStatus(ctx context.Context, policyID string, status model.PolicyStatus, userID string) (*model.Policy, error) {
	policy, err := s.policyDAO.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	if policy.Status == status {
		return policy, nil
	}
	if !policy.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", arbiter_errors.ErrInvalidStatusChange, policy.Status, status)
	}
	if status == model.StatusActive {
		if err := s.checkActivationGate(*policy); err != nil {
			return nil, err
		}
	}

	policy.Status = status
	policy.UpdatedAt = time.Now()
	policy.Version++

	updatedPolicy, err := s.policyDAO.UpdatePolicy(ctx, *policy, userID)
	if err != nil {
		logger.Error("Error changing policy status",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.String("status", string(status)))
		return nil, fmt.Errorf("failed to change policy status: %w", err)
	}

	if err := s.cacheService.SetPolicy(ctx, *updatedPolicy); err != nil {
		logger.Warn("Failed to update policy in cache", zap.Error(err), zap.String("policyID", policyID))
	}

	s.eventBus.Publish(ctx, util.EventPolicyStatusMoved, *updatedPolicy)

	logger.Info("Policy status changed",
		zap.String("policyID", policyID),
		zap.String("status", string(status)),
		zap.String("userID", userID))
	return updatedPolicy, nil
}

// SearchPolicies searches for policies based on given criteria
func (s *PolicyService) SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	if criteria.MaxPriority > 0 && criteria.MinPriority > criteria.MaxPriority {
		return nil, fmt.Errorf("%w: min_priority exceeds max_priority", arbiter_errors.ErrInvalidSearchCriteria)
	}
	if criteria.FromDate != nil && criteria.ToDate != nil && criteria.FromDate.After(*criteria.ToDate) {
		return nil, fmt.Errorf("%w: from_date is after to_date", arbiter_errors.ErrInvalidSearchCriteria)
	}

	policies, err := s.policyDAO.SearchPolicies(ctx, criteria)
	if err != nil {
		logger.Error("Error searching policies", zap.Error(err), zap.Any("criteria", criteria))
		return nil, fmt.Errorf("failed to search policies: %w", err)
	}

	return policies, nil
}

// ValidatePolicy runs a policy draft through the validator without persisting
// anything.
func (s *PolicyService) ValidatePolicy(ctx context.Context, policy model.Policy, level builder.Level) builder.Result {
	return s.validator.Validate(policy, level)
}

// checkActivationGate enforces what a policy needs before it may serve
// decisions: zero validation errors at the comprehensive level and at least
// one rule.
func (s *PolicyService) checkActivationGate(policy model.Policy) error {
	if len(policy.Rules) == 0 {
		return fmt.Errorf("%w: an active policy needs at least one rule", arbiter_errors.ErrInvalidStatusChange)
	}
	probe := policy
	probe.Status = model.StatusActive
	if result := s.validator.Validate(probe, builder.LevelComprehensive); !result.IsValid {
		return fmt.Errorf("%w: activation blocked by %d validation error(s)",
			arbiter_errors.ErrInvalidStatusChange, len(result.Errors))
	}
	return nil
}

// hasPolicyChanged checks if there are any differences between the old and new policies
func (s *PolicyService) hasPolicyChanged(oldPolicy, newPolicy *model.Policy) bool {
	return oldPolicy.Name != newPolicy.Name ||
		oldPolicy.Description != newPolicy.Description ||
		oldPolicy.Effect != newPolicy.Effect ||
		oldPolicy.Priority != newPolicy.Priority ||
		oldPolicy.Status != newPolicy.Status ||
		oldPolicy.CombiningAlgorithm != newPolicy.CombiningAlgorithm ||
		!reflect.DeepEqual(oldPolicy.Target, newPolicy.Target) ||
		!reflect.DeepEqual(oldPolicy.Rules, newPolicy.Rules) ||
		!reflect.DeepEqual(oldPolicy.Obligations, newPolicy.Obligations) ||
		!reflect.DeepEqual(oldPolicy.Advice, newPolicy.Advice) ||
		!reflect.DeepEqual(oldPolicy.Tags, newPolicy.Tags)
}
