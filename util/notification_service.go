// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/arbiterhq/arbiter/logging"
	"github.com/arbiterhq/arbiter/model"
)

type NotificationService struct {
	// A message queue client could back this later
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyPolicyChange(ctx context.Context, changeType string, policy model.Policy) error {
	switch changeType {
	case "created":
		logger.Info("NOTIFICATION: New policy created",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name))
	case "updated":
		logger.Info("NOTIFICATION: Policy updated",
			zap.String("policyID", policy.ID),
			zap.String("policyName", policy.Name))
	case "deleted":
		logger.Info("NOTIFICATION: Policy deleted",
			zap.String("policyID", policy.ID))
	case "status_changed":
		logger.Info("NOTIFICATION: Policy status changed",
			zap.String("policyID", policy.ID),
			zap.String("status", string(policy.Status)))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	return nil
}

func (n *NotificationService) NotifyAdmins(ctx context.Context, message string) error {
	logger.Info("Notifying admins", zap.String("message", message))
	return nil
}

// NotifyDecisionConflict flags only_one_applicable conflicts to operators so
// overlapping policies get cleaned up.
func (n *NotificationService) NotifyDecisionConflict(ctx context.Context, subjectID, resourceType, actionType string, policyIDs []string) error {
	logger.Warn("NOTIFICATION: Conflicting applicable policies detected",
		zap.String("subjectID", subjectID),
		zap.String("resourceType", resourceType),
		zap.String("actionType", actionType),
		zap.Strings("policyIDs", policyIDs))
	return n.NotifyAdmins(ctx, fmt.Sprintf(
		"policy conflict for subject %s on %s/%s: %v", subjectID, resourceType, actionType, policyIDs))
}
