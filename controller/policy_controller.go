// controller/policy_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arbiterhq/arbiter/builder"
	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/service"
	"github.com/arbiterhq/arbiter/util"
	helper_util "github.com/arbiterhq/arbiter/util/helper"
)

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/policies")
	{
		policies.POST("", pc.CreatePolicy)
		policies.PUT("/:id", pc.UpdatePolicy)
		policies.DELETE("/:id", pc.DeletePolicy)
		policies.GET("/:id", pc.GetPolicy)
		policies.GET("", pc.ListPolicies)
		policies.POST("/search", pc.SearchPolicies)
		policies.POST("/validate", pc.ValidatePolicy)
		policies.POST("/bulk-status", pc.BulkUpdateStatus)
		policies.PUT("/:id/activate", pc.ActivatePolicy)
		policies.PUT("/:id/deactivate", pc.DeactivatePolicy)
		policies.PUT("/:id/archive", pc.ArchivePolicy)
	}
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", arbiter_errors.ErrInvalidPolicyData)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", arbiter_errors.ErrUnauthorized)
		return
	}

	createdPolicy, err := pc.policyService.CreatePolicy(c, policy, userID)
	if err != nil {
		switch {
		case errors.Is(err, arbiter_errors.ErrDuplicatePolicyName):
			util.RespondWithError(c, http.StatusConflict, "Policy name already in use", err)
		case errors.Is(err, arbiter_errors.ErrPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
		case errors.Is(err, arbiter_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Policy failed validation", err)
		case errors.Is(err, arbiter_errors.ErrDatabaseOperation):
			util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create policy", arbiter_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, createdPolicy)
}

// UpdatePolicy endpoint
func (pc *PolicyController) UpdatePolicy(c *gin.Context) {
	policyID := c.Param("id")
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		return
	}
	policy.ID = policyID
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updatedPolicy, err := pc.policyService.UpdatePolicy(c, policy, userID)
	if err != nil {
		switch {
		case errors.Is(err, arbiter_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		case errors.Is(err, arbiter_errors.ErrPolicyArchived):
			util.RespondWithError(c, http.StatusConflict, "Archived policies cannot change", err)
		case errors.Is(err, arbiter_errors.ErrInvalidStatusChange):
			util.RespondWithError(c, http.StatusConflict, "Invalid status transition", err)
		case errors.Is(err, arbiter_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Policy failed validation", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedPolicy)
}

// DeletePolicy endpoint
func (pc *PolicyController) DeletePolicy(c *gin.Context) {
	policyID := c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := pc.policyService.DeletePolicy(c, policyID, userID); err != nil {
		if errors.Is(err, arbiter_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policyID := c.Param("id")

	policy, err := pc.policyService.GetPolicy(c, policyID)
	if err != nil {
		if errors.Is(err, arbiter_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, policy)
}

// ListPolicies endpoint
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	policies, err := pc.policyService.ListPolicies(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	c.JSON(http.StatusOK, policies)
}

// SearchPolicies endpoint
func (pc *PolicyController) SearchPolicies(c *gin.Context) {
	var criteria model.PolicySearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid search criteria", err)
		return
	}

	policies, err := pc.policyService.SearchPolicies(c, criteria)
	if err != nil {
		if errors.Is(err, arbiter_errors.ErrInvalidSearchCriteria) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid search criteria", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to search policies", err)
		}
		return
	}

	c.JSON(http.StatusOK, policies)
}

// ValidatePolicy endpoint runs a draft through the validator without saving.
func (pc *PolicyController) ValidatePolicy(c *gin.Context) {
	var body struct {
		Policy model.Policy  `json:"policy"`
		Level  builder.Level `json:"level"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		return
	}
	if body.Level == "" {
		body.Level = builder.LevelComprehensive
	}

	result := pc.policyService.ValidatePolicy(c, body.Policy, body.Level)
	c.JSON(http.StatusOK, result)
}

// BulkUpdateStatus endpoint
func (pc *PolicyController) BulkUpdateStatus(c *gin.Context) {
	var body struct {
		PolicyIDs []string           `json:"policy_ids" binding:"required"`
		Status    model.PolicyStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid bulk status request", err)
		return
	}
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	updated, err := pc.policyService.BulkUpdateStatus(c, body.PolicyIDs, body.Status, userID)
	if err != nil {
		switch {
		case errors.Is(err, arbiter_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		case errors.Is(err, arbiter_errors.ErrInvalidStatusChange):
			util.RespondWithError(c, http.StatusConflict, "Invalid status transition", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update policy statuses", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// ActivatePolicy endpoint
func (pc *PolicyController) ActivatePolicy(c *gin.Context) {
	pc.changeStatus(c, model.StatusActive)
}

// DeactivatePolicy endpoint
func (pc *PolicyController) DeactivatePolicy(c *gin.Context) {
	pc.changeStatus(c, model.StatusInactive)
}

// ArchivePolicy endpoint
func (pc *PolicyController) ArchivePolicy(c *gin.Context) {
	pc.changeStatus(c, model.StatusArchived)
}

func (pc *PolicyController) changeStatus(c *gin.Context, status model.PolicyStatus) {
	policyID := c.Param("id")
	userID, err := util.GetUserIDFromContext(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	policy, err := pc.policyService.ChangePolicyStatus(c, policyID, status, userID)
	if err != nil {
		switch {
		case errors.Is(err, arbiter_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		case errors.Is(err, arbiter_errors.ErrInvalidStatusChange):
			util.RespondWithError(c, http.StatusConflict, "Invalid status transition", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to change policy status", err)
		}
		return
	}

	c.JSON(http.StatusOK, policy)
}
