// controller/decision_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	pdp_model "github.com/arbiterhq/arbiter/pdp/model"
	"github.com/arbiterhq/arbiter/service"
	"github.com/arbiterhq/arbiter/util"
	helper_util "github.com/arbiterhq/arbiter/util/helper"
)

type DecisionController struct {
	decisionService service.IDecisionService
}

func NewDecisionController(decisionService service.IDecisionService) *DecisionController {
	return &DecisionController{
		decisionService: decisionService,
	}
}

// RegisterRoutes registers the API routes
func (dc *DecisionController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/evaluate", dc.Evaluate)
	r.GET("/decisions", dc.QueryDecisions)
}

// Evaluate endpoint answers one access request.
func (dc *DecisionController) Evaluate(c *gin.Context) {
	var req pdp_model.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid evaluation request", err)
		return
	}
	if req.SubjectID == "" || req.ResourceType == "" || req.ActionType == "" {
		util.RespondWithError(c, http.StatusBadRequest,
			"subject_id, resource_type and action_type are required", nil)
		return
	}

	decision, err := dc.decisionService.Evaluate(c, &req)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate request", err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// QueryDecisions endpoint exposes the decision audit trail.
func (dc *DecisionController) QueryDecisions(c *gin.Context) {
	from := time.Now().Add(-24 * time.Hour)
	to := time.Now()

	if v := c.Query("from"); v != "" {
		parsed, err := helper_util.ParseTime(v)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid from timestamp", err)
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := helper_util.ParseTime(v)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid to timestamp", err)
			return
		}
		to = parsed
	}

	logs, err := dc.decisionService.QueryDecisions(c, from, to, c.Query("subject_id"), c.Query("resource_type"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query decisions", err)
		return
	}

	c.JSON(http.StatusOK, logs)
}
