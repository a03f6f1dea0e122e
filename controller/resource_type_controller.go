// controller/resource_type_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arbiterhq/arbiter/dao"
	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/util"
)

type ResourceTypeController struct {
	resourceTypes *dao.ResourceTypeDAO
}

func NewResourceTypeController(resourceTypes *dao.ResourceTypeDAO) *ResourceTypeController {
	return &ResourceTypeController{resourceTypes: resourceTypes}
}

// RegisterRoutes registers the API routes
func (rc *ResourceTypeController) RegisterRoutes(r *gin.RouterGroup) {
	resourceTypes := r.Group("/resource-types")
	{
		resourceTypes.PUT("/:type", rc.UpsertResourceDefinition)
		resourceTypes.GET("/:type", rc.GetResourceDefinition)
		resourceTypes.DELETE("/:type", rc.DeleteResourceDefinition)
		resourceTypes.GET("", rc.ListResourceDefinitions)
	}
}

// UpsertResourceDefinition endpoint
func (rc *ResourceTypeController) UpsertResourceDefinition(c *gin.Context) {
	var def model.ResourceDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid resource definition", err)
		return
	}
	def.Type = c.Param("type")

	if _, err := rc.resourceTypes.UpsertResourceDefinition(c, def); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to upsert resource definition", err)
		return
	}

	c.JSON(http.StatusOK, def)
}

// GetResourceDefinition endpoint
func (rc *ResourceTypeController) GetResourceDefinition(c *gin.Context) {
	def, err := rc.resourceTypes.GetResourceDefinition(c, c.Param("type"))
	if err != nil {
		if errors.Is(err, arbiter_errors.ErrResourceDefinitionNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Resource definition not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve resource definition", err)
		}
		return
	}
	c.JSON(http.StatusOK, def)
}

// DeleteResourceDefinition endpoint
func (rc *ResourceTypeController) DeleteResourceDefinition(c *gin.Context) {
	if err := rc.resourceTypes.DeleteResourceDefinition(c, c.Param("type")); err != nil {
		if errors.Is(err, arbiter_errors.ErrResourceDefinitionNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Resource definition not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete resource definition", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// ListResourceDefinitions endpoint
func (rc *ResourceTypeController) ListResourceDefinitions(c *gin.Context) {
	defs, err := rc.resourceTypes.ListResourceDefinitions(c)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list resource definitions", err)
		return
	}
	c.JSON(http.StatusOK, defs)
}
