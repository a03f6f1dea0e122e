// controller/catalog_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arbiterhq/arbiter/catalog"
	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/util"
)

type CatalogController struct {
	catalog *catalog.Catalog
}

func NewCatalogController(cat *catalog.Catalog) *CatalogController {
	return &CatalogController{catalog: cat}
}

// RegisterRoutes registers the API routes
func (cc *CatalogController) RegisterRoutes(r *gin.RouterGroup) {
	attributes := r.Group("/attributes")
	{
		attributes.GET("", cc.ListAttributes)
		attributes.GET("/:path", cc.GetAttribute)
		attributes.POST("", cc.RegisterAttribute)
	}
}

// ListAttributes endpoint lists registered attribute definitions, optionally
// filtered by category.
func (cc *CatalogController) ListAttributes(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		c.JSON(http.StatusOK, cc.catalog.ListByCategory(model.Category(category)))
		return
	}
	c.JSON(http.StatusOK, cc.catalog.List())
}

// GetAttribute endpoint
func (cc *CatalogController) GetAttribute(c *gin.Context) {
	def, ok := cc.catalog.Lookup(c.Param("path"))
	if !ok {
		util.RespondWithError(c, http.StatusNotFound, "Attribute not registered", arbiter_errors.ErrAttributeNotRegistered)
		return
	}
	c.JSON(http.StatusOK, def)
}

// RegisterAttribute endpoint
func (cc *CatalogController) RegisterAttribute(c *gin.Context) {
	var def model.AttributeDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid attribute definition", err)
		return
	}

	if err := cc.catalog.Register(def); err != nil {
		if errors.Is(err, arbiter_errors.ErrAttributeExists) {
			util.RespondWithError(c, http.StatusConflict, "Attribute already registered", err)
		} else {
			util.RespondWithError(c, http.StatusBadRequest, "Failed to register attribute", err)
		}
		return
	}

	c.JSON(http.StatusCreated, def)
}
