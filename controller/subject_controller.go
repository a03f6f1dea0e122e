// controller/subject_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arbiterhq/arbiter/dao"
	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	"github.com/arbiterhq/arbiter/model"
	"github.com/arbiterhq/arbiter/util"
	helper_util "github.com/arbiterhq/arbiter/util/helper"
)

type SubjectController struct {
	subjects *dao.SubjectDAO
}

func NewSubjectController(subjects *dao.SubjectDAO) *SubjectController {
	return &SubjectController{subjects: subjects}
}

// RegisterRoutes registers the API routes
func (sc *SubjectController) RegisterRoutes(r *gin.RouterGroup) {
	subjects := r.Group("/subjects")
	{
		subjects.PUT("/:id", sc.UpsertSubject)
		subjects.GET("/:id", sc.GetSubject)
		subjects.DELETE("/:id", sc.DeleteSubject)
		subjects.GET("", sc.ListSubjects)
	}
}

// UpsertSubject endpoint
func (sc *SubjectController) UpsertSubject(c *gin.Context) {
	var subject model.Subject
	if err := c.ShouldBindJSON(&subject); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid subject data", err)
		return
	}
	subject.ID = c.Param("id")

	if _, err := sc.subjects.UpsertSubject(c, subject); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to upsert subject", err)
		return
	}

	c.JSON(http.StatusOK, subject)
}

// GetSubject endpoint
func (sc *SubjectController) GetSubject(c *gin.Context) {
	subject, err := sc.subjects.GetSubject(c, c.Param("id"))
	if err != nil {
		if errors.Is(err, arbiter_errors.ErrSubjectNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Subject not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve subject", err)
		}
		return
	}
	c.JSON(http.StatusOK, subject)
}

// DeleteSubject endpoint
func (sc *SubjectController) DeleteSubject(c *gin.Context) {
	if err := sc.subjects.DeleteSubject(c, c.Param("id")); err != nil {
		if errors.Is(err, arbiter_errors.ErrSubjectNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Subject not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete subject", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubjects endpoint
func (sc *SubjectController) ListSubjects(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	subjects, err := sc.subjects.ListSubjects(c, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list subjects", err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}
