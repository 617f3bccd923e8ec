package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/coursehub/enrollment-api/internal/application"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
	"github.com/coursehub/enrollment-api/pkg/response"
	"github.com/coursehub/enrollment-api/pkg/validation"
)

// EnrollmentService is the enrollment side of the application used by
// EnrollmentHandler.
type EnrollmentService interface {
	Enroll(ctx context.Context, userID string, courseIDs []string) (*app.EnrollResult, error)
	ListByUser(ctx context.Context, userID string) (*app.UserEnrollments, error)
}

type EnrollmentHandler struct {
	Svc      EnrollmentService
	Logger   *logrus.Logger
	MaxBatch int
}

func NewEnrollmentHandler(svc EnrollmentService, logger *logrus.Logger, maxBatch int) *EnrollmentHandler {
	return &EnrollmentHandler{Svc: svc, Logger: logger, MaxBatch: maxBatch}
}

type enrollRequest struct {
	CourseIDs []string `json:"courseIds" binding:"required,min=1,dive,notblank"`
}

// Enroll POST /api/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if h.MaxBatch > 0 && len(req.CourseIDs) > h.MaxBatch {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{
			"courseIds": fmt.Sprintf("must contain at most %d items", h.MaxBatch),
		})
		return
	}

	res, err := h.Svc.Enroll(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.CourseIDs)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toEnrollResponse(res), "enrollment processed", nil)
}

// List GET /api/enrollments
func (h *EnrollmentHandler) List(c *gin.Context) {
	res, err := h.Svc.ListByUser(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserEnrollmentsResponse(res), "enrollments", nil)
}
