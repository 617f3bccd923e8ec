package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/coursehub/enrollment-api/internal/application"
	"github.com/coursehub/enrollment-api/pkg/response"
)

// writeError maps application errors onto HTTP statuses. Anything it does not
// recognize is logged and reported as a generic 500.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var dup *app.DuplicateEnrollmentError
	switch {
	case errors.As(err, &dup):
		response.Error[any](c, http.StatusConflict, dup.Error(), gin.H{"alreadyEnrolledCourseIds": dup.CourseIDs})
	case errors.Is(err, app.ErrEmailTaken), errors.Is(err, app.ErrPhoneTaken):
		response.Error[any](c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, app.ErrUnauthorized):
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, app.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, app.ErrForbidden):
		response.Error[any](c, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, app.ErrCourseNotFound), errors.Is(err, app.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, app.ErrEnrollmentBusy):
		response.Unavailable(c, time.Second, err.Error())
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString(response.RequestIDKey),
			"path":       c.FullPath(),
		}).Error("request failed")
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}
