package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/coursehub/enrollment-api/internal/application"
	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
	"github.com/coursehub/enrollment-api/pkg/response"
	"github.com/coursehub/enrollment-api/pkg/validation"
)

// Listing defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// CourseService is the course side of the application used by CourseHandler.
type CourseService interface {
	Create(ctx context.Context, caller app.Caller, in app.CreateCourseInput) (*entity.Course, error)
	Get(ctx context.Context, id string) (*entity.Course, error)
	List(ctx context.Context, page, limit int, sortKey string) (*app.CoursePage, error)
	Search(ctx context.Context, q string, size int) ([]entity.Course, error)
}

type CourseHandler struct {
	Svc    CourseService
	Logger *logrus.Logger
}

func NewCourseHandler(svc CourseService, logger *logrus.Logger) *CourseHandler {
	return &CourseHandler{Svc: svc, Logger: logger}
}

type createCourseRequest struct {
	Title       string `json:"title" binding:"required,notblank,max=200"`
	MaxStudents int    `json:"maxStudents" binding:"gte=1"`
	Price       int64  `json:"price" binding:"gte=0"`
}

func callerFrom(c *gin.Context) app.Caller {
	return app.Caller{
		UserID: c.GetString(middleware.CtxUserIDKey),
		Role:   entity.Role(c.GetString(middleware.CtxRoleKey)),
	}
}

// positiveInt parses s, returning def when s is missing, malformed or below 1.
func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Create POST /api/courses
func (h *CourseHandler) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	course, err := h.Svc.Create(c.Request.Context(), callerFrom(c), app.CreateCourseInput{
		Title:    req.Title,
		Capacity: req.MaxStudents,
		Price:    req.Price,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toCourseResponse(course), "course created", nil)
}

// List GET /api/courses?page&limit&sortBy
func (h *CourseHandler) List(c *gin.Context) {
	page := positiveInt(c.Query("page"), DefaultPage)
	limit := positiveInt(c.Query("limit"), DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	sortBy := c.DefaultQuery("sortBy", app.SortRecent)

	res, err := h.Svc.List(c.Request.Context(), page, limit, sortBy)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, CourseListResponse{
		Items: toCourseResponses(res.Items),
		Pagination: PaginationResponse{
			Page:    res.Pagination.Page,
			Limit:   res.Pagination.Limit,
			Total:   res.Pagination.Total,
			HasMore: res.Pagination.HasMore,
		},
	}, "courses", nil)
}

// Get GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toCourseResponse(course), "course", nil)
}

// Search GET /api/courses/search?q&size
func (h *CourseHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	list, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toCourseResponses(list), "search results", nil)
}
