package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/coursehub/enrollment-api/internal/application"
	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/infrastructure/memory"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/lock"
	"github.com/coursehub/enrollment-api/pkg/validation"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

type testEnv struct {
	engine *gin.Engine
	store  *memory.Store
	auth   *app.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	store := memory.NewStore()
	logger := helpers.NewDiscardLogger()
	jwt := helpers.NewJWTManager("test-access", "test-refresh", time.Hour, 24*time.Hour)

	authSvc := app.NewService(store.Users(), jwt, nil, logger)
	courseSvc := app.NewCourseService(store.Users(), store.Courses(), logger)
	enrollSvc := app.NewEnrollmentService(store.Users(), store.Courses(), store.Enrollments(), lock.NewKeyedMutex(), time.Second, logger)

	authCfg := middleware.AuthConfig{JWT: jwt, Sessions: authSvc, TrustHeaders: true}
	ah := NewAuthHandler(authSvc, logger, helpers.NewCookie("localhost", false))
	ch := NewCourseHandler(courseSvc, logger)
	eh := NewEnrollmentHandler(enrollSvc, logger, 3)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api")
	api.POST("/auth/signup", ah.Signup)
	api.POST("/auth/login", ah.Login)
	api.POST("/auth/refresh", ah.Refresh)
	api.POST("/auth/logout", middleware.Auth(authCfg), ah.Logout)
	api.GET("/auth/me", middleware.Auth(authCfg), ah.Me)
	api.GET("/courses", ch.List)
	api.GET("/courses/search", ch.Search)
	api.GET("/courses/:id", ch.Get)
	api.POST("/courses", middleware.Auth(authCfg), middleware.RequireRole(entity.RoleInstructor), ch.Create)
	api.POST("/enrollments", middleware.Auth(authCfg), eh.Enroll)
	api.GET("/enrollments", middleware.Auth(authCfg), eh.List)
	api.GET("/healthz", NewHealthHandler(nil).Health)

	return &testEnv{engine: r, store: store, auth: authSvc}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func as(userID string, role entity.Role) map[string]string {
	return map[string]string{middleware.HeaderUserID: userID, middleware.HeaderUserType: role.String()}
}

func (e *testEnv) addCourse(t *testing.T, id string, capacity, seats int, created time.Time) {
	t.Helper()
	c := &entity.Course{
		ID: id, Title: "Course " + id, Capacity: capacity, Price: 10000,
		InstructorID: "inst", InstructorName: "Lee", SeatsFilled: seats,
		CreatedAt: created, UpdatedAt: created,
	}
	c.EnrollmentRate = float64(seats) / float64(capacity)
	require.NoError(t, e.store.Courses().Create(context.Background(), c))
}

var validSignup = map[string]any{
	"name":     "Kim",
	"email":    "kim@test.com",
	"phone":    "010-1234-5678",
	"password": "abc123",
	"userType": "STUDENT",
}

func TestSignup_CreatesUserWithoutPassword(t *testing.T) {
	env := newTestEnv(t)

	w, res := env.do(t, http.MethodPost, "/api/auth/signup", validSignup, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, res.Success)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "abc123")
	var u UserResponse
	require.NoError(t, json.Unmarshal(res.Data, &u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "kim@test.com", u.Email)
	assert.Equal(t, "STUDENT", u.UserType)
}

func TestSignup_DuplicateEmailAndPhone(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodPost, "/api/auth/signup", validSignup, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, res := env.do(t, http.MethodPost, "/api/auth/signup", validSignup, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, app.ErrEmailTaken.Error(), res.Message)

	other := map[string]any{}
	for k, v := range validSignup {
		other[k] = v
	}
	other["email"] = "other@test.com"
	w, res = env.do(t, http.MethodPost, "/api/auth/signup", other, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, app.ErrPhoneTaken.Error(), res.Message)
}

func TestSignup_ValidationDetails(t *testing.T) {
	env := newTestEnv(t)
	bad := map[string]any{
		"name":     " ",
		"email":    "not-an-email",
		"phone":    "01012345678",
		"password": "abcdef",
		"userType": "ADMIN",
	}

	w, res := env.do(t, http.MethodPost, "/api/auth/signup", bad, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var details map[string]string
	require.NoError(t, json.Unmarshal(res.Error, &details))
	for _, field := range []string{"name", "email", "phone", "password", "userType"} {
		assert.Contains(t, details, field)
	}
}

func TestLogin_IssuesTokensUsableForMe(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/auth/signup", validSignup, nil)

	w, res := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "KIM@test.com", "password": "abc123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var meta struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(res.Meta, &meta))
	require.NotEmpty(t, meta.AccessToken)
	assert.NotEmpty(t, w.Result().Cookies())

	w, res = env.do(t, http.MethodGet, "/api/auth/me", nil, map[string]string{"Authorization": "Bearer " + meta.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	var u UserResponse
	require.NoError(t, json.Unmarshal(res.Data, &u))
	assert.Equal(t, "Kim", u.Name)

	w, _ = env.do(t, http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": meta.RefreshToken}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/auth/signup", validSignup, nil)

	w, _ := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "kim@test.com", "password": "nope12"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ghost@test.com", "password": "nope12"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_MissingToken(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodPost, "/api/auth/refresh", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateCourse_Roles(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{"title": "Go in Practice", "maxStudents": 30, "price": 50000}

	w, _ := env.do(t, http.MethodPost, "/api/courses", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/courses", body, as("stu-1", entity.RoleStudent))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, res := env.do(t, http.MethodPost, "/api/courses", body, as("inst-1", entity.RoleInstructor))
	require.Equal(t, http.StatusCreated, w.Code)
	var c CourseResponse
	require.NoError(t, json.Unmarshal(res.Data, &c))
	assert.Equal(t, "Go in Practice", c.Title)
	assert.Equal(t, 30, c.MaxStudents)
	assert.Equal(t, "inst-1", c.InstructorID)
	assert.Equal(t, app.UnknownInstructor, c.InstructorName)
	assert.Zero(t, c.CurrentStudents)
	assert.Equal(t, entity.CourseStatusOpen, c.Status)
}

func TestCreateCourse_Validation(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]map[string]any{
		"blank title":  {"title": "  ", "maxStudents": 10, "price": 0},
		"zero seats":   {"title": "T", "maxStudents": 0, "price": 0},
		"negative fee": {"title": "T", "maxStudents": 1, "price": -1},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w, _ := env.do(t, http.MethodPost, "/api/courses", body, as("inst-1", entity.RoleInstructor))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListCourses_Pagination(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 45; i++ {
		env.addCourse(t, fmt.Sprintf("c-%02d", i), 10, 0, base.Add(time.Duration(i)*time.Hour))
	}

	page := func(q string) CourseListResponse {
		w, res := env.do(t, http.MethodGet, "/api/courses"+q, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var out CourseListResponse
		require.NoError(t, json.Unmarshal(res.Data, &out))
		return out
	}

	p1 := page("?page=1&limit=20")
	assert.Len(t, p1.Items, 20)
	assert.Equal(t, PaginationResponse{Page: 1, Limit: 20, Total: 45, HasMore: true}, p1.Pagination)
	assert.Equal(t, "c-45", p1.Items[0].ID)

	p3 := page("?page=3&limit=20")
	assert.Len(t, p3.Items, 5)
	assert.False(t, p3.Pagination.HasMore)

	past := page("?page=9&limit=20")
	assert.Empty(t, past.Items)
	assert.NotNil(t, past.Items)

	huge := page("?page=9223372036854775807&limit=100")
	assert.Empty(t, huge.Items)
	assert.Equal(t, PaginationResponse{Page: math.MaxInt, Limit: 100, Total: 45, HasMore: false}, huge.Pagination)

	overflow := page("?page=99999999999999999999")
	assert.Equal(t, 1, overflow.Pagination.Page)
	assert.Len(t, overflow.Items, 20)

	defaults := page("?page=zero&limit=-4&sortBy=unknown")
	assert.Equal(t, 1, defaults.Pagination.Page)
	assert.Equal(t, DefaultLimit, defaults.Pagination.Limit)

	capped := page("?limit=1000")
	assert.Equal(t, MaxLimit, capped.Pagination.Limit)
}

func TestListCourses_SortPopular(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	env.addCourse(t, "a", 10, 2, now)
	env.addCourse(t, "b", 10, 9, now)
	env.addCourse(t, "c", 100, 5, now)

	_, res := env.do(t, http.MethodGet, "/api/courses?sortBy=popular", nil, nil)
	var out CourseListResponse
	require.NoError(t, json.Unmarshal(res.Data, &out))
	require.Len(t, out.Items, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{out.Items[0].ID, out.Items[1].ID, out.Items[2].ID})
	assert.Equal(t, entity.CourseStatusNearFull, out.Items[0].Status)
}

func TestGetCourse(t *testing.T) {
	env := newTestEnv(t)
	env.addCourse(t, "c-1", 10, 10, time.Now().UTC())

	w, res := env.do(t, http.MethodGet, "/api/courses/c-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var c CourseResponse
	require.NoError(t, json.Unmarshal(res.Data, &c))
	assert.Equal(t, entity.CourseStatusFull, c.Status)

	w, _ = env.do(t, http.MethodGet, "/api/courses/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchCourses_StoreFallback(t *testing.T) {
	env := newTestEnv(t)
	env.addCourse(t, "c-1", 10, 0, time.Now().UTC())

	w, res := env.do(t, http.MethodGet, "/api/courses/search?q=course%20c-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []CourseResponse
	require.NoError(t, json.Unmarshal(res.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "c-1", list[0].ID)
}

func TestEnroll_RequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodPost, "/api/enrollments", map[string]any{"courseIds": []string{"x"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/enrollments", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnroll_PartialSuccessThenConflict(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	env.addCourse(t, "open", 10, 3, now)
	env.addCourse(t, "full", 10, 10, now)
	student := as("stu-1", entity.RoleStudent)

	w, res := env.do(t, http.MethodPost, "/api/enrollments",
		map[string]any{"courseIds": []string{"open", "full", "ghost"}}, student)
	require.Equal(t, http.StatusOK, w.Code)
	var out EnrollResponse
	require.NoError(t, json.Unmarshal(res.Data, &out))
	assert.Equal(t, []string{"open"}, out.EnrolledCourses)
	assert.Equal(t, []FailedCourse{
		{CourseID: "full", Reason: string(app.ReasonCapacityExceeded)},
		{CourseID: "ghost", Reason: string(app.ReasonCourseNotFound)},
	}, out.FailedCourses)

	w, res = env.do(t, http.MethodPost, "/api/enrollments",
		map[string]any{"courseIds": []string{"full", "open"}}, student)
	require.Equal(t, http.StatusConflict, w.Code)
	var details struct {
		AlreadyEnrolled []string `json:"alreadyEnrolledCourseIds"`
	}
	require.NoError(t, json.Unmarshal(res.Error, &details))
	assert.Equal(t, []string{"open"}, details.AlreadyEnrolled)
	assert.True(t, strings.Contains(res.Message, "Course open"))

	w, res = env.do(t, http.MethodGet, "/api/enrollments", nil, student)
	require.Equal(t, http.StatusOK, w.Code)
	var mine UserEnrollmentsResponse
	require.NoError(t, json.Unmarshal(res.Data, &mine))
	assert.Equal(t, []string{"open"}, mine.EnrolledCourseIDs)
	require.Len(t, mine.Enrollments, 1)
	assert.Equal(t, "stu-1", mine.Enrollments[0].UserID)
}

func TestEnroll_BadPayloads(t *testing.T) {
	env := newTestEnv(t)
	student := as("stu-1", entity.RoleStudent)
	cases := map[string]any{
		"missing ids":  map[string]any{},
		"empty ids":    map[string]any{"courseIds": []string{}},
		"blank id":     map[string]any{"courseIds": []string{" "}},
		"over the cap": map[string]any{"courseIds": []string{"a", "b", "c", "d"}},
		"not json":     "{",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w, _ := env.do(t, http.MethodPost, "/api/enrollments", body, student)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodGet, "/api/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	h := NewHealthHandler(map[string]Pinger{"db": func(context.Context) error { return errors.New("down") }})
	r := gin.New()
	r.GET("/h", h.Health)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/h", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
