package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/coursehub/enrollment-api/internal/application"
	"github.com/coursehub/enrollment-api/internal/domain/entity"
	"github.com/coursehub/enrollment-api/internal/interface/middleware"
	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/response"
	"github.com/coursehub/enrollment-api/pkg/validation"
)

// AuthService is the account side of the application used by AuthHandler.
type AuthService interface {
	Signup(ctx context.Context, in app.SignupInput) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*entity.User, app.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (app.TokenPair, *entity.User, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*entity.User, error)
}

type AuthHandler struct {
	Svc     AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Cookie
}

func NewAuthHandler(svc AuthService, logger *logrus.Logger, cookies *helpers.Cookie) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required,notblank,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,krphone"`
	Password string `json:"password" binding:"required,pwdmix"`
	UserType string `json:"userType" binding:"required,usertype"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func tokenMeta(pair app.TokenPair) map[string]any {
	return map[string]any{
		"accessToken":      pair.AccessToken,
		"refreshToken":     pair.RefreshToken,
		"accessExpiresAt":  pair.AccessTokenExpiry,
		"refreshExpiresAt": pair.RefreshTokenExpiry,
	}
}

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	role, _ := entity.ParseRole(req.UserType)
	u, err := h.Svc.Signup(c.Request.Context(), app.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "signup successful", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, toUserResponse(u), "login successful", tokenMeta(pair))
}

// Refresh POST /api/auth/refresh; token from cookie or {refreshToken}.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, _ := c.Cookie(helpers.RefreshCookie)
	if refresh == "" {
		var req refreshRequest
		_ = c.ShouldBindJSON(&req)
		refresh = req.RefreshToken
	}
	if refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, u, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, toUserResponse(u), "token refreshed", tokenMeta(pair))
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey)); err != nil {
		h.Logger.WithError(err).Warn("logout: session not cleared")
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"loggedOut": true}, "logged out", nil)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "profile", nil)
}
