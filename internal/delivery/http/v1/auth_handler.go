package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/middleware"
	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
)

// CookieOptions controls the browser session cookies set at login.
type CookieOptions struct {
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	authUC  domain.AuthUsecase
	cookies CookieOptions
}

func NewAuthHandler(public *gin.RouterGroup, protected *gin.RouterGroup, authUC domain.AuthUsecase, cookies CookieOptions) {
	handler := &AuthHandler{
		authUC:  authUC,
		cookies: cookies,
	}

	// Public Routes
	publicAuth := public.Group("/auth")
	{
		publicAuth.POST("/register", handler.Register)
		publicAuth.POST("/login", handler.Login)
		publicAuth.POST("/refresh", handler.Refresh)
		publicAuth.POST("/logout", handler.Logout)
	}

	// Protected Routes
	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.GET("/me", handler.Me)
	}
}

// Register godoc
// @Summary      Company sign-up
// @Description  Creates a company, its owner account and a trial subscription on the free plan
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        register  body      domain.RegisterRequest  true  "Registration Details"
// @Success      201    {object}  response.Response{data=domain.AuthResult}
// @Failure      400    {object}  response.Response
// @Failure      409    {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authUC.Register(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	if err := middleware.SetSessionCookies(c, result.AccessToken, h.cookies.TTL, h.cookies.Secure); err != nil {
		c.Error(apperror.Internal(err))
		return
	}

	response.Success(c, http.StatusCreated, "Registration successful", result)
}

// Login godoc
// @Summary      Password login
// @Description  Authenticates with email and password. Super admins with TOTP enabled must send totp_code.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        login  body      domain.LoginRequest  true  "Credentials"
// @Success      200    {object}  response.Response{data=domain.AuthResult}
// @Failure      401    {object}  response.Response
// @Failure      403    {object}  response.Response
// @Failure      429    {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authUC.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		c.Error(err)
		return
	}
	if err := middleware.SetSessionCookies(c, result.AccessToken, h.cookies.TTL, h.cookies.Secure); err != nil {
		c.Error(apperror.Internal(err))
		return
	}

	response.Success(c, http.StatusOK, "Login successful", result)
}

// Refresh godoc
// @Summary      Refresh session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refresh  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  response.Response{data=domain.AuthResult}
// @Failure      401      {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req domain.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authUC.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.Error(err)
		return
	}
	if err := middleware.SetSessionCookies(c, result.AccessToken, h.cookies.TTL, h.cookies.Secure); err != nil {
		c.Error(apperror.Internal(err))
		return
	}

	response.Success(c, http.StatusOK, "Session refreshed", result)
}

// Logout godoc
// @Summary      Clear session cookies
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookies(c, h.cookies.Secure)
	response.Success(c, http.StatusOK, "Logged out", nil)
}

// Me godoc
// @Summary      Current user
// @Description  Returns the authenticated user and their company
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Me}
// @Failure      401  {object}  response.Response
// @Router       /auth/me [get]
// @Security     BearerAuth
func (h *AuthHandler) Me(c *gin.Context) {
	me, err := h.authUC.Me(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Current user", me)
}
