package v1

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/middleware"
	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/pkg/apperror"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

type SSOHandler struct {
	ssoUC       domain.SSOUsecase
	frontendURL string
	cookies     CookieOptions
}

func NewSSOHandler(public, protected *gin.RouterGroup, ssoUC domain.SSOUsecase, managers gin.HandlerFunc, frontendURL string, cookies CookieOptions) {
	handler := &SSOHandler{ssoUC: ssoUC, frontendURL: frontendURL, cookies: cookies}

	sso := public.Group("/sso")
	{
		sso.GET("/oauth/callback", handler.OAuthCallback)
		sso.GET("/:slug/begin", handler.Begin)
		sso.GET("/:slug/metadata", handler.Metadata)
		sso.POST("/:slug/saml/acs", handler.SAMLACS)
	}

	config := protected.Group("/company/sso", managers)
	{
		config.GET("", handler.GetConfig)
		config.PUT("", handler.SaveConfig)
		config.DELETE("", handler.DeleteConfig)
	}
}

// GetConfig godoc
// @Summary      Get SSO configuration
// @Tags         sso
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.SSOConfig}
// @Failure      404  {object}  response.Response
// @Router       /company/sso [get]
// @Security     BearerAuth
func (h *SSOHandler) GetConfig(c *gin.Context) {
	cfg, err := h.ssoUC.GetConfig(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "SSO configuration", cfg)
}

// SaveConfig godoc
// @Summary      Create or update SSO configuration
// @Description  Requires a plan with SSO. An empty oauth_client_secret keeps the stored one.
// @Tags         sso
// @Accept       json
// @Produce      json
// @Param        config  body      domain.SSOConfigInput  true  "Configuration"
// @Success      200     {object}  response.Response{data=domain.SSOConfig}
// @Failure      400     {object}  response.Response
// @Failure      402     {object}  response.Response
// @Router       /company/sso [put]
// @Security     BearerAuth
func (h *SSOHandler) SaveConfig(c *gin.Context) {
	var input domain.SSOConfigInput
	if !bindJSON(c, &input) {
		return
	}
	cfg, err := h.ssoUC.SaveConfig(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "SSO configuration saved", cfg)
}

// DeleteConfig godoc
// @Summary      Remove SSO configuration
// @Tags         sso
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /company/sso [delete]
// @Security     BearerAuth
func (h *SSOHandler) DeleteConfig(c *gin.Context) {
	if err := h.ssoUC.DeleteConfig(c.Request.Context()); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "SSO configuration removed", nil)
}

// Begin godoc
// @Summary      Start SSO login
// @Description  Redirects the browser to the company's identity provider
// @Tags         sso
// @Param        slug  path  string  true  "Company slug"
// @Success      302
// @Failure      404  {object}  response.Response
// @Router       /sso/{slug}/begin [get]
func (h *SSOHandler) Begin(c *gin.Context) {
	target, err := h.ssoUC.Begin(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// SAMLACS godoc
// @Summary      SAML assertion consumer service
// @Description  Receives the IdP's POST, signs the user in and redirects to the frontend with the token in the fragment
// @Tags         sso
// @Accept       x-www-form-urlencoded
// @Param        slug  path  string  true  "Company slug"
// @Success      302
// @Router       /sso/{slug}/saml/acs [post]
func (h *SSOHandler) SAMLACS(c *gin.Context) {
	result, err := h.ssoUC.CompleteSAML(c.Request.Context(), c.Param("slug"), c.Request)
	h.finish(c, result, err)
}

// OAuthCallback godoc
// @Summary      OAuth / OIDC callback
// @Description  Exchanges the code, signs the user in and redirects to the frontend with the token in the fragment
// @Tags         sso
// @Param        code   query  string  true  "Authorization code"
// @Param        state  query  string  true  "Signed state"
// @Success      302
// @Router       /sso/oauth/callback [get]
func (h *SSOHandler) OAuthCallback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		h.finish(c, nil, apperror.Unauthorized("Identity provider returned "+providerErr))
		return
	}
	result, err := h.ssoUC.CompleteOAuth(c.Request.Context(), c.Query("code"), c.Query("state"))
	h.finish(c, result, err)
}

// finish always redirects to the frontend so the browser never lands on a JSON page.
func (h *SSOHandler) finish(c *gin.Context, result *domain.AuthResult, err error) {
	fragment := url.Values{}
	if err != nil {
		msg := "Single sign-on failed"
		if appErr, ok := apperror.As(err); ok && appErr.Code < http.StatusInternalServerError {
			msg = appErr.Message
		} else {
			logger.Error(c.Request.Context(), "sso completion failed", zap.Error(err))
		}
		fragment.Set("error", msg)
	} else {
		if err := middleware.SetSessionCookies(c, result.AccessToken, h.cookies.TTL, h.cookies.Secure); err != nil {
			logger.Warn(c.Request.Context(), "could not set session cookies", zap.Error(err))
		}
		fragment.Set("token", result.AccessToken)
		fragment.Set("refresh_token", result.RefreshToken)
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/auth/sso/callback#"+fragment.Encode())
}

// Metadata godoc
// @Summary      SAML service provider metadata
// @Tags         sso
// @Produce      xml
// @Param        slug  path  string  true  "Company slug"
// @Success      200
// @Router       /sso/{slug}/metadata [get]
func (h *SSOHandler) Metadata(c *gin.Context) {
	md, err := h.ssoUC.Metadata(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, "application/samlmetadata+xml", md)
}
