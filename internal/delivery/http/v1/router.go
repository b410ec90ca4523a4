package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Gradiiai/gradii-sub007/config"
	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/middleware"
	"github.com/Gradiiai/gradii-sub007/internal/delivery/http/response"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/internal/usecase"
	"github.com/Gradiiai/gradii-sub007/pkg/metrics"
	"github.com/Gradiiai/gradii-sub007/pkg/validation"
)

const swaggerPrefix = "/v1/swagger"

type RouterDeps struct {
	AuthUC      domain.AuthUsecase
	CompanyUC   domain.CompanyUsecase
	TeamUC      domain.TeamUsecase
	CampaignUC  domain.CampaignUsecase
	CandidateUC domain.CandidateUsecase
	QuestionUC  domain.QuestionUsecase
	InterviewUC domain.InterviewUsecase
	SessionUC   domain.InterviewSessionUsecase
	BillingUC   domain.BillingUsecase
	WebhookUC   domain.WebhookUsecase
	SSOUC       domain.SSOUsecase
	AdminUC     domain.AdminUsecase
	HealthUC    usecase.HealthUsecase
	Audit       domain.AuditLogger
	Metrics     *metrics.Metrics
	Config      *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	r := gin.New()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.RegisterValidators(v)
	}

	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second

	globalLimit := middleware.DefaultRateLimitConfig(cfg.RateLimit.GlobalThreshold, window)
	globalLimit.Audit = deps.Audit
	authLimit := middleware.AuthRateLimitConfig(cfg.RateLimit.LoginThreshold, window)
	authLimit.Audit = deps.Audit
	uploadLimitCfg := middleware.UploadRateLimitConfig(cfg.RateLimit.UploadsPerHour, time.Hour)
	uploadLimitCfg.Audit = deps.Audit
	uploadLimit := middleware.RateLimitMiddleware(uploadLimitCfg)

	// Global Middlewares
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware(cfg.HTTP.AllowedOrigins, cfg.IsDevelopment()))
	r.Use(middleware.SecurityHeadersMiddleware(swaggerPrefix))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
		r.GET(cfg.HTTP.MetricsPath, gin.WrapH(deps.Metrics.Handler()))
	}
	r.Use(middleware.ErrorHandler())

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		status := deps.HealthUC.Check(c.Request.Context())
		if status["status"] != usecase.HealthHealthy {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Success:   false,
				Message:   "System degraded",
				Data:      status,
				RequestID: c.GetString(string(domain.KeyRequestID)),
			})
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	public := v1.Group("")
	public.Use(middleware.RateLimitMiddleware(globalLimit))
	// stricter limit on credential endpoints
	authPublic := public.Group("", middleware.RateLimitMiddleware(authLimit))

	cookies := CookieOptions{TTL: cfg.Auth.AccessTokenTTL, Secure: !cfg.IsDevelopment()}

	editors := middleware.RequireRoles(domain.RoleOwner, domain.RoleAdmin, domain.RoleRecruiter)
	managers := middleware.RequireRoles(domain.RoleOwner, domain.RoleAdmin)
	superAdmin := middleware.RequireRoles(domain.RoleSuperAdmin)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.RateLimitMiddleware(globalLimit))
	protected.Use(middleware.AuthMiddleware(deps.AuthUC, deps.Audit))
	protected.Use(middleware.CSRFMiddleware())
	{
		NewAuthHandler(authPublic, protected, deps.AuthUC, cookies)
		NewTeamHandler(protected, deps.TeamUC, deps.CompanyUC)
		NewCampaignHandler(protected, deps.CampaignUC, editors)
		NewCandidateHandler(protected, deps.CandidateUC, editors, uploadLimit, cfg.Storage.MaxResumeBytes)
		NewQuestionHandler(protected, deps.QuestionUC, editors)
		NewInterviewHandler(protected, deps.InterviewUC, editors)
		NewBillingHandler(public, protected, deps.BillingUC)
		NewWebhookHandler(protected, deps.WebhookUC, managers)
		NewSSOHandler(public, protected, deps.SSOUC, managers, cfg.FrontendURL, cookies)
		NewAdminHandler(protected, deps.AdminUC, superAdmin)
	}

	// Candidates taking an interview
	NewSessionHandler(public, deps.SessionUC, uploadLimit, cfg.Storage.MaxRecordingBytes)

	return r
}
