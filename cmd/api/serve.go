package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/config"
	"github.com/Gradiiai/gradii-sub007/internal/ai"
	v1 "github.com/Gradiiai/gradii-sub007/internal/delivery/http/v1"
	"github.com/Gradiiai/gradii-sub007/internal/repository/postgres"
	"github.com/Gradiiai/gradii-sub007/internal/usecase"
	"github.com/Gradiiai/gradii-sub007/internal/worker"
	"github.com/Gradiiai/gradii-sub007/pkg/auth"
	"github.com/Gradiiai/gradii-sub007/pkg/email"
	"github.com/Gradiiai/gradii-sub007/pkg/jobimport"
	"github.com/Gradiiai/gradii-sub007/pkg/llm"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
	"github.com/Gradiiai/gradii-sub007/pkg/metrics"
	"github.com/Gradiiai/gradii-sub007/pkg/redis"
	"github.com/Gradiiai/gradii-sub007/pkg/security"
	"github.com/Gradiiai/gradii-sub007/pkg/security/antivirus"
	"github.com/Gradiiai/gradii-sub007/pkg/sso"
	"github.com/Gradiiai/gradii-sub007/pkg/storage"
	"github.com/Gradiiai/gradii-sub007/pkg/validation"
	"github.com/Gradiiai/gradii-sub007/pkg/webhook"
)

const tokenIssuer = "gradii"

func serveCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the API server and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) {
	pool, closePool := getPostgres(ctx, cfg)
	defer closePool()

	if err := redis.Initialize(ctx, redis.Config{URL: cfg.Redis.URL, Password: cfg.Redis.Password}); err != nil {
		logger.Warn(ctx, "redis unavailable, using in-memory rate limiting", zap.Error(err))
	}
	defer func() { _ = redis.Close() }()

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		logger.Fatal(ctx, "could not create metrics", zap.Error(err))
	}
	defer func() { _ = m.Shutdown(context.Background()) }()

	// Repositories
	userRepo := postgres.NewUserRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	campaignRepo := postgres.NewCampaignRepository(pool)
	candidateRepo := postgres.NewCandidateRepository(pool)
	questionRepo := postgres.NewQuestionRepository(pool)
	interviewRepo := postgres.NewInterviewRepository(pool)
	billingRepo := postgres.NewBillingRepository(pool)
	webhookRepo := postgres.NewWebhookRepository(pool)
	ssoRepo := postgres.NewSSORepository(pool)
	adminRepo := postgres.NewAdminRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	tx := postgres.NewTransactor(pool)

	auditStore := auditRepo
	if !cfg.AuditLogToDB {
		auditStore = nil
	}
	audit := security.NewAuditLogger(logger.Get(ctx), auditStore)

	// Infrastructure
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, tokenIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	loginGuard := security.NewLoginTracker(redis.Client(), security.LoginTrackerConfig{
		MaxAttempts:   cfg.RateLimit.FailedLoginMaxAttempts,
		AttemptWindow: time.Duration(cfg.RateLimit.FailedLoginBlockMinutes) * time.Minute,
		BlockDuration: time.Duration(cfg.RateLimit.FailedLoginBlockMinutes) * time.Minute,
		TrackIP:       true,
	})
	uploads := usecase.UploadChecks{
		Scanner: antivirus.New(cfg.Storage.ClamAVAddress),
		Guard:   security.NewUploadLimiter(redis.Client(), cfg.RateLimit.UploadsPerHour, time.Hour),
		Audit:   audit,
		Metrics: m,
	}

	store, err := storage.New(ctx, *cfg)
	if err != nil {
		logger.Fatal(ctx, "could not create blob store", zap.Error(err))
	}

	llmClient, err := llm.NewClient(ctx, llm.Config{
		Provider:     llm.Provider(cfg.LLM.Provider),
		OpenAIAPIKey: cfg.LLM.OpenAIAPIKey,
		OpenAIModel:  cfg.LLM.OpenAIModel,
		OpenAIBase:   cfg.LLM.OpenAIBase,
		GeminiAPIKey: cfg.LLM.GeminiAPIKey,
		GeminiModel:  cfg.LLM.GeminiModel,
	})
	if err != nil {
		logger.Warn(ctx, "LLM provider not configured, AI features are disabled", zap.Error(err))
		llmClient = llm.Unavailable(err)
	}
	defer func() { _ = llmClient.Close() }()
	interviewer := ai.NewInterviewer(llmClient)

	ssoProviders, err := sso.NewService(sso.Config{
		PublicURL:            cfg.PublicURL,
		CertificatePEM:       cfg.SSO.SPCertificatePEM,
		PrivateKeyPEM:        cfg.SSO.SPPrivateKeyPEM,
		GoogleClientID:       cfg.SSO.GoogleClientID,
		GoogleSecret:         cfg.SSO.GoogleSecret,
		MicrosoftTenant:      cfg.SSO.MicrosoftTenant,
		AllowPrivateNetworks: cfg.IsDevelopment(),
	})
	if err != nil {
		logger.Fatal(ctx, "could not load SSO service provider keys", zap.Error(err))
	}

	mailer := email.NewEmailService(cfg)
	if !mailer.IsConfigured() {
		logger.Warn(ctx, "SMTP not configured, emails will be dropped")
	}

	queue, err := worker.NewQueue(pool)
	if err != nil {
		logger.Fatal(ctx, "could not create job queue", zap.Error(err))
	}

	validate := validator.New()
	validate.SetTagName("binding")
	validation.RegisterValidators(validate)

	// UseCases
	webhookUC := usecase.NewWebhookUsecase(webhookRepo, queue, webhook.NewSender(10*time.Second, cfg.IsDevelopment()), m, cfg.IsDevelopment())
	billingUC := usecase.NewBillingUsecase(billingRepo, campaignRepo, userRepo, audit, cfg.Billing.WebhookSecret, cfg.Billing.TrialDays)
	authUC := usecase.NewAuthUsecase(usecase.AuthDeps{
		Users:     userRepo,
		Companies: companyRepo,
		SSO:       ssoRepo,
		Billing:   billingUC,
		Tx:        tx,
		Tokens:    tokens,
		Hasher:    hasher,
		TOTP:      auth.NewTOTP(cfg.Auth.TOTPIssuer),
		Guard:     loginGuard,
		Audit:     audit,
	})
	companyUC := usecase.NewCompanyUsecase(companyRepo)
	teamUC := usecase.NewTeamUsecase(userRepo, companyRepo, billingUC, hasher, queue, audit, cfg.FrontendURL)
	campaignUC := usecase.NewCampaignUsecase(campaignRepo, candidateRepo, billingUC, jobimport.New(), webhookUC)
	candidateUC := usecase.NewCandidateUsecase(usecase.CandidateDeps{
		Candidates:     candidateRepo,
		Campaigns:      campaignRepo,
		Store:          store,
		Events:         webhookUC,
		Validate:       validate,
		Uploads:        uploads,
		MaxResumeBytes: cfg.Storage.MaxResumeBytes,
		SignedURLTTL:   cfg.Storage.SignedURLTTL,
	})
	questionUC := usecase.NewQuestionUsecase(questionRepo, campaignRepo, interviewRepo, interviewer, queue, webhookUC, m)
	interviewUC := usecase.NewInterviewUsecase(usecase.InterviewDeps{
		Interviews:   interviewRepo,
		Campaigns:    campaignRepo,
		Candidates:   candidateRepo,
		Questions:    questionRepo,
		Users:        userRepo,
		Companies:    companyRepo,
		Quota:        billingUC,
		Tx:           tx,
		Tokens:       tokens,
		Jobs:         queue,
		Events:       webhookUC,
		Store:        store,
		FrontendURL:  cfg.FrontendURL,
		SignedURLTTL: cfg.Storage.SignedURLTTL,
	})
	sessionUC := usecase.NewSessionUsecase(usecase.SessionDeps{
		Interviews:        interviewRepo,
		Questions:         questionRepo,
		Candidates:        candidateRepo,
		Campaigns:         campaignRepo,
		Users:             userRepo,
		Tx:                tx,
		AI:                interviewer,
		Tokens:            tokens,
		Jobs:              queue,
		Events:            webhookUC,
		Store:             store,
		Uploads:           uploads,
		MaxRecordingBytes: cfg.Storage.MaxRecordingBytes,
		Metrics:           m,
		FrontendURL:       cfg.FrontendURL,
	})
	ssoUC := usecase.NewSSOUsecase(usecase.SSODeps{
		SSO:       ssoRepo,
		Companies: companyRepo,
		Users:     userRepo,
		Quota:     billingUC,
		Providers: ssoProviders,
		State:     tokens,
		Auth:      authUC,
		Audit:     audit,
	})
	adminUC := usecase.NewAdminUsecase(adminRepo, companyRepo, userRepo, auditRepo, billingUC, audit)

	var redisPing func(context.Context) error
	if redis.Client() != nil {
		redisPing = redis.HealthCheck
	}
	healthUC := usecase.NewHealthUsecase(
		usecase.HealthCheck{Name: "database", Ping: pool.Ping},
		usecase.HealthCheck{Name: "redis", Ping: redisPing},
		usecase.HealthCheck{Name: "storage", Ping: store.Ping},
	)

	if cfg.Worker.Enabled {
		riverClient, err := worker.Start(ctx, pool, worker.Deps{
			Webhooks:  webhookUC,
			Questions: questionUC,
			Mailer:    mailer,
		}, cfg.Worker.MaxWorkers)
		if err != nil {
			logger.Fatal(ctx, "could not start workers", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			logger.Info(ctx, "stopping workers...")
			if err := riverClient.Stop(stopCtx); err != nil {
				logger.Error(ctx, "could not stop workers", zap.Error(err))
			}
		}()
	}

	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:      authUC,
		CompanyUC:   companyUC,
		TeamUC:      teamUC,
		CampaignUC:  campaignUC,
		CandidateUC: candidateUC,
		QuestionUC:  questionUC,
		InterviewUC: interviewUC,
		SessionUC:   sessionUC,
		BillingUC:   billingUC,
		WebhookUC:   webhookUC,
		SSOUC:       ssoUC,
		AdminUC:     adminUC,
		HealthUC:    healthUC,
		Audit:       audit,
		Metrics:     m,
		Config:      cfg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("port", cfg.HTTP.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "could not start webserver", zap.Error(err))
		}
	}()

	// wait for interrupt
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info(ctx, "stopping webserver...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
}
