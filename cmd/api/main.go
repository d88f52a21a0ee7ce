package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"placementcell/internal/app"
	"placementcell/internal/cache"
	"placementcell/internal/config"
	"placementcell/internal/database"
	apphttp "placementcell/internal/http"
	"placementcell/internal/http/handlers"
	"placementcell/internal/http/metrics"
	httpmw "placementcell/internal/http/middleware"
	"placementcell/internal/http/response"
	"placementcell/internal/observability"
	"placementcell/internal/repository/postgres"
	"placementcell/internal/security"
	"placementcell/internal/storage"
)

const tokenSweepInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	serviceLogger := observability.NewServiceLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, database.PostgresConfig{
		Driver:          cfg.DBDriver,
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
		ConnectTimeout:  cfg.DBConnectTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(cfg.DBDriver, cfg.PostgresDSN, logger); err != nil {
		return err
	}

	var (
		limiter      httpmw.Limiter = httpmw.NewRateLimiter()
		reportsCache app.Cache
		redisClient  *redis.Client
	)
	if cfg.RedisURL != "" {
		redisClient, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		limiter = httpmw.NewRedisLimiter(redisClient, logger)
		reportsCache = cache.NewRedisCache(redisClient)
		logger.Info("redis enabled for rate limiting and analytics cache")
	}

	files, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	userRepo := postgres.NewUserRepository(db)
	departmentRepo := postgres.NewDepartmentRepository(db)
	studentRepo := postgres.NewStudentRepository(db)
	companyRepo := postgres.NewCompanyRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	applicationRepo := postgres.NewApplicationRepository(db)
	interviewRepo := postgres.NewInterviewRepository(db)
	announcementRepo := postgres.NewAnnouncementRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	refreshRepo := postgres.NewRefreshTokenRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	reportRepo := postgres.NewReportRepository(db)

	jwtProvider := security.NewJWTProvider(cfg.JWTSecret)
	policy := app.EligibilityPolicy{AllowPlaced: cfg.AllowPlacedApply}

	notifications := app.NewNotificationService(notificationRepo, serviceLogger)
	authService := app.NewAuthService(userRepo, studentRepo, refreshRepo, analyticsRepo, jwtProvider, serviceLogger, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if cfg.GoogleEnabled() {
		google := security.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, jwtProvider)
		authService = authService.WithGoogle(google, cfg.GoogleAllowedDomain)
	}
	userService := app.NewUserService(userRepo, departmentRepo, analyticsRepo)
	departmentService := app.NewDepartmentService(departmentRepo, analyticsRepo)
	studentService := app.NewStudentService(studentRepo, departmentRepo, applicationRepo, files, analyticsRepo, serviceLogger, cfg.MaxUploadBytes)
	companyService := app.NewCompanyService(companyRepo, jobRepo, files, analyticsRepo, serviceLogger, cfg.MaxUploadBytes)
	jobService := app.NewJobService(jobRepo, companyRepo, studentRepo, applicationRepo, notifications, analyticsRepo, policy)
	applicationService := app.NewApplicationService(applicationRepo, jobRepo, studentRepo, notifications, analyticsRepo, policy)
	interviewService := app.NewInterviewService(interviewRepo, applicationRepo, studentRepo, notifications, analyticsRepo)
	announcementService := app.NewAnnouncementService(announcementRepo, studentRepo, files, notifications, analyticsRepo, cfg.MaxUploadBytes)
	analyticsService := app.NewAnalyticsService(reportRepo, interviewRepo, reportsCache, cfg.AnalyticsCacheTTL, serviceLogger)
	searchService := app.NewSearchService(studentRepo, companyRepo, jobRepo)
	exportService := app.NewExportService(studentRepo, applicationRepo, departmentRepo, analyticsRepo)

	if err := authService.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPass); err != nil {
		return err
	}

	collector := metrics.NewCollector()
	response.SetErrorCollector(collector)

	clientIP := httpmw.TrustedClientIP(cfg.TrustedProxies)
	router := apphttp.NewRouter(apphttp.RouterDependencies{
		AuthHandler:         handlers.NewAuthHandler(authService, limiter, clientIP),
		UserHandler:         handlers.NewUserHandler(userService, departmentService),
		StudentHandler:      handlers.NewStudentHandler(studentService),
		CompanyHandler:      handlers.NewCompanyHandler(companyService),
		JobHandler:          handlers.NewJobHandler(jobService),
		ApplicationHandler:  handlers.NewApplicationHandler(applicationService, limiter),
		InterviewHandler:    handlers.NewInterviewHandler(interviewService),
		AnnouncementHandler: handlers.NewAnnouncementHandler(announcementService),
		NotificationHandler: handlers.NewNotificationHandler(notifications),
		ReportHandler:       handlers.NewReportHandler(analyticsService, searchService, exportService),
		AuthMiddleware:      httpmw.NewAuthMiddleware(jwtProvider),
		Limiter:             limiter,
		ClientIP:            clientIP,
		Metrics:             collector,
		Logger:              logger,
		RequestTimeout:      cfg.RequestTimeout,
		MaxUploadBytes:      cfg.MaxUploadBytes,
	})

	go sweepRefreshTokens(ctx, refreshRepo, logger)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api started", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func sweepRefreshTokens(ctx context.Context, repo *postgres.RefreshTokenRepository, logger *slog.Logger) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := repo.DeleteExpired(ctx, now)
			if err != nil {
				logger.Error("refresh token sweep failed", slog.String("error", err.Error()))
				continue
			}
			if removed > 0 {
				logger.Info("expired refresh tokens removed", slog.Int64("count", removed))
			}
		}
	}
}
