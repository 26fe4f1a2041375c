package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	_ "github.com/campushq/school-portal-api/api/swagger"
	"github.com/campushq/school-portal-api/internal/handler"
	"github.com/campushq/school-portal-api/internal/repository"
	"github.com/campushq/school-portal-api/internal/service"
	"github.com/campushq/school-portal-api/pkg/cache"
	"github.com/campushq/school-portal-api/pkg/config"
	"github.com/campushq/school-portal-api/pkg/database"
	"github.com/campushq/school-portal-api/pkg/jobs"
	"github.com/campushq/school-portal-api/pkg/logger"
	corsmiddleware "github.com/campushq/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/school-portal-api/pkg/middleware/requestid"
	"github.com/campushq/school-portal-api/pkg/storage"
)

// @title School Portal API
// @version 1.0.0
// @description School administration portal for staff and students
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	documentStorage, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	programRepo := repository.NewProgramRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-portal-api",
	})
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	studentSvc := service.NewStudentService(db, studentRepo, userRepo, notificationRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, validate, logr)
	programSvc := service.NewProgramService(programRepo, studentRepo, courseRepo, enrollmentSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, programRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, validate, logr)
	provisioningSvc := service.NewProvisioningService(requestRepo, userRepo, validate, logr, service.ProvisioningConfig{
		UsernameMaxAttempts: cfg.Provisioning.UsernameMaxAttempts,
		PasswordLength:      cfg.Provisioning.PasswordLength,
	})
	documentSvc := service.NewDocumentService(documentRepo, courseRepo, enrollmentRepo, documentStorage, logr, service.DocumentConfig{
		MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
	})
	metricsSvc := service.NewMetricsService()
	dashboardSvc := service.NewDashboardService(studentRepo, courseRepo, programRepo, enrollmentRepo, requestRepo, enrollmentSvc, notificationSvc, cacheRepo, metricsSvc, logr, service.DashboardConfig{
		CacheEnabled: cfg.Dashboard.CacheEnabled,
		CacheTTL:     cfg.Dashboard.CacheTTL,
	})
	reportSvc := service.NewReportService(reportRepo, gradeRepo, studentRepo, reportStorage, reportSigner, logr)
	reportSvc.BindNotifier(notificationSvc)

	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		reportQueue = jobs.NewQueue("transcripts", func(jobCtx context.Context, job jobs.Job) error {
			err := reportSvc.HandleJob(jobCtx, job)
			if err != nil {
				metricsSvc.RecordReportJob("failure")
			} else {
				metricsSvc.RecordReportJob("success")
			}
			return err
		}, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportSvc.BindQueue(reportQueue)
		reportQueue.Start(ctx)

		// Generated transcripts are only reachable while their signed URL
		// is valid, so expired files can be swept.
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					removed, err := reportStorage.CleanupOlderThan(cfg.Reports.SignedURLTTL)
					if err != nil {
						logr.Sugar().Warnw("report cleanup failed", "error", err)
					} else if len(removed) > 0 {
						logr.Sugar().Infow("expired reports removed", "count", len(removed))
					}
				}
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.RegisterRoutes(r, handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authSvc),
		Requests:      handler.NewRequestHandler(provisioningSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Programs:      handler.NewProgramHandler(programSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Enrollments:   handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Documents:     handler.NewDocumentHandler(documentSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc, studentSvc),
		Reports:       handler.NewReportHandler(reportSvc),

		AuthService:      authSvc,
		StudentService:   studentSvc,
		DashboardService: dashboardSvc,
		Metrics:          metricsSvc,
		Logger:           logr,
		EnableDocs:       cfg.Env != config.EnvProduction,
		ReadyCheck:       db.Ping,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
}
