package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mkamdem/assoflow-api/api/swagger"
	"github.com/mkamdem/assoflow-api/internal/handler"
	"github.com/mkamdem/assoflow-api/internal/middleware"
	"github.com/mkamdem/assoflow-api/internal/repository"
	"github.com/mkamdem/assoflow-api/internal/service"
	"github.com/mkamdem/assoflow-api/pkg/cache"
	"github.com/mkamdem/assoflow-api/pkg/config"
	"github.com/mkamdem/assoflow-api/pkg/database"
	"github.com/mkamdem/assoflow-api/pkg/export"
	"github.com/mkamdem/assoflow-api/pkg/logger"
	corsmiddleware "github.com/mkamdem/assoflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mkamdem/assoflow-api/pkg/middleware/requestid"
	"github.com/mkamdem/assoflow-api/pkg/reference"
)

// @title AssoFlow API
// @version 1.0.0
// @description Membership, course enrollment and finance platform
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// the dashboard cache is optional; the API serves without it
		logr.Sugar().Warnw("redis unavailable, finance cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	refs := reference.NewGenerator()

	memberRepo := repository.NewMemberRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	registrationRepo := repository.NewAnnualRegistrationRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	financeRepo := repository.NewFinanceRepository(db)

	var financeCache *repository.CacheRepository
	if redisClient != nil {
		financeCache = repository.NewCacheRepository(redisClient, logr)
	}

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(memberRepo, service.AuthServiceConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, validate, logr)
	memberSvc := service.NewMemberService(memberRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, memberRepo, service.EnrollmentServiceConfig{
		CancellationWindow: cfg.Courses.CancellationWindow,
	}, validate, logr)
	paymentSvc := service.NewPaymentService(enrollmentRepo, registrationRepo, refs, service.PaymentServiceConfig{
		AnnualFee: cfg.Finance.AnnualFee,
	}, validate, logr)
	attendanceSvc := service.NewAttendanceService(enrollmentRepo, courseRepo, refs, validate, logr)
	expenseSvc := service.NewExpenseService(expenseRepo, validate, logr)

	financeCfg := service.FinanceServiceConfig{
		CacheEnabled: cfg.Finance.DashboardCacheOn && financeCache != nil,
		CacheTTL:     cfg.Finance.DashboardTTL,
		AnnualFee:    cfg.Finance.AnnualFee,
	}
	var financeSvc *service.FinanceService
	if financeCache != nil {
		financeSvc = service.NewFinanceService(financeRepo, registrationRepo, financeCache, financeCfg, logr)
	} else {
		financeSvc = service.NewFinanceService(financeRepo, registrationRepo, nil, financeCfg, logr)
	}

	csvExporter := export.NewCSVExporter()
	if cfg.Reports.CSVDelimiter != "" {
		csvExporter = export.NewCSVExporterWithDelimiter(rune(cfg.Reports.CSVDelimiter[0]))
	}
	var exportSvc *service.ExportService
	if cfg.Reports.PDFEnabled {
		exportSvc = service.NewExportService(financeSvc, csvExporter, export.NewPDFExporter(), logr)
	} else {
		exportSvc = service.NewExportService(financeSvc, csvExporter, nil, logr)
	}

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Members:      handler.NewMemberHandler(memberSvc),
		Courses:      handler.NewCourseHandler(courseSvc),
		Enrollments:  handler.NewEnrollmentHandler(enrollmentSvc, paymentSvc, metricsSvc),
		Attendance:   handler.NewAttendanceHandler(attendanceSvc),
		Registration: handler.NewRegistrationHandler(paymentSvc, metricsSvc),
		Expenses:     handler.NewExpenseHandler(expenseSvc),
		Finance:      handler.NewFinanceHandler(financeSvc, exportSvc, metricsSvc),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.RegisterRoutes(api, handlers, authSvc, metricsSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
