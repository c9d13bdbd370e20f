package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edunexus/edunexus-api/api/swagger"
	"github.com/edunexus/edunexus-api/internal/handler"
	"github.com/edunexus/edunexus-api/internal/middleware"
	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/repository"
	"github.com/edunexus/edunexus-api/internal/service"
	"github.com/edunexus/edunexus-api/internal/shard"
	"github.com/edunexus/edunexus-api/pkg/cache"
	"github.com/edunexus/edunexus-api/pkg/config"
	"github.com/edunexus/edunexus-api/pkg/database"
	"github.com/edunexus/edunexus-api/pkg/export"
	"github.com/edunexus/edunexus-api/pkg/logger"
	corsmiddleware "github.com/edunexus/edunexus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edunexus/edunexus-api/pkg/middleware/requestid"
	"github.com/edunexus/edunexus-api/pkg/payment"
	"github.com/edunexus/edunexus-api/pkg/storage"
)

// @title EduNexus API
// @version 1.0.0
// @description Learning platform gateway over three regional databases
// @BasePath /api/v1
// @schemes http

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

	pools := map[shard.Key]*sqlx.DB{}
	for key, dbCfg := range map[shard.Key]config.DatabaseConfig{
		shard.Dhaka:   cfg.Shards.Dhaka,
		shard.Khulna:  cfg.Shards.Khulna,
		shard.Rajsahi: cfg.Shards.Rajsahi,
	} {
		db, err := database.Open(dbCfg)
		if err != nil {
			logr.Sugar().Fatalw("failed to open regional database", "shard", key, "error", err)
		}
		pools[key] = db
	}

	router := shard.NewRouter(pools, logr)
	defer router.Close() //nolint:errcheck
	finder := shard.NewFinder(router, logr)
	agg := shard.NewAggregator(router, logr, cfg.Fanout.ShardTimeout)

	metricsSvc := service.NewMetricsService()
	agg.OnShardFailure(metricsSvc.RecordShardSkip)

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog caching disabled", zap.Error(err))
		redisClient = nil
	}

	thumbnails, err := storage.NewLocalStorage(cfg.Storage.ThumbnailDir, cfg.Storage.PublicBaseURL+"/thumbnails")
	if err != nil {
		logr.Sugar().Fatalw("failed to init thumbnail storage", "error", err)
	}
	receipts, err := storage.NewLocalStorage(cfg.Storage.ReceiptDir, cfg.Storage.PublicBaseURL+"/receipts")
	if err != nil {
		logr.Sugar().Fatalw("failed to init receipt storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	gateway := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.SecretKey, cfg.Payment.Timeout)

	validate := validator.New()
	userRepo := repository.NewUserRepository()
	tokenRepo := repository.NewTokenRepository()
	courseRepo := repository.NewCourseRepository()
	contentRepo := repository.NewContentRepository()
	catalogRepo := repository.NewCatalogRepository()
	enrollmentRepo := repository.NewEnrollmentRepository()
	profileRepo := repository.NewProfileRepository()

	authSvc := service.NewAuthService(router, finder, agg, userRepo, tokenRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(router, courseRepo, contentRepo, thumbnails, validate, logr)
	catalogSvc := service.NewCatalogService(agg, finder, catalogRepo, redisClient, cfg.Catalog.CacheTTL,
		rand.New(rand.NewSource(time.Now().UnixNano())), logr)
	enrollmentSvc := service.NewEnrollmentService(router, agg, enrollmentRepo, courseRepo, gateway,
		receipts, signer, export.NewReceiptRenderer(), export.NewCSVExporter(), validate, logr)
	profileSvc := service.NewProfileService(router, userRepo, profileRepo, validate, logr)
	paymentSvc := service.NewPaymentService(router, gateway, userRepo, profileRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, router)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/locations/:email", authHandler.Locations)
	}

	catalog := api.Group("/catalog")
	{
		catalog.GET("/top-rated", catalogHandler.TopRated)
		catalog.GET("/top-selling", catalogHandler.TopSelling)
		catalog.GET("/suggested", catalogHandler.Suggested)
		catalog.GET("/courses", catalogHandler.AllCourses)
		catalog.GET("/categories", catalogHandler.Categories)
		catalog.GET("/courses/:id/teacher/:email", catalogHandler.FindCourse)
	}

	// Public course browsing resolves its region from header, query or token.
	browse := api.Group("", middleware.OptionalJWT(authSvc), middleware.Location())
	{
		browse.GET("/teachers/:id/courses", courseHandler.ListByTeacher)
		browse.GET("/courses/:id", courseHandler.Get)
		browse.GET("/courses/:id/full", courseHandler.Full)
		browse.GET("/courses/:id/modules", courseHandler.ListModules)
		browse.GET("/modules/:id", courseHandler.ModuleContent)
		browse.GET("/live-classes/:id", courseHandler.GetLiveClass)
	}

	teacher := api.Group("/teacher", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	{
		teacher.POST("/courses", courseHandler.Create)
		teacher.POST("/modules", courseHandler.AddModule)
		teacher.POST("/videos", courseHandler.AddVideo)
		teacher.POST("/live-classes", courseHandler.AddLiveClass)
	}

	authed := api.Group("", middleware.JWT(authSvc))
	{
		authed.GET("/teachers/:id/scheduled-classes", middleware.RequireSelfOrAdmin("id"), middleware.Location(), courseHandler.ScheduledClasses)

		authed.POST("/enrollments", enrollmentHandler.Enroll)
		authed.GET("/enrollments", enrollmentHandler.MyEnrollments)
		authed.GET("/enrollments/check/:id", enrollmentHandler.Check)
		authed.GET("/enrollments/:id/receipt", enrollmentHandler.Receipt)

		authed.GET("/profile", profileHandler.Me)
		authed.POST("/profile", profileHandler.Save)
		authed.PUT("/profile", profileHandler.Update)
		authed.GET("/users/:id/profile", middleware.Location(), profileHandler.Get)

		authed.POST("/payments/intent", paymentHandler.CreateIntent)
		authed.POST("/payments/verify", paymentHandler.Verify)
		authed.POST("/payments/apply-teacher", paymentHandler.ApplyForTeacher)
	}

	api.GET("/receipts/download", enrollmentHandler.DownloadReceipt)

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/enrollments/export", enrollmentHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("api gateway starting", "addr", addr, "env", cfg.Env, "shards", shard.All())
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
