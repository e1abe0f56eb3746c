package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appAuth "github.com/carebridge/carebridge/internal/app/auth"
	appControllers "github.com/carebridge/carebridge/internal/app/controllers"
	appJobs "github.com/carebridge/carebridge/internal/app/jobs"
	appMigrations "github.com/carebridge/carebridge/internal/app/migrations"
	appRepos "github.com/carebridge/carebridge/internal/app/repositories"
	appRoutes "github.com/carebridge/carebridge/internal/app/routes"
	appServices "github.com/carebridge/carebridge/internal/app/services"
	"github.com/carebridge/carebridge/internal/config"
	"github.com/carebridge/carebridge/internal/db"
	appMiddleware "github.com/carebridge/carebridge/internal/middleware"
	pkgAuth "github.com/carebridge/carebridge/internal/pkg/auth"
	"github.com/carebridge/carebridge/internal/pkg/cache"
	"github.com/carebridge/carebridge/internal/pkg/email"
	"github.com/carebridge/carebridge/internal/pkg/filestorage"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/carebridge/carebridge/internal/pkg/logger"
	"github.com/carebridge/carebridge/internal/pkg/metrics"
	"github.com/carebridge/carebridge/internal/pkg/pverify"
	"github.com/carebridge/carebridge/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService         *appServices.AuthService
	AppointmentService  appServices.AppointmentService
	RiskService         appServices.RiskService
	WalletService       appServices.WalletService
	EligibilityService  appServices.EligibilityService
	AccumulationService appServices.AccumulationService
	EdiService          appServices.EdiService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Repos          *appRepos.Repositories
	JWTService     *pkgAuth.JWTService
	AuthzService   *appAuth.AuthorizationService
	FileStorage    *filestorage.LocalStorage
	Scheduler      *appJobs.Scheduler
	Redis          *redis.Client
	Logger         zerolog.Logger
}

// Close releases the clients opened by BuildDependencies
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Redis close error")
		}
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr.Info().Str("logLevel", logLevel.String()).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and
// seeds the payer and risk flag catalogues.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsPath
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		database.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	ops := seed.OpsAccount{Email: cfg.Seed.OpsEmail, Password: cfg.Seed.OpsPassword}
	if err := seed.CreateDefaultData(ctx, database.Pool, appRepos.NewUserRepository(database.Pool), ops, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return database, nil
}

// connectCache returns a Redis-backed cache, or nil when Redis is not
// configured or unreachable so eligibility falls back to live lookups.
func connectCache(cfg *config.Config, lgr zerolog.Logger) (cache.Cache, *redis.Client) {
	if cfg.Redis.Addr == "" {
		lgr.Info().Msg("Redis not configured, eligibility cache disabled")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := cache.NewRedisClient(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		lgr.Warn().Err(err).Msg("Redis unavailable, eligibility cache disabled")
		return nil, nil
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")
	return cache.NewRedisCache(client), client
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.AuthzService = appAuth.NewAuthorizationService(deps.Repos.UserRepository)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	emailService := email.NewEmailService(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
	}, logger.Component("email"))

	eligibilityCache, redisClient := connectCache(cfg, lgr)
	deps.Redis = redisClient

	pverifyClient := pverify.NewClient(pverify.Config{
		BaseURL:      cfg.PVerify.BaseURL,
		ClientID:     cfg.PVerify.ClientID,
		ClientSecret: cfg.PVerify.ClientSecret,
		Timeout:      helpers.ParseDuration(cfg.PVerify.Timeout, 30*time.Second),
		RetryCount:   cfg.PVerify.RetryCount,
	}, logger.Component("pverify"))

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.JWTService,
		logger.Component("auth"),
	)
	deps.AppointmentService = appServices.NewAppointmentService(
		deps.Repos.ProductRepository,
		deps.Repos.AvailabilityRepository,
		deps.Repos.AppointmentRepository,
		deps.Repos.UserRepository,
		emailService,
		logger.Component("appointments"),
	)
	deps.RiskService = appServices.NewRiskService(deps.Repos.RiskRepository, logger.Component("risk"))
	deps.WalletService = appServices.NewWalletService(
		deps.Repos.WalletRepository,
		deps.Repos.UserRepository,
		deps.AuthzService,
		emailService,
		logger.Component("wallet"),
	)
	deps.EligibilityService = appServices.NewEligibilityService(
		deps.Repos.HealthPlanRepository,
		deps.Repos.PayerRepository,
		deps.AuthzService,
		pverifyClient,
		eligibilityCache,
		helpers.ParseDuration(cfg.PVerify.CacheTTL, 24*time.Hour),
		logger.Component("eligibility"),
	)
	deps.AccumulationService = appServices.NewAccumulationService(
		deps.Repos.TreatmentRepository,
		deps.Repos.HealthPlanRepository,
		deps.Repos.PayerRepository,
		deps.Repos.AccumulationRepository,
		deps.FileStorage,
		appServices.AccumulationConfig{
			SenderID:   cfg.Accumulation.SenderID,
			OutputPath: cfg.Accumulation.OutputPath,
		},
		logger.Component("accumulation"),
	)
	deps.EdiService = appServices.NewEdiService(
		deps.Repos.WalletRepository,
		deps.Repos.WalletRepository,
		deps.Repos.EdiRepository,
		deps.FileStorage,
		appServices.EdiConfig{
			AdministratorID: cfg.EDI.AdministratorID,
			EmployerID:      cfg.EDI.EmployerID,
			OutputPath:      cfg.EDI.OutputPath,
		},
		logger.Component("edi"),
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.Controllers = appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.AuthService, lgr),
		Appointment:  appControllers.NewAppointmentController(deps.AppointmentService, lgr),
		Risk:         appControllers.NewRiskController(deps.RiskService, lgr),
		Wallet:       appControllers.NewWalletController(deps.WalletService, lgr),
		Eligibility:  appControllers.NewEligibilityController(deps.EligibilityService, lgr),
		Accumulation: appControllers.NewAccumulationController(deps.AccumulationService, lgr),
		Edi:          appControllers.NewEdiController(deps.EdiService, lgr),
	}

	if cfg.Jobs.Enabled {
		if err := SetupScheduler(cfg, deps); err != nil {
			deps.Close()
			return nil, err
		}
	}

	return deps, nil
}

// SetupScheduler registers the platform jobs on a new scheduler in deps.
func SetupScheduler(cfg *config.Config, deps *Dependencies) error {
	deps.Scheduler = appJobs.NewScheduler(logger.Component("jobs"))

	err := appJobs.RegisterAll(deps.Scheduler, appJobs.Schedules{
		Accumulation: cfg.Accumulation.Cron,
		EdiExport:    cfg.EDI.Cron,
		Reminders:    cfg.Jobs.ReminderCron,
		TokenCleanup: cfg.Jobs.TokenCleanupCron,
		ReminderLead: helpers.ParseDuration(cfg.Jobs.ReminderLead, 24*time.Hour),
	}, appJobs.Dependencies{
		Accumulation: deps.AccumulationService,
		Edi:          deps.EdiService,
		Appointments: deps.AppointmentService,
		Auth:         deps.AuthService,
		Logger:       logger.Component("jobs"),
	})
	if err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	deps.Logger.Info().Strs("jobs", deps.Scheduler.Names()).Msg("Scheduled jobs registered")
	return nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, database *db.PostgresDB, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestID(),
		appMiddleware.RequestLogger(logger.Component("http")),
		metrics.GinMiddleware(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", appMiddleware.HeaderRequestID},
			ExposeHeaders:    []string{appMiddleware.HeaderRequestID, "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gzip.Gzip(gzip.BestSpeed),
	)

	checks := map[string]appRoutes.HealthCheck{
		"database": func(c *gin.Context) error { return database.Pool.Ping(c.Request.Context()) },
	}
	if deps.Redis != nil {
		checks["redis"] = func(c *gin.Context) error { return deps.Redis.Ping(c.Request.Context()).Err() }
	}

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, checks)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
