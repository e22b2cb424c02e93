// Package main provides the main entry point for the clinic cost and margin API
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kimmokhwa/beautiful-management-app/app/handlers"
	"github.com/kimmokhwa/beautiful-management-app/app/router"
	"github.com/kimmokhwa/beautiful-management-app/app/scheduler"
	businessflow "github.com/kimmokhwa/beautiful-management-app/business_flow"
	"github.com/kimmokhwa/beautiful-management-app/config"
	"github.com/kimmokhwa/beautiful-management-app/migrations"
	"github.com/kimmokhwa/beautiful-management-app/repository"
	"github.com/kimmokhwa/beautiful-management-app/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	logger    *zap.Logger
	sqlDB     *sql.DB
	cache     *redis.Client
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logSink, err := utils.LogWriter(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to open log output: %v", err)
	}
	logger, err := utils.NewLoggerTo(cfg.Logging, logSink)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting beautiful management API",
		zap.String("version", cfg.Deployment.Version),
		zap.String("commit", cfg.Deployment.CommitHash),
		zap.String("environment", cfg.Deployment.Environment))

	app, err := initializeApplication(cfg, logger, logSink)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully")
	app.shutdown()
	logger.Info("Server stopped")
}

// shutdown stops the HTTP server first, then background workers and connections
func (a *Application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.router.GetApp().ShutdownWithContext(ctx); err != nil {
		a.logger.Error("Error during server shutdown", zap.Error(err))
	}

	for _, fn := range a.stopFuncs {
		fn()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("Error closing redis client", zap.Error(err))
		}
	}
	if err := a.sqlDB.Close(); err != nil {
		a.logger.Warn("Error closing database", zap.Error(err))
	}
}

// initializeDatabase opens the gorm connection with pooling, retrying until ConnectTimeout elapses
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	} else {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = cfg.ConnectTimeout

	var db *gorm.DB
	connect := func() error {
		conn, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to get underlying sql.DB: %w", err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		db = conn
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return db, nil
}

// initializeCache initializes the redis client and verifies connectivity; nil when caching is off
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor pings redis periodically and returns the stop function
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if client == nil {
		return cancel
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger, accessLog io.Writer) (*Application, error) {
	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(cfg.Database.DSN(), logger); err != nil {
			return nil, err
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	stopMonitor := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval, logger)

	// Repositories
	materialRepo := repository.NewMaterialRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	procedureRepo := repository.NewProcedureRepository(db)
	linkRepo := repository.NewProcedureMaterialRepository(db)
	uploadJobRepo := repository.NewUploadJobRepository(db)
	costReader := repository.NewProcedureCostReader(db)

	dashboardCache := businessflow.NewDashboardCache(rc, cfg.Cache.RedisPrefix, cfg.Cache.DefaultTTL, logger.Named("cache"))

	// Business flows
	materialFlow := businessflow.NewMaterialFlow(materialRepo, linkRepo, dashboardCache, logger.Named("materials"))
	procedureFlow := businessflow.NewProcedureFlow(procedureRepo, categoryRepo, materialRepo, linkRepo, costReader, dashboardCache, logger.Named("procedures"), db)
	dashboardFlow := businessflow.NewDashboardFlow(procedureRepo, materialRepo, categoryRepo, costReader, dashboardCache, logger.Named("dashboard"))
	uploadFlow := businessflow.NewUploadFlow(uploadJobRepo, materialRepo, categoryRepo, procedureRepo, linkRepo, dashboardCache, cfg.Upload, logger.Named("upload"), db)

	// Handlers
	exposeErrors := !cfg.Deployment.IsProduction()
	appRouter := router.NewFiberRouter(cfg, router.Handlers{
		System:    handlers.NewSystemHandler(sqlDB, cfg.Deployment.Version, cfg.Deployment.Environment, logger, exposeErrors),
		Material:  handlers.NewMaterialHandler(materialFlow, logger, exposeErrors),
		Procedure: handlers.NewProcedureHandler(procedureFlow, logger, exposeErrors),
		Dashboard: handlers.NewDashboardHandler(dashboardFlow, logger, exposeErrors),
		Upload:    handlers.NewUploadHandler(uploadFlow, logger, exposeErrors),
	}, logger, accessLog)

	stopFuncs := []func(){stopMonitor}
	if cfg.Upload.ReaperInterval > 0 {
		reaper := scheduler.NewUploadJobReaper(uploadJobRepo, cfg.Upload.StaleJobTimeout, cfg.Upload.ReaperInterval, logger.Named("reaper"))
		stopFuncs = append(stopFuncs, reaper.Start(context.Background()))
	}

	return &Application{
		router:    appRouter,
		config:    cfg,
		logger:    logger,
		sqlDB:     sqlDB,
		cache:     rc,
		stopFuncs: stopFuncs,
	}, nil
}
