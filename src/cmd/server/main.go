package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/team-pulse/availability-service/src/internal/api"
	"github.com/team-pulse/availability-service/src/internal/auth"
	"github.com/team-pulse/availability-service/src/internal/config"
	"github.com/team-pulse/availability-service/src/internal/retry"
	"github.com/team-pulse/availability-service/src/internal/service"
	"github.com/team-pulse/availability-service/src/internal/store"
)

func main() {
	cfgPath := flag.String("config", config.Getenv("CONFIG_FILE", "config.yaml"), "config file path")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Fatal("failed to sync logger", zap.Error(err))
		}
	}(logger)
	sugar := logger.Sugar()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		sugar.Fatalf("failed to load config: %v", err)
	}

	db, err := connectDB(cfg.DB, sugar)
	if err != nil {
		sugar.Fatalf("failed to connect to db: %v", err)
	}
	defer func(db *sql.DB) {
		err := db.Close()
		if err != nil {
			sugar.Fatalf("failed to close db: %v", err)
		}
	}(db)

	if err := runMigrations(cfg.DB.DSN, cfg.DB.MigrationsDir, sugar); err != nil {
		sugar.Fatalf("migrations failed: %v", err)
	}
	sugar.Info("migrations applied")

	repos := store.NewRepositories(db, sugar.Desugar())
	svc := service.NewService(repos, sugar.Desugar(), service.Options{
		AnalyticsTTL:  cfg.Cache.AnalyticsTTL.Std(),
		AlertsTTL:     cfg.Cache.AlertsTTL.Std(),
		StaleAfter:    cfg.Cache.StaleAfter.Std(),
		SweepInterval: cfg.Cache.SweepInterval.Std(),
	})
	defer svc.Close()

	tokens := auth.NewTokens(cfg.Auth.JWTSecret)
	h := api.NewHandler(svc, sugar.Desugar())

	r := chi.NewRouter()
	r.Use(api.RequestIDMiddleware, api.LoggerMiddleware(logger), api.MetricsMiddleware, api.Recoverer)
	api.RegisterRoutes(r, h, tokens)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	go func() {
		sugar.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	sugar.Infof("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("server forced to shutdown: %v", err)
	}
	sugar.Info("server stopped")
}

func connectDB(cfg config.DBConfig, sugar *zap.SugaredLogger) (*sql.DB, error) {
	var db *sql.DB
	attempt := 0

	err := retry.Do(context.Background(), cfg.ConnectAttempts, cfg.BackoffBase.Std(), cfg.BackoffCap.Std(),
		func(ctx context.Context) error {
			attempt++
			var err error
			db, err = sql.Open("postgres", cfg.DSN)
			if err == nil {
				if err = db.PingContext(ctx); err == nil {
					return nil
				}
			}
			sugar.Warnf("db ping error: %v (attempt %d/%d)", err, attempt, cfg.ConnectAttempts)
			return err
		})
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	return db, nil
}

func runMigrations(dsn, migrationsDir string, sugar *zap.SugaredLogger) error {
	sugar.Infof("running migrations from %s", migrationsDir)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("migration open db: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsDir,
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("migration init: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		sugar.Info("no new migrations — already up to date")
	}

	return nil
}
