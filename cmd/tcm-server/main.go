package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tcm/tcm/internal/config"
	"github.com/tcm/tcm/internal/domain/chat"
	"github.com/tcm/tcm/internal/domain/diagnosis"
	"github.com/tcm/tcm/internal/domain/doctor"
	"github.com/tcm/tcm/internal/domain/patient"
	"github.com/tcm/tcm/internal/domain/visit"
	"github.com/tcm/tcm/internal/platform/auth"
	"github.com/tcm/tcm/internal/platform/db"
	"github.com/tcm/tcm/internal/platform/llm"
	"github.com/tcm/tcm/internal/platform/middleware"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "tcm-server",
		Short:   "TCM clinical workflow server",
		Version: version,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	var migrationsDir string

	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(migrationsDir, func(ctx context.Context, m *db.Migrator) error {
				applied, err := m.Up(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("applied %d migration(s)\n", applied)
				return nil
			})
		},
	}

	migrateStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(migrationsDir, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
						if s.AppliedAt != nil {
							state = fmt.Sprintf("applied at %s", s.AppliedAt.Format(time.RFC3339))
						}
					}
					fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	}

	migrateCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "./migrations", "migrations directory")
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(dir string, fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, dir))
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "tcm-server").Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("database pool established")

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry())

	llmClient := llm.NewOpenAIClient(llm.Options{
		APIKey:      cfg.AIAPIKey,
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		ReadTimeout: cfg.AIReadTimeout(),
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.RequestTimeout(5 * time.Minute))

	e.GET("/health", db.HealthHandler(pool))

	rlCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rlCfg.RequestsPerSecond = cfg.RateLimitRPS
		rlCfg.BurstSize = cfg.RateLimitBurst
	}

	apiV1 := e.Group("/api/v1", middleware.RateLimit(rlCfg))

	doctorSvc := doctor.NewService(doctor.NewRepo(pool), issuer)
	doctorHandler := doctor.NewHandler(doctorSvc)
	doctorHandler.RegisterPublicRoutes(apiV1)

	protected := apiV1.Group("", auth.Middleware(issuer))
	doctorHandler.RegisterRoutes(protected)

	patientSvc := patient.NewService(patient.NewRepo(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(protected)

	visitSvc := visit.NewService(visit.NewRepo(pool))
	visit.NewHandler(visitSvc).RegisterRoutes(protected)

	orch := diagnosis.NewOrchestrator(llmClient, diagnosis.NewPromptBuilder(diagnosis.DefaultTemplates()), logger)
	diagSvc := diagnosis.NewService(orch, diagnosis.NewRepo(pool), visitSvc, logger)
	diagnosis.NewHandler(diagSvc).RegisterRoutes(protected)

	chatSvc := chat.NewService(chat.NewRepo(pool), llmClient, logger)
	chat.NewHandler(chatSvc).RegisterRoutes(protected)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
