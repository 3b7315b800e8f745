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

	"github.com/telecare/telecare/internal/config"
	"github.com/telecare/telecare/internal/domain/appointment"
	"github.com/telecare/telecare/internal/domain/consultation"
	"github.com/telecare/telecare/internal/domain/identity"
	"github.com/telecare/telecare/internal/domain/notification"
	"github.com/telecare/telecare/internal/domain/prescription"
	"github.com/telecare/telecare/internal/domain/profile"
	"github.com/telecare/telecare/internal/domain/reporting"
	"github.com/telecare/telecare/internal/domain/review"
	"github.com/telecare/telecare/internal/domain/video"
	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/db"
	"github.com/telecare/telecare/internal/platform/middleware"
	"github.com/telecare/telecare/internal/platform/push"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "telecare-server",
		Short: "Telecare API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// Shared platform pieces
	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens := auth.NewTokens(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	policy := auth.DefaultPolicy()
	hub := push.NewHub(logger)
	tx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	// API groups. The public group carries registration, login and the
	// doctor directory and is rate limited per client IP; everything else
	// requires a valid token.
	public := e.Group("/api")
	public.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	api := e.Group("/api", auth.Middleware(tokens))
	admin := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))

	// Identity
	userRepo := identity.NewUserRepoPG(pool)
	auditRepo := identity.NewAuditRepoPG(pool)
	resetRepo := identity.NewResetTokenRepoPG(pool)
	identitySvc := identity.NewService(userRepo, auditRepo, resetRepo, hasher, tokens, tx, identity.Config{
		PasswordMinLen: cfg.PasswordMinLen,
		ResetTokenTTL:  time.Duration(cfg.ResetTokenTTLMinutes) * time.Minute,
	})
	identityHandler := identity.NewHandler(identitySvc, policy, cfg.IsDev())
	identityHandler.RegisterRoutes(public, api)

	// Notifications come first so the other domains can feed them.
	notifRepo := notification.NewRepoPG(pool)
	notifSvc := notification.NewService(notifRepo, hub, logger)
	notifHandler := notification.NewHandler(notifSvc, hub, policy)
	notifHandler.RegisterRoutes(api)

	// Profiles and the public doctor directory
	patientRepo := profile.NewPatientRepoPG(pool)
	doctorRepo := profile.NewDoctorRepoPG(pool)
	profileSvc := profile.NewService(patientRepo, doctorRepo, identitySvc)
	profileHandler := profile.NewHandler(profileSvc, policy)
	profileHandler.RegisterRoutes(public, api)

	// Consultations
	consultRepo := consultation.NewRepoPG(pool)
	consultSvc := consultation.NewService(consultRepo, tx, notifSvc)
	consultHandler := consultation.NewHandler(consultSvc, policy)
	consultHandler.RegisterRoutes(api)

	// Appointments
	apptRepo := appointment.NewRepoPG(pool)
	apptSvc := appointment.NewService(apptRepo, profileSvc, tx, notifSvc)
	apptHandler := appointment.NewHandler(apptSvc, policy)
	apptHandler.RegisterRoutes(api)

	// Prescriptions
	rxRepo := prescription.NewRepoPG(pool)
	rxSvc := prescription.NewService(rxRepo, consultRepo, notifSvc)
	rxHandler := prescription.NewHandler(rxSvc, policy)
	rxHandler.RegisterRoutes(api)

	// Reviews
	reviewRepo := review.NewRepoPG(pool)
	reviewSvc := review.NewService(reviewRepo, doctorRepo, tx)
	reviewHandler := review.NewHandler(reviewSvc, policy)
	reviewHandler.RegisterRoutes(public, api)

	// Video rooms
	videoRepo := video.NewRepoPG(pool)
	videoSvc := video.NewService(videoRepo, consultRepo, apptRepo, notifSvc)
	videoHandler := video.NewHandler(videoSvc, hub, policy)
	videoHandler.RegisterRoutes(api)

	// Admin reports
	reportRepo := reporting.NewRepoPG(pool)
	reportSvc := reporting.NewService(reportRepo)
	reportHandler := reporting.NewHandler(reportSvc, policy)
	reportHandler.RegisterRoutes(admin)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
