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

	"github.com/clinichq/clinic/internal/config"
	"github.com/clinichq/clinic/internal/domain/billing"
	"github.com/clinichq/clinic/internal/domain/identity"
	"github.com/clinichq/clinic/internal/domain/records"
	"github.com/clinichq/clinic/internal/domain/scheduling"
	"github.com/clinichq/clinic/internal/platform/auth"
	"github.com/clinichq/clinic/internal/platform/db"
	"github.com/clinichq/clinic/internal/platform/middleware"
	"github.com/clinichq/clinic/internal/platform/notification"
	"github.com/clinichq/clinic/internal/platform/settings"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic appointment API server",
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
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Notification pipeline. Each sink is registered only when its backend is
	// configured: email behind SMTP_HOST, AMQP behind AMQP_URL.
	var sinks []notification.Sink
	if cfg.SMTPHost != "" {
		sender := notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
		sinks = append(sinks, notification.NewEmailSink(sender))
	}
	if cfg.AMQPURL != "" {
		amqpSink, err := notification.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to AMQP broker")
		}
		defer amqpSink.Close()
		sinks = append(sinks, amqpSink)
	}
	dispatcher := notification.NewDispatcher(cfg.NotifyBuffer, logger, sinks...)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go dispatcher.Start(dispatchCtx)

	// Domain wiring.
	jwtSecret := []byte(cfg.JWTSecret)

	identitySvc := identity.NewService(
		identity.NewUserRepo(pool),
		identity.NewPatientRepo(pool),
		identity.NewDoctorRepo(pool),
		jwtSecret,
	)

	shiftRepo := scheduling.NewShiftRepo(pool)
	leaveRepo := scheduling.NewLeaveRepo(pool)
	availability := scheduling.NewAvailability(shiftRepo, leaveRepo)
	schedulingSvc := scheduling.NewService(
		scheduling.NewAppointmentRepo(pool),
		shiftRepo,
		leaveRepo,
		availability,
		dispatcher,
		pool,
	)

	recordsSvc := records.NewService(
		records.NewServiceRepo(pool),
		records.NewPrescriptionRepo(pool),
		records.NewFeedbackRepo(pool),
		schedulingSvc,
		pool,
	)

	billingSvc := billing.NewService(
		billing.NewBillRepo(pool),
		billing.NewPaymentRepo(pool),
		schedulingSvc,
		recordsSvc,
		pool,
	)

	settingsStore := settings.NewStore(settings.NewRepo(pool))

	// Echo server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	public := e.Group("/api/v1")
	api := e.Group("/api/v1", auth.JWTMiddleware(jwtSecret))

	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)
	records.NewHandler(recordsSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	settings.NewHandler(settingsStore).RegisterRoutes(api)

	// Graceful shutdown.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	stopDispatch()
	logger.Info().Msg("server stopped")
	return nil
}
