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

	"github.com/yacco/emr/internal/config"
	"github.com/yacco/emr/internal/domain/ambulance"
	"github.com/yacco/emr/internal/domain/audit"
	"github.com/yacco/emr/internal/domain/bedmgmt"
	"github.com/yacco/emr/internal/domain/billing"
	"github.com/yacco/emr/internal/domain/lab"
	"github.com/yacco/emr/internal/domain/notification"
	"github.com/yacco/emr/internal/domain/organization"
	"github.com/yacco/emr/internal/domain/patient"
	"github.com/yacco/emr/internal/domain/pharmacy"
	"github.com/yacco/emr/internal/domain/radiology"
	"github.com/yacco/emr/internal/domain/scheduling"
	"github.com/yacco/emr/internal/domain/staff"
	"github.com/yacco/emr/internal/domain/telehealth"
	"github.com/yacco/emr/internal/platform/auth"
	"github.com/yacco/emr/internal/platform/db"
	"github.com/yacco/emr/internal/platform/middleware"
	"github.com/yacco/emr/internal/platform/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emr-server",
		Short: "Yacco EMR API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(orgCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the EMR API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrationsDir, _ := cmd.Flags().GetString("migrations")
			return runServer(migrationsDir)
		},
	}
	cmd.Flags().String("migrations", "./migrations", "Path to migrations directory for new organization schemas")
	return cmd
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
			schema, _ := cmd.Flags().GetString("schema")
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
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "org_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
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
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	statusCmd.Flags().String("schema", "org_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organization schemas",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new organization schema and run migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, _ := cmd.Flags().GetString("slug")
			dir, _ := cmd.Flags().GetString("dir")
			if slug == "" {
				return fmt.Errorf("--slug is required")
			}

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

			fmt.Printf("Creating organization schema: org_%s\n", slug)
			if err := db.CreateOrgSchema(ctx, pool, slug, dir); err != nil {
				return err
			}
			fmt.Println("Organization schema created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("slug", "", "Organization identifier (alphanumeric)")
	createCmd.Flags().String("dir", "./migrations", "Path to migrations directory")

	cmd.AddCommand(createCmd)
	return cmd
}

// labResultNotifier bridges the lab service to the notification service,
// avoiding a direct import between the two domains.
type labResultNotifier struct {
	notifications *notification.Service
	logger        zerolog.Logger
}

func (n *labResultNotifier) ResultReady(ctx context.Context, order *lab.Order) {
	err := n.notifications.Notify(ctx, &notification.Notification{
		RecipientID: order.OrderedBy,
		OrgID:       db.OrgFromContext(ctx),
		Type:        notification.TypeLabResult,
		Title:       "Lab results ready",
		Body:        fmt.Sprintf("Results for %s are available", order.TestName),
	})
	if err != nil {
		n.logger.Warn().Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to notify orderer of lab results")
	}
}

func runServer(migrationsDir string) error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Org-ID"},
	}))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		JWKSURL:    cfg.JWKSURL,
		SigningKey: []byte(cfg.JWTSigningKey),
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.Use(db.OrgMiddleware(pool, cfg.DefaultOrg))

	// Audit trail. The service is both the access recorder for the
	// middleware and the action sink injected into domain services.
	auditSvc := audit.NewService(audit.NewRepoPG(pool), audit.NewPlatformRepoPG(pool), logger)
	e.Use(middleware.Audit(logger, auditSvc))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Realtime hub shared by notifications, chat, and telehealth signaling.
	hub := ws.NewHub(logger)
	rooms := ws.NewRoomRegistry()

	// Services
	provisioner := organization.SchemaProvisionerFunc(func(ctx context.Context, slug string) error {
		return db.CreateOrgSchema(ctx, pool, slug, migrationsDir)
	})
	orgSvc := organization.NewService(
		organization.NewRepoPG(pool),
		organization.NewLocationRepoPG(pool),
		provisioner,
		auditSvc,
	)
	staffSvc := staff.NewService(staff.NewRepoPG(pool), []byte(cfg.JWTSigningKey), cfg.JWTIssuer, cfg.TokenTTL())
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	bedSvc := bedmgmt.NewService(
		bedmgmt.NewWardRepoPG(pool),
		bedmgmt.NewBedRepoPG(pool),
		bedmgmt.NewAdmissionRepoPG(pool),
		auditSvc,
	)
	ambulanceSvc := ambulance.NewService(
		ambulance.NewVehicleRepoPG(pool),
		ambulance.NewRequestRepoPG(pool),
		auditSvc,
	)
	billingSvc := billing.NewService(billing.NewRepoPG(pool), auditSvc)
	schedulingSvc := scheduling.NewService(scheduling.NewRepoPG(pool))
	pharmacySvc := pharmacy.NewService(pharmacy.NewRepoPG(pool), auditSvc)
	notificationSvc := notification.NewService(
		notification.NewRepoPG(pool),
		notification.NewChatRepoPG(pool),
		hub,
		logger,
	)
	labSvc := lab.NewService(lab.NewRepoPG(pool), &labResultNotifier{
		notifications: notificationSvc,
		logger:        logger,
	})
	radiologySvc := radiology.NewService(radiology.NewRepoPG(pool))
	telehealthSvc := telehealth.NewService(telehealth.NewRepoPG(pool))

	// REST handlers
	organization.NewHandler(orgSvc).RegisterRoutes(apiV1)
	staff.NewHandler(staffSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	bedmgmt.NewHandler(bedSvc).RegisterRoutes(apiV1)
	ambulance.NewHandler(ambulanceSvc).RegisterRoutes(apiV1)
	billing.NewHandler(billingSvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(apiV1)
	lab.NewHandler(labSvc).RegisterRoutes(apiV1)
	radiology.NewHandler(radiologySvc).RegisterRoutes(apiV1)
	telehealth.NewHandler(telehealthSvc).RegisterRoutes(apiV1)
	notification.NewHandler(notificationSvc).RegisterRoutes(apiV1)
	audit.NewHandler(auditSvc).RegisterRoutes(apiV1)

	// WebSocket endpoints
	ws.NewChatHandler(hub, jwtCfg, logger).RegisterRoutes(e)
	telehealth.NewSignalHandler(telehealthSvc, rooms, logger).RegisterRoutes(e)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")

		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
