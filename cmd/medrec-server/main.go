package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medrec/medrec/internal/config"
	"github.com/medrec/medrec/internal/domain/examination"
	"github.com/medrec/medrec/internal/domain/imaging"
	"github.com/medrec/medrec/internal/domain/org"
	"github.com/medrec/medrec/internal/domain/patient"
	"github.com/medrec/medrec/internal/domain/pharmacy"
	"github.com/medrec/medrec/internal/domain/practitioner"
	"github.com/medrec/medrec/internal/domain/stats"
	"github.com/medrec/medrec/internal/domain/visit"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/blobstore"
	"github.com/medrec/medrec/internal/platform/db"
	"github.com/medrec/medrec/internal/platform/middleware"
	"github.com/medrec/medrec/internal/platform/telemetry"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "medrec-server",
		Short: "Hospital medical records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the records API server",
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

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			to, _ := cmd.Flags().GetInt("to")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)

			var count int
			if to > 0 {
				count, err = migrator.UpTo(ctx, to)
			} else {
				count, err = migrator.Up(ctx)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	upCmd.Flags().Int("to", 0, "Apply migrations up to this version only (0 = all)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("medrec-server %s\n", version)
		},
	}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logger
	logger := newLogger(cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Image blob storage
	store, err := resolveBlobStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise blob storage")
	}
	if cfg.BlobDir == "" {
		logger.Warn().Msg("BLOB_DIR not set; image bytes are held in memory and lost on restart")
	} else {
		logger.Info().Str("dir", cfg.BlobDir).Msg("image blob storage ready")
	}

	// Telemetry
	tp := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{
		ServiceName:    "medrec-server",
		ServiceVersion: version,
		Environment:    cfg.Env,
		MetricsEnabled: telemetry.BoolPtr(cfg.TelemetryEnabled),
		TracingEnabled: telemetry.BoolPtr(cfg.TelemetryEnabled),
	})
	defer tp.Shutdown(context.Background())

	e := buildServer(cfg, pool, store, tp, logger)

	// Periodic health gauges (pool stats, patient count).
	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go collectHealthMetrics(healthCtx, tp, pool, 15*time.Second)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
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
	logger.Info().Msg("server stopped")
	return nil
}

// newLogger builds the process logger. Unknown levels fall back to info so a
// typo in LOG_LEVEL never silences the server.
func newLogger(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(lvl).With().Timestamp().Logger()
	}
	return logger
}

// resolveBlobStore picks the image byte store: filesystem-backed when
// BLOB_DIR is configured, in-memory otherwise.
func resolveBlobStore(cfg *config.Config) (blobstore.Store, error) {
	if cfg.BlobDir == "" {
		return blobstore.NewMemoryStore(), nil
	}
	return blobstore.NewFSStore(cfg.BlobDir, cfg.BlobMaxSize)
}

// uploadLimit converts the blob size cap into an Echo body-limit string,
// rounded up a megabyte to leave room for multipart framing.
func uploadLimit(maxBlobSize int64) string {
	mb := maxBlobSize >> 20
	return fmt.Sprintf("%dM", mb+1)
}

// buildServer assembles the Echo instance: the middleware chain, the health
// and metrics endpoints, and every domain's routes under /api/v1.
func buildServer(cfg *config.Config, pool *pgxpool.Pool, store blobstore.Store, tp *telemetry.TelemetryProvider, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, uploadLimit(cfg.BlobMaxSize)))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(tp.TracingMiddleware())
	e.Use(tp.MetricsMiddleware())

	// Auth middleware
	if cfg.ResolvedAuthMode() == "dev" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}

	// Health and operational endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/ready", db.ReadyHandler(pool))
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "medrec-server",
			"version": version,
		})
	})
	e.GET("/metrics", tp.PrometheusHandler())

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Every API request runs on one pooled connection, so a service that
	// opens a transaction and the repository calls inside it share the same
	// session.
	apiV1.Use(db.ConnMiddleware(pool))

	// Organization domain
	orgSvc := org.NewService(org.NewRepo(pool))
	org.NewHandler(orgSvc).RegisterRoutes(apiV1)

	// Patient domain
	patientSvc := patient.NewService(patient.NewRepo(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	// Practitioner domain
	practitionerSvc := practitioner.NewService(practitioner.NewRepo(pool))
	practitioner.NewHandler(practitionerSvc).RegisterRoutes(apiV1)

	// Visit domain
	visitSvc := visit.NewService(visit.NewRepo(pool))
	visit.NewHandler(visitSvc).RegisterRoutes(apiV1)

	// Pharmacy domain
	pharmacySvc := pharmacy.NewService(pharmacy.NewRepo(pool))
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(apiV1)

	// Examination domain
	examSvc := examination.NewService(examination.NewRepo(pool))
	examination.NewHandler(examSvc).RegisterRoutes(apiV1)

	// Imaging domain
	imagingSvc := imaging.NewService(imaging.NewRepo(pool), store)
	imaging.NewHandler(imagingSvc).RegisterRoutes(apiV1)

	// Statistics domain
	statsSvc := stats.NewService(stats.NewRepo(pool))
	stats.NewHandler(statsSvc).RegisterRoutes(apiV1)

	return e
}

// collectHealthMetrics periodically refreshes the gauges exposed at /metrics.
func collectHealthMetrics(ctx context.Context, tp *telemetry.TelemetryProvider, pool *pgxpool.Pool, interval time.Duration) {
	hm := tp.HealthMetrics()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st := pool.Stat()
		hm.SetDBPoolActive(int64(st.AcquiredConns()))
		hm.SetDBPoolIdle(int64(st.IdleConns()))

		var total int64
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM patients WHERE is_active").Scan(&total); err == nil {
			hm.SetPatientsTotal(total)
		}
	}
}
