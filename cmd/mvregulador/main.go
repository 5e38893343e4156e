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

	"github.com/ShadyBS/mvRegulador/internal/config"
	"github.com/ShadyBS/mvRegulador/internal/domain/tagging"
	"github.com/ShadyBS/mvRegulador/internal/domain/tags"
	"github.com/ShadyBS/mvRegulador/internal/domain/terminology"
	"github.com/ShadyBS/mvRegulador/internal/platform/auth"
	"github.com/ShadyBS/mvRegulador/internal/platform/db"
	"github.com/ShadyBS/mvRegulador/internal/platform/middleware"
	"github.com/ShadyBS/mvRegulador/internal/platform/sigss"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mvregulador",
		Short: "SIGSS regulation sidebar backend",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(tagsCmd())

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

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
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
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// catalogTarget pairs a terminology system with the catalog file to import.
type catalogTarget struct {
	System string
	Path   string
}

// catalogTargets resolves the import flags, falling back to the configured
// catalog paths. Empty paths are skipped.
func catalogTargets(cid10Path, ciap2Path string) []catalogTarget {
	var targets []catalogTarget
	if cid10Path != "" {
		targets = append(targets, catalogTarget{System: terminology.SystemCID10, Path: cid10Path})
	}
	if ciap2Path != "" {
		targets = append(targets, catalogTarget{System: terminology.SystemCIAP2, Path: ciap2Path})
	}
	return targets
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage terminology catalogs",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import CID-10 / CIAP-2 catalog files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cid10Path, _ := cmd.Flags().GetString("cid10")
			ciap2Path, _ := cmd.Flags().GetString("ciap2")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cid10Path == "" {
				cid10Path = cfg.CID10CatalogPath
			}
			if ciap2Path == "" {
				ciap2Path = cfg.CIAP2CatalogPath
			}

			targets := catalogTargets(cid10Path, ciap2Path)
			if len(targets) == 0 {
				return fmt.Errorf("no catalog files given: use --cid10 / --ciap2 or set CID10_CATALOG_PATH / CIAP2_CATALOG_PATH")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := terminology.NewService(terminology.NewRepoPG(pool))
			for _, target := range targets {
				f, err := os.Open(target.Path)
				if err != nil {
					return fmt.Errorf("open catalog %s: %w", target.Path, err)
				}
				count, err := svc.ImportCatalog(ctx, target.System, f)
				f.Close()
				if err != nil {
					return fmt.Errorf("import %s catalog: %w", target.System, err)
				}
				fmt.Printf("Imported %d %s codes from %s\n", count, target.System, target.Path)
			}
			return nil
		},
	}
	importCmd.Flags().String("cid10", "", "Path to the CID-10 catalog JSON file")
	importCmd.Flags().String("ciap2", "", "Path to the CIAP-2 catalog JSON file")
	cmd.AddCommand(importCmd)

	return cmd
}

func tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tag definitions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate-legacy",
		Short: "Upgrade legacy code-array tags to the current definition format",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

			termSvc := terminology.NewService(terminology.NewRepoPG(pool))
			idx, err := termSvc.LoadIndex(ctx)
			if err != nil {
				return fmt.Errorf("load terminology index: %w", err)
			}

			tagSvc := tags.NewService(tags.NewRepoPG(pool), logger)
			count, err := tagSvc.MigrateLegacy(ctx, idx)
			if err != nil {
				return fmt.Errorf("legacy migration failed: %w", err)
			}

			fmt.Printf("Migrated %d legacy tag(s).\n", count)
			return nil
		},
	})

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

	// Portal client
	timeout := time.Duration(cfg.SIGSSTimeoutSeconds) * time.Second
	portal := sigss.NewClient(cfg.SIGSSBaseURL, cfg.SIGSSCookie, timeout, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// The request deadline must outlive one full portal fetch.
	e.Use(middleware.RequestTimeout(timeout + 5*time.Second))

	// Auth middleware
	if cfg.AuthSecret != "" {
		e.Use(auth.JWTMiddleware([]byte(cfg.AuthSecret)))
	} else {
		e.Use(auth.DevAuthMiddleware())
	}

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

	// Domain services
	termSvc := terminology.NewService(terminology.NewRepoPG(pool))
	tagSvc := tags.NewService(tags.NewRepoPG(pool), logger)

	defaultPeriod, err := tagging.ParsePeriod(cfg.NotePeriod, tagging.PeriodOneYear)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid NOTE_PERIOD")
	}
	taggingSvc := tagging.NewService(portal, tagSvc, logger)

	// Routes
	terminology.NewHandler(termSvc).RegisterRoutes(apiV1)
	tags.NewHandler(tagSvc).RegisterRoutes(apiV1)
	tagging.NewHandler(taggingSvc, defaultPeriod).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
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
	logger.Info().Msg("server stopped")
	return nil
}
