package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/medconnect/backend/internal/account"
	"github.com/medconnect/backend/internal/auth"
	"github.com/medconnect/backend/internal/cache"
	"github.com/medconnect/backend/internal/config"
	"github.com/medconnect/backend/internal/db"
	apihttp "github.com/medconnect/backend/internal/http"
	"github.com/medconnect/backend/internal/logging"
	"github.com/medconnect/backend/internal/messaging"
	"github.com/medconnect/backend/internal/telemetry"
	"github.com/medconnect/backend/internal/upload"
	"github.com/medconnect/backend/internal/users"
)

const serviceName = "med-connect-api"

func main() {
	rootCmd := &cobra.Command{
		Use:           "med-connect",
		Short:         "Med Connect API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(cmd.Context(), migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, database *sql.DB) error {
				n, err := db.NewMigrator(database).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s).\n", n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, database *sql.DB) error {
				statuses, err := db.NewMigrator(database).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format(time.DateTime)
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	return cmd
}

func createAdminCmd() *cobra.Command {
	var req account.AdminRequest
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long:  "Create an administrator account. The password is read from ADMIN_PASSWORD when --password is not set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("ADMIN_PASSWORD")
			}
			return withDatabase(cmd.Context(), func(ctx context.Context, database *sql.DB) error {
				u, err := account.CreateAdmin(ctx, users.NewRepository(database), req)
				if err != nil {
					return fmt.Errorf("failed to create admin: %w", err)
				}
				fmt.Printf("Created admin %s (%s).\n", u.Email, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Admin e-mail address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Admin password")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	return cmd
}

func withDatabase(ctx context.Context, fn func(ctx context.Context, database *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(serviceName, cfg.Env)

	database, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return fn(ctx, database)
}

func runServer(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Init(serviceName, cfg.Env)

	provider, err := telemetry.InitProvider(ctx, telemetry.LoadConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("metrics unavailable, continuing without them")
		metrics = nil
	}

	database, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if migrate {
		n, err := db.NewMigrator(database).Up(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Int("applied", n).Msg("migrations applied")
	}

	redisClient, err := cache.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	deps := apihttp.Dependencies{
		Config:  cfg,
		DB:      database,
		Cache:   redisClient,
		Metrics: metrics,
	}

	publisher, err := messaging.NewPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, domain events disabled")
	} else {
		defer publisher.Close()
		deps.Publisher = publisher
	}

	deps.Permissions, err = auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		return err
	}
	authCfg := auth.ConfigFrom(cfg)
	deps.Verifier = auth.NewVerifier(authCfg)
	deps.Issuer = auth.NewIssuer(authCfg)

	deps.Store, err = upload.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	router := apihttp.SetupRouter(deps)

	// No write timeout: notification streams stay open until shutdown cancels them.
	streams, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apihttp.CORS(cfg.AllowedOrigins)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return streams },
	}
	srv.RegisterOnShutdown(stopStreams)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Med Connect API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
