package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/medconnect/backend/internal/cleanup"
	"github.com/medconnect/backend/internal/config"
	"github.com/medconnect/backend/internal/db"
	"github.com/medconnect/backend/internal/logging"
	"github.com/medconnect/backend/internal/notification"
	"github.com/medconnect/backend/internal/upload"
)

func main() {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:           "med-connect-cleanup",
		Short:         "Purge read notifications and deleted files past retention",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return run(ctx)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum run time")

	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("cleanup job failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Init("med-connect-cleanup", cfg.Env)

	database, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	store, err := upload.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	notifications := notification.NewService(notification.NewRepository(database), nil, nil)
	files := upload.NewService(upload.NewRepository(database), store, nil, nil, nil, cfg.UploadMaxBytes)

	log.Info().
		Dur("notification_retention", cfg.NotificationRetention).
		Dur("file_retention", cfg.FileRetention).
		Msg("cleanup job starting")

	job := cleanup.NewJob(
		cleanup.Task{
			Name:      "read_notifications",
			Retention: cfg.NotificationRetention,
			Run: func(ctx context.Context, retention time.Duration) (int, error) {
				n, err := notifications.PurgeRead(ctx, retention)
				return int(n), err
			},
		},
		cleanup.Task{
			Name:      "deleted_files",
			Retention: cfg.FileRetention,
			Run:       files.PurgeDeleted,
		},
	)

	results, err := job.Run(ctx)
	log.Info().Int("removed", cleanup.Total(results)).Msg("cleanup job finished")
	return err
}
