package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/medconnect/backend/internal/config"
)

// Connect opens an instrumented PostgreSQL pool and checks it is reachable.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBPassword == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required database configuration")
	}

	db, err := otelsql.Open("postgres", cfg.DSN(),
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(cfg.DBName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(cfg.DBName),
		),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to register database stats metrics")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)

	log.Info().
		Str("host", cfg.DBHost).
		Str("database", cfg.DBName).
		Msg("connected to PostgreSQL")
	return db, nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == "23505"
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	return pqCode(err) == "23503"
}
