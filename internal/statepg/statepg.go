// Package statepg provides a PostgreSQL-backed snapshot keeper.
// It is selected when a database DSN is configured and runs schema
// migrations on startup.
package statepg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

// PostgresState stores one snapshot row per namespace.
type PostgresState struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresState instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
) (*PostgresState, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresState{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/statepg/statepg.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/statepg/statepg.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

// Ping verifies the database connection.
func (s *PostgresState) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	return s.database.PingContext(ctx)
}

// LoadSnapshot reads the stored snapshot for the namespace, or returns
// models.ErrNoSnapshot when the row is absent.
func (s *PostgresState) LoadSnapshot(ctx context.Context, namespace string) (*models.StateSnapshot, error) {
	var raw []byte
	err := s.database.QueryRowContext(
		ctx,
		`SELECT state FROM session_snapshots WHERE namespace = $1`,
		namespace,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	snapshot := &models.StateSnapshot{}
	if err := json.Unmarshal(raw, snapshot); err != nil {
		return nil, fmt.Errorf(
			"in internal/statepg/statepg.go/LoadSnapshot(): error while `json.Unmarshal()` calling: %w",
			err,
		)
	}

	return snapshot, nil
}

// SaveSnapshot upserts the snapshot row for the namespace.
func (s *PostgresState) SaveSnapshot(ctx context.Context, namespace string, snapshot *models.StateSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf(
			"in internal/statepg/statepg.go/SaveSnapshot(): error while `json.Marshal()` calling: %w",
			err,
		)
	}

	_, err = s.database.ExecContext(
		ctx,
		`
			INSERT INTO session_snapshots (namespace, state, updated_at)
				VALUES ($1, $2, now())
				ON CONFLICT (namespace)
					DO UPDATE SET state = EXCLUDED.state, updated_at = now()
		`,
		namespace,
		raw,
	)

	return err
}

func (s *PostgresState) Close() error {
	return s.database.Close()
}
