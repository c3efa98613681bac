package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/mietevo/mietevo-backend/internal/config"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
)

// IClient exposes the query surface the repositories need.
type IClient interface {
	Pool() *pgxpool.Pool
}

// Client wraps a pgx pool so repositories share one connection pool per
// process.
type Client struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// Module provides an fx.Option to integrate the postgres client with the
// application
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewPool,
			NewClient,
		),
	)
}

// NewPool creates a pgx connection pool from the configured DSN.
func NewPool(cfg *config.Configuration, log *logger.Logger) (*pgxpool.Pool, error) {
	dsn := cfg.Postgres.GetDSN()

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("invalid postgres configuration").
			Mark(ierr.ErrDatabase)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to connect to postgres").
			Mark(ierr.ErrDatabase)
	}

	log.Debugw("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.DBName)
	return pool, nil
}

// NewClient creates a new postgres client
func NewClient(pool *pgxpool.Pool, log *logger.Logger) IClient {
	return &Client{
		pool:   pool,
		logger: log,
	}
}

// Pool implements IClient.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}
