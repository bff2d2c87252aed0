package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads domains from a Postgres table.
type PostgresSource struct {
	pool  *pgxpool.Pool
	query string
	log   *slog.Logger
}

func NewPostgresSource(ctx context.Context, dsn string, q Query, log *slog.Logger) (*PostgresSource, error) {
	sql, err := q.SQL(DialectPostgres)
	if err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	config.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresSource{
		pool:  pool,
		query: sql,
		log:   log,
	}, nil
}

func (s *PostgresSource) Domains(ctx context.Context) ([]string, error) {
	s.log.Debug("Querying Postgres for shop domains", slog.String("query", s.query))

	rows, err := s.pool.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("run postgres query: %w", err)
	}

	values, err := pgx.CollectRows(rows, pgx.RowTo[*string])
	if err != nil {
		return nil, fmt.Errorf("read postgres rows: %w", err)
	}

	domains := make([]string, 0, len(values))
	for _, v := range values {
		if v == nil {
			s.log.Debug("Skipping NULL domain row")
			continue
		}
		domains = append(domains, *v)
	}

	return domains, nil
}

func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}
