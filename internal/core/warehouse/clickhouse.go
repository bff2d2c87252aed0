package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/glassflow/shopify-shops-etl/internal/core/chconn"
)

// ClickHouseSource reads domains from a ClickHouse table.
type ClickHouseSource struct {
	conn  driver.Conn
	query string
	log   *slog.Logger
}

func NewClickHouseSource(ctx context.Context, cfg chconn.Config, q Query, log *slog.Logger) (*ClickHouseSource, error) {
	sql, err := q.SQL(DialectClickHouse)
	if err != nil {
		return nil, err
	}

	conn, err := chconn.Open(ctx, cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	return &ClickHouseSource{
		conn:  conn,
		query: sql,
		log:   log,
	}, nil
}

func (s *ClickHouseSource) Domains(ctx context.Context) ([]string, error) {
	s.log.Debug("Querying ClickHouse for shop domains", slog.String("query", s.query))

	rows, err := s.conn.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("run clickhouse query: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("scan clickhouse row: %w", err)
		}
		domains = append(domains, domain)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read clickhouse rows: %w", err)
	}

	return domains, nil
}

func (s *ClickHouseSource) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close clickhouse connection: %w", err)
	}
	return nil
}
