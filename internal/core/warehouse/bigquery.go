package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type BigQueryConfig struct {
	// ProjectID is detected from the credentials when empty.
	ProjectID       string
	CredentialsFile string
}

// BigQuerySource reads domains with a BigQuery query job.
type BigQuerySource struct {
	client *bigquery.Client
	query  string
	log    *slog.Logger
}

func NewBigQuerySource(ctx context.Context, cfg BigQueryConfig, q Query, log *slog.Logger) (*BigQuerySource, error) {
	sql, err := q.SQL(DialectBigQuery)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	return &BigQuerySource{
		client: client,
		query:  sql,
		log:    log,
	}, nil
}

func (s *BigQuerySource) Domains(ctx context.Context) ([]string, error) {
	s.log.Debug("Querying BigQuery for shop domains", slog.String("query", s.query))

	it, err := s.client.Query(s.query).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("run bigquery query: %w", err)
	}

	var domains []string
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bigquery row: %w", err)
		}

		if len(row) == 0 || row[0] == nil {
			s.log.Debug("Skipping NULL domain row")
			continue
		}

		domain, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("domain column has type %T, expected string", row[0])
		}
		domains = append(domains, domain)
	}

	return domains, nil
}

func (s *BigQuerySource) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close bigquery client: %w", err)
	}
	return nil
}
