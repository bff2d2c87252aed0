// Package warehouse resolves the population of shop domains to scrape from an
// analytics warehouse. Every implementation runs the same fixed query,
// SELECT DISTINCT <column> FROM <table>, and returns the domains in the order
// the warehouse produced them.
package warehouse

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// DomainSource returns the set of domains to scrape for one run.
type DomainSource interface {
	Domains(ctx context.Context) ([]string, error)
	Close() error
}

type Dialect string

const (
	DialectBigQuery   Dialect = "bigquery"
	DialectClickHouse Dialect = "clickhouse"
	DialectPostgres   Dialect = "postgres"
)

//nolint:gochecknoglobals // compiled once
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Query identifies the table and column holding shop domains. Table may be
// qualified ("project.dataset.table", "db.table").
type Query struct {
	Table  string
	Column string
}

// SQL renders the distinct-domain query for dialect, quoting identifiers.
func (q Query) SQL(dialect Dialect) (string, error) {
	if q.Column == "" || q.Table == "" {
		return "", fmt.Errorf("warehouse query needs both table and column")
	}

	if err := validIdent(q.Column); err != nil {
		return "", err
	}

	parts := strings.Split(q.Table, ".")
	for _, p := range parts {
		if err := validIdent(p); err != nil {
			return "", err
		}
	}

	switch dialect {
	case DialectBigQuery:
		return fmt.Sprintf("SELECT DISTINCT %s FROM `%s`", q.Column, q.Table), nil
	case DialectClickHouse:
		quoted := make([]string, len(parts))
		for i, p := range parts {
			quoted[i] = "`" + p + "`"
		}
		return fmt.Sprintf("SELECT DISTINCT `%s` FROM %s", q.Column, strings.Join(quoted, ".")), nil
	case DialectPostgres:
		quoted := make([]string, len(parts))
		for i, p := range parts {
			quoted[i] = `"` + p + `"`
		}
		return fmt.Sprintf(`SELECT DISTINCT "%s" FROM %s`, q.Column, strings.Join(quoted, ".")), nil
	default:
		return "", fmt.Errorf("unsupported warehouse dialect %q", dialect)
	}
}

func validIdent(s string) error {
	if !identPattern.MatchString(s) {
		return fmt.Errorf("invalid warehouse identifier %q", s)
	}
	return nil
}

// StaticSource serves a fixed domain list. Used for local runs and tests.
type StaticSource struct {
	domains []string
}

func NewStaticSource(domains []string) *StaticSource {
	return &StaticSource{domains: append([]string(nil), domains...)}
}

func (s *StaticSource) Domains(context.Context) ([]string, error) {
	return append([]string(nil), s.domains...), nil
}

func (s *StaticSource) Close() error { return nil }
