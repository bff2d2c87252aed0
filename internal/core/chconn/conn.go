// Package chconn opens ClickHouse native connections shared by the warehouse
// resolver and the ClickHouse sink.
package chconn

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type Config struct {
	Host     string `json:"host" default:"127.0.0.1"`
	Port     string `json:"port" default:"9000"`
	Username string `json:"username" default:"default"`
	// Password is base64 encoded.
	Password string `json:"password"`
	Database string `json:"database" default:"default"`
	Secure   bool   `json:"tls_enabled" default:"false"`
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config) (driver.Conn, error) {
	pswd, err := base64.StdEncoding.DecodeString(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode password: %w", err)
	}

	var tlsConfig *tls.Config
	if cfg.Secure {
		tlsConfig = &tls.Config{} //nolint:gosec,exhaustruct // defaults to system roots
	}

	//nolint:exhaustruct // optional config
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr:     []string{cfg.Addr()},
		Protocol: clickhouse.Native,
		TLS:      tlsConfig,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: string(pswd),
		},
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	if err = conn.Ping(ctx); err != nil {
		conn.Close()

		var ex *clickhouse.Exception
		if errors.As(err, &ex) {
			return nil, fmt.Errorf("ping failed: exception [%d] %s", ex.Code, ex.Message)
		}
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	return conn, nil
}
