package testutils

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	chContainer "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/glassflow/shopify-shops-etl/internal/core/chconn"
)

const (
	NATSContainerImage = "nats:latest"
	NATSPort           = "4222/tcp"

	ClickHouseContainerImage = "clickhouse/clickhouse-server:23.3.8.21-alpine"
	ClickHousePort           = "9000/tcp"

	PostgresContainerImage = "postgres:15-alpine"
	PostgresPort           = "5432/tcp"
)

func reuse() bool {
	return os.Getenv("SHOPS_REUSE_TESTCONTAINERS") == "true"
}

// NATSContainer wraps a JetStream enabled NATS testcontainer
type NATSContainer struct {
	container testcontainers.Container
	uri       string
}

func StartNATSContainer(ctx context.Context) (*NATSContainer, error) {
	req := testcontainers.ContainerRequest{ //nolint:exhaustruct // optional config
		Image:        NATSContainerImage,
		ExposedPorts: []string{NATSPort},
		Cmd:          []string{"-js"},
		WaitingFor: wait.ForListeningPort(NATSPort).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{ //nolint:exhaustruct // optional config
			ContainerRequest: req,
			Started:          true,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to start NATS container %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get host of NATS container %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, nat.Port(NATSPort))
	if err != nil {
		return nil, fmt.Errorf("failed to get mapped port of NATS container %w", err)
	}

	return &NATSContainer{
		container: container,
		uri:       fmt.Sprintf("nats://%s:%s", host, mappedPort.Port()),
	}, nil
}

func (n *NATSContainer) GetURI() string {
	return n.uri
}

func (n *NATSContainer) Stop(ctx context.Context) error {
	if reuse() {
		return nil
	}

	if err := n.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to stop NATS container %w", err)
	}
	return nil
}

// ClickHouseContainer wraps a ClickHouse testcontainer
type ClickHouseContainer struct {
	container *chContainer.ClickHouseContainer
}

func StartClickHouseContainer(ctx context.Context) (*ClickHouseContainer, error) {
	container, err := chContainer.Run(
		ctx,
		ClickHouseContainerImage,
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/").
				WithPort("8123/tcp").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start ClickHouse container %w", err)
	}

	return &ClickHouseContainer{
		container: container,
	}, nil
}

// Config returns connection settings for chconn.Open.
func (c *ClickHouseContainer) Config(ctx context.Context) (chconn.Config, error) {
	host, err := c.container.Host(ctx)
	if err != nil {
		return chconn.Config{}, fmt.Errorf("failed to get host of ClickHouse container %w", err)
	}

	port, err := c.container.MappedPort(ctx, nat.Port(ClickHousePort))
	if err != nil {
		return chconn.Config{}, fmt.Errorf("failed to get mapped port of ClickHouse container %w", err)
	}

	return chconn.Config{
		Host:     host,
		Port:     port.Port(),
		Username: c.container.User,
		Password: base64.StdEncoding.EncodeToString([]byte(c.container.Password)),
		Database: c.container.DbName,
	}, nil
}

func (c *ClickHouseContainer) Stop(ctx context.Context) error {
	if reuse() {
		return nil
	}

	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to stop ClickHouse container %w", err)
	}
	return nil
}

// PostgresContainer wraps a Postgres testcontainer
type PostgresContainer struct {
	container testcontainers.Container
	dsn       string
}

func StartPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	req := testcontainers.ContainerRequest{ //nolint:exhaustruct // optional config
		Image:        PostgresContainerImage,
		ExposedPorts: []string{PostgresPort},
		Env: map[string]string{
			"POSTGRES_DB":       "shops_test",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{ //nolint:exhaustruct // optional config
			ContainerRequest: req,
			Started:          true,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to start Postgres container: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, nat.Port(PostgresPort))
	if err != nil {
		return nil, fmt.Errorf("failed to get mapped port of Postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Postgres container host: %w", err)
	}

	return &PostgresContainer{
		container: container,
		dsn: fmt.Sprintf("postgres://testuser:testpass@%s:%s/shops_test?sslmode=disable",
			host, mappedPort.Port()),
	}, nil
}

func (p *PostgresContainer) GetDSN() string {
	return p.dsn
}

func (p *PostgresContainer) Stop(ctx context.Context) error {
	if reuse() {
		return nil
	}

	if err := p.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to stop Postgres container: %w", err)
	}
	return nil
}
