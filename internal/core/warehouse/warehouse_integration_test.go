//go:build integration

package warehouse

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassflow/shopify-shops-etl/internal/core/chconn"
	"github.com/glassflow/shopify-shops-etl/tests/testutils"
)

func TestClickHouseSource_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := testutils.StartClickHouseContainer(ctx)
	require.NoError(t, err)
	defer func() { _ = container.Stop(ctx) }()

	cfg, err := container.Config(ctx)
	require.NoError(t, err)

	conn, err := chconn.Open(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Exec(ctx,
		"CREATE TABLE charges (shop_domain String, amount Float64) ENGINE = MergeTree ORDER BY shop_domain"))
	require.NoError(t, conn.Exec(ctx,
		"INSERT INTO charges VALUES ('shop-a.myshopify.com', 1), ('shop-a.myshopify.com', 2), ('shop-b.myshopify.com', 3)"))

	src, err := NewClickHouseSource(ctx, cfg, Query{Table: cfg.Database + ".charges", Column: "shop_domain"},
		testutils.NewTestLogger())
	require.NoError(t, err)
	defer src.Close()

	domains, err := src.Domains(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"shop-a.myshopify.com", "shop-b.myshopify.com"}, domains)
}

func TestPostgresSource_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := testutils.StartPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() { _ = container.Stop(ctx) }()

	conn, err := pgx.Connect(ctx, container.GetDSN())
	require.NoError(t, err)
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, "CREATE TABLE charges (shop_domain TEXT)")
	require.NoError(t, err)
	_, err = conn.Exec(ctx,
		"INSERT INTO charges VALUES ('shop-a.myshopify.com'), ('shop-a.myshopify.com'), (NULL), ('shop-b.myshopify.com')")
	require.NoError(t, err)

	src, err := NewPostgresSource(ctx, container.GetDSN(), Query{Table: "public.charges", Column: "shop_domain"},
		testutils.NewTestLogger())
	require.NoError(t, err)
	defer src.Close()

	domains, err := src.Domains(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"shop-a.myshopify.com", "shop-b.myshopify.com"}, domains)
}
