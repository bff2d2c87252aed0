package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glassflow/shopify-shops-etl/internal/config"
	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
	"github.com/glassflow/shopify-shops-etl/tests/testutils"
)

func testConfig() config.Config {
	return config.Config{
		StartDate:         "2024-01-01",
		Streams:           []string{registry.ShopifyShops},
		Strategy:          "snapshot",
		ExtractedAtLayout: time.RFC3339,
		Timezone:          "UTC",
		Warehouse: config.WarehouseConfig{
			Driver:        config.DriverStatic,
			StaticDomains: []string{"127.0.0.1:1"},
		},
		Fetch: config.FetchConfig{
			Timeout:     config.Duration(time.Second),
			Concurrency: 1,
		},
		State: config.StateConfig{Backend: config.BackendMemory},
		Sink:  config.SinkConfig{Kinds: []string{config.SinkSinger}},
	}
}

func TestApp_Run(t *testing.T) {
	var out bytes.Buffer
	a, err := New(context.Background(), testConfig(), &out, testutils.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	_, ok := a.Store().(*state.MemoryStore)
	assert.True(t, ok)
	assert.Equal(t, []string{registry.ShopifyShops}, a.Registry().IDs())

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Zero(t, res[0].Records, "unreachable shop is skipped")

	require.NoError(t, a.writer.Flush(context.Background()))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"type":"SCHEMA"`)
}

func TestNew_UnknownStream(t *testing.T) {
	cfg := testConfig()
	cfg.Streams = []string{"shopify_orders"}

	_, err := New(context.Background(), cfg, &bytes.Buffer{}, testutils.NewTestLogger())
	require.Error(t, err)
	assert.True(t, registry.IsUnknownStreamErr(err))
}

func TestNewDomainSource(t *testing.T) {
	src, err := NewDomainSource(context.Background(), config.WarehouseConfig{
		Driver:        config.DriverStatic,
		StaticDomains: []string{"shop-a.myshopify.com"},
	}, testutils.NewTestLogger())
	require.NoError(t, err)

	domains, err := src.Domains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"shop-a.myshopify.com"}, domains)

	_, err = NewDomainSource(context.Background(), config.WarehouseConfig{Driver: "oracle"}, testutils.NewTestLogger())
	assert.Error(t, err)
}
