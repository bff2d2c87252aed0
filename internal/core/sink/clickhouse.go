package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/glassflow/shopify-shops-etl/internal/core/chconn"
	"github.com/glassflow/shopify-shops-etl/internal/core/registry"
	"github.com/glassflow/shopify-shops-etl/internal/core/schema"
	"github.com/glassflow/shopify-shops-etl/internal/core/state"
)

type ClickHouseConfig struct {
	chconn.Config
	TableName string `json:"table" default:"shopify_shops"`
}

type BatchConfig struct {
	MaxBatchSize int `json:"max_batch_size" default:"10000"`
}

// Batch is a pending insert. Rows with a key already in the batch are
// dropped.
type Batch struct {
	conn          driver.Conn
	query         string
	currentBatch  driver.Batch
	sizeThreshold int
	cache         map[string]struct{}
}

func NewBatch(ctx context.Context, conn driver.Conn, query string, cfg BatchConfig) (*Batch, error) {
	b := &Batch{
		conn:          conn,
		query:         query,
		sizeThreshold: cfg.MaxBatchSize,
		cache:         make(map[string]struct{}),
	}

	err := b.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload batch: %w", err)
	}

	return b, nil
}

func (b *Batch) Reload(ctx context.Context) error {
	batch, err := b.conn.PrepareBatch(ctx, b.query)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	b.currentBatch = batch

	return nil
}

func (b *Batch) Size() int {
	return len(b.cache)
}

func (b *Batch) Full() bool {
	return b.sizeThreshold > 0 && b.Size() >= b.sizeThreshold
}

func (b *Batch) Append(key string, data ...any) error {
	if _, ok := b.cache[key]; ok {
		return nil
	}
	b.cache[key] = struct{}{}

	err := b.currentBatch.Append(data...)
	if err != nil {
		return fmt.Errorf("append failed: %w", err)
	}

	return nil
}

func (b *Batch) Send(ctx context.Context) error {
	err := b.currentBatch.Send()
	if err != nil {
		return fmt.Errorf("failed to send the batch: %w", err)
	}

	err = b.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload the batch: %w", err)
	}
	clear(b.cache)

	return nil
}

func (b *Batch) Abort() error {
	if err := b.currentBatch.Abort(); err != nil {
		return fmt.Errorf("failed to abort the batch: %w", err)
	}
	clear(b.cache)
	return nil
}

type tableWriter struct {
	batch   *Batch
	columns []string
	keys    []string
}

// ClickHouseWriter inserts records into one table per stream. The table of a
// stream is <TableName> for the shops stream and <TableName>_<stream> for any
// other. Columns follow the stream mapping order.
type ClickHouseWriter struct {
	conn   driver.Conn
	cfg    ClickHouseConfig
	batch  BatchConfig
	tables map[string]*tableWriter
	log    *slog.Logger
}

func NewClickHouseWriter(ctx context.Context, cfg ClickHouseConfig, batchCfg BatchConfig, log *slog.Logger) (*ClickHouseWriter, error) {
	conn, err := chconn.Open(ctx, cfg.Config)
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}

	return newClickHouseWriter(conn, cfg, batchCfg, log), nil
}

func newClickHouseWriter(conn driver.Conn, cfg ClickHouseConfig, batchCfg BatchConfig, log *slog.Logger) *ClickHouseWriter {
	return &ClickHouseWriter{
		conn:   conn,
		cfg:    cfg,
		batch:  batchCfg,
		tables: make(map[string]*tableWriter),
		log:    log,
	}
}

func (c *ClickHouseWriter) table(stream string) string {
	if stream == registry.ShopifyShops {
		return c.cfg.TableName
	}
	return c.cfg.TableName + "_" + stream
}

func InsertQuery(database, table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s.%s (%s)", database, table, strings.Join(columns, ", "))
}

func (c *ClickHouseWriter) WriteSchema(ctx context.Context, def registry.StreamDefinition) error {
	if _, ok := c.tables[def.ID]; ok {
		return nil
	}

	columns := schema.Targets(def.Mapping)
	query := InsertQuery(c.cfg.Database, c.table(def.ID), columns)

	batch, err := NewBatch(ctx, c.conn, query, c.batch)
	if err != nil {
		return fmt.Errorf("prepare clickhouse insert for %s: %w", def.ID, err)
	}

	keys := append([]string(nil), def.KeyProperties...)
	if def.ReplicationKey != "" {
		keys = append(keys, def.ReplicationKey)
	}

	c.tables[def.ID] = &tableWriter{batch: batch, columns: columns, keys: keys}
	c.log.Debug("Prepared ClickHouse insert", slog.String("stream", def.ID), slog.String("query", query))

	return nil
}

func (c *ClickHouseWriter) WriteRecord(ctx context.Context, stream string, rec schema.Record, _ time.Time) error {
	t, ok := c.tables[stream]
	if !ok {
		return fmt.Errorf("record for stream %s before its schema", stream)
	}

	values := make([]any, len(t.columns))
	for i, col := range t.columns {
		values[i] = rec[col]
	}

	if err := t.batch.Append(recordKey(rec, t.keys), values...); err != nil {
		return fmt.Errorf("append %s record: %w", stream, err)
	}

	if t.batch.Full() {
		if err := t.batch.Send(ctx); err != nil {
			return fmt.Errorf("send %s batch: %w", stream, err)
		}
		c.log.Debug("Batch sent", slog.String("stream", stream))
	}

	return nil
}

// WriteState is a no-op, state is not stored in ClickHouse.
func (c *ClickHouseWriter) WriteState(context.Context, *state.SyncState) error { return nil }

// Flush sends every non-empty pending batch.
func (c *ClickHouseWriter) Flush(ctx context.Context) error {
	for stream, t := range c.tables {
		if t.batch.Size() == 0 {
			continue
		}

		size := t.batch.Size()
		if err := t.batch.Send(ctx); err != nil {
			return fmt.Errorf("send %s batch: %w", stream, err)
		}
		c.log.Info("Inserted records into ClickHouse",
			slog.String("stream", stream),
			slog.String("table", c.table(stream)),
			slog.Int("rows", size))
	}

	return nil
}

// Discard aborts the pending batch of stream and forgets its table, so the
// next WriteSchema prepares a fresh insert. Rows already sent by a full
// batch stay in ClickHouse.
func (c *ClickHouseWriter) Discard(_ context.Context, stream string) error {
	t, ok := c.tables[stream]
	if !ok {
		return nil
	}
	delete(c.tables, stream)

	dropped := t.batch.Size()
	if err := t.batch.Abort(); err != nil {
		return fmt.Errorf("discard %s batch: %w", stream, err)
	}

	c.log.Warn("Discarded pending ClickHouse rows",
		slog.String("stream", stream),
		slog.Int("rows", dropped))

	return nil
}

// Close aborts unsent batches and closes the connection.
func (c *ClickHouseWriter) Close() error {
	for stream, t := range c.tables {
		if t.batch.Size() == 0 {
			continue
		}
		if err := t.batch.Abort(); err != nil {
			c.log.Error("failed to abort batch", slog.String("stream", stream), slog.Any("error", err))
		}
	}

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close clickhouse connection: %w", err)
	}
	return nil
}

func recordKey(rec schema.Record, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprint(rec[k])
	}
	return strings.Join(parts, "|")
}
