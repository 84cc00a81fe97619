package sink

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/factory"
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	log "github.com/sirupsen/logrus"
)

const clickhouseCreateTable = `
CREATE TABLE IF NOT EXISTS validated_flows (
    capture            String,
    analyzed_at        DateTime64(3),
    src_ip             Nullable(String),
    dst_ip             Nullable(String),
    src_port           Nullable(Int64),
    dst_port           Nullable(Int64),
    protocol           Nullable(Int64),
    packet_count       Nullable(Int64),
    byte_count         Nullable(Int64),
    avg_packet_size    Nullable(Float64),
    first_packet_index Nullable(Int64),
    last_packet_index  Nullable(Int64),
    duration           Nullable(Float64),
    protocol_name      Nullable(String),
    is_valid           Bool,
    error_reason       String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(analyzed_at)
ORDER BY (capture, analyzed_at);
`

func init() {
	factory.RegisterWriter("clickhouse", NewClickHouseWriter)
}

// ClickHouseWriter stores validated flows in ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the table exists.
func NewClickHouseWriter(def config.WriterDef) (factory.Writer, error) {
	conn, err := connect(def.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), clickhouseCreateTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func (w *ClickHouseWriter) Type() string { return "clickhouse" }

// Write inserts the validated rows as one batch.
func (w *ClickHouseWriter) Write(ctx context.Context, b *factory.Batch) error {
	if b.Validated.Len() == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO validated_flows")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, row := range b.Validated.Rows {
		args := append([]any{b.Name, b.Timestamp.UTC()}, typedCells(row)...)
		if err := batch.Append(args...); err != nil {
			return fmt.Errorf("failed to append flow to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d flows to ClickHouse for capture '%s'", b.Validated.Len(), b.Name)
	return nil
}

func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
