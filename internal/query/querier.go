package query

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const defaultLimit = 1000

// FlowQuery selects stored flows.
type FlowQuery struct {
	Capture     string
	OnlyInvalid bool
	Limit       int
}

// StoredFlow is one validated flow read back from the store.
type StoredFlow struct {
	Capture    string
	AnalyzedAt time.Time
	Row        dataset.Row
}

// CaptureSummary aggregates one analysis run of a capture.
type CaptureSummary struct {
	Capture      string    `json:"capture"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
	TotalFlows   uint64    `json:"total_flows"`
	InvalidFlows uint64    `json:"invalid_flows"`
}

// Querier defines the interface for querying validated flows.
type Querier interface {
	QueryFlows(ctx context.Context, q FlowQuery) ([]StoredFlow, error)
	CaptureSummaries(ctx context.Context) ([]CaptureSummary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
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

// BuildFlowQuery renders the SELECT for q and its arguments.
func BuildFlowQuery(q FlowQuery) (string, []any) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			capture, analyzed_at,
			src_ip, dst_ip, src_port, dst_port, protocol,
			packet_count, byte_count, avg_packet_size,
			first_packet_index, last_packet_index, duration, protocol_name,
			is_valid, error_reason
		FROM validated_flows
	`)

	var whereClauses []string
	args := []any{}

	if q.Capture != "" {
		whereClauses = append(whereClauses, "capture = ?")
		args = append(args, q.Capture)
	}
	if q.OnlyInvalid {
		whereClauses = append(whereClauses, "NOT is_valid")
	}
	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	queryBuilder.WriteString(" ORDER BY analyzed_at DESC, first_packet_index ASC LIMIT ?")
	args = append(args, limit)

	return queryBuilder.String(), args
}

// QueryFlows returns stored flows matching q.
func (q *clickhouseQuerier) QueryFlows(ctx context.Context, fq FlowQuery) ([]StoredFlow, error) {
	sql, args := BuildFlowQuery(fq)
	rows, err := q.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []StoredFlow
	for rows.Next() {
		var (
			f                           StoredFlow
			srcIP, dstIP, name          *string
			srcPort, dstPort, proto     *int64
			packets, bytes, first, last *int64
			avg, duration               *float64
			valid                       bool
			reason                      string
		)
		if err := rows.Scan(&f.Capture, &f.AnalyzedAt,
			&srcIP, &dstIP, &srcPort, &dstPort, &proto,
			&packets, &bytes, &avg,
			&first, &last, &duration, &name,
			&valid, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		f.Row = dataset.Row{
			dataset.ColSrcIP:            deref(srcIP),
			dataset.ColDstIP:            deref(dstIP),
			dataset.ColSrcPort:          deref(srcPort),
			dataset.ColDstPort:          deref(dstPort),
			dataset.ColProtocol:         deref(proto),
			dataset.ColPacketCount:      deref(packets),
			dataset.ColByteCount:        deref(bytes),
			dataset.ColAvgPacketSize:    deref(avg),
			dataset.ColFirstPacketIndex: deref(first),
			dataset.ColLastPacketIndex:  deref(last),
			dataset.ColDuration:         deref(duration),
			dataset.ColProtocolName:     deref(name),
			dataset.ColIsValid:          valid,
			dataset.ColErrorReason:      reason,
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// deref turns a nullable scan target into a table cell.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// CaptureSummaries counts valid and invalid flows per analysis run.
func (q *clickhouseQuerier) CaptureSummaries(ctx context.Context) ([]CaptureSummary, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT
			capture,
			analyzed_at,
			COUNT(*) AS total_flows,
			countIf(NOT is_valid) AS invalid_flows
		FROM validated_flows
		GROUP BY capture, analyzed_at
		ORDER BY analyzed_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var summaries []CaptureSummary
	for rows.Next() {
		var s CaptureSummary
		if err := rows.Scan(&s.Capture, &s.AnalyzedAt, &s.TotalFlows, &s.InvalidFlows); err != nil {
			return nil, fmt.Errorf("failed to scan capture summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
