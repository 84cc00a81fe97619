package sink

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/factory"
	"NetProfiler/internal/model"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testBatch() *factory.Batch {
	raw := dataset.NewTable(dataset.FlowColumns)
	raw.Append(dataset.Row{
		dataset.ColSrcIP: "1.1.1.1", dataset.ColDstIP: "2.2.2.2",
		dataset.ColSrcPort: int64(1234), dataset.ColDstPort: int64(80), dataset.ColProtocol: int64(6),
		dataset.ColPacketCount: int64(2), dataset.ColByteCount: int64(100), dataset.ColAvgPacketSize: 50.0,
		dataset.ColFirstPacketIndex: int64(0), dataset.ColLastPacketIndex: int64(1),
		dataset.ColDuration: 1.0, dataset.ColProtocolName: "TCP",
	})
	raw.Append(dataset.Row{
		dataset.ColSrcIP: "10.0.0.1", dataset.ColDstIP: "10.0.0.2",
		dataset.ColSrcPort: nil, dataset.ColDstPort: nil, dataset.ColProtocol: int64(1),
		dataset.ColPacketCount: int64(1), dataset.ColByteCount: int64(98), dataset.ColAvgPacketSize: 98.0,
		dataset.ColFirstPacketIndex: int64(2), dataset.ColLastPacketIndex: int64(2),
		dataset.ColDuration: 0.0, dataset.ColProtocolName: "1",
	})

	validated := dataset.NewTable(dataset.ValidatedColumns)
	for i, r := range raw.Rows {
		v := r.Clone()
		v[dataset.ColIsValid] = i == 0
		v[dataset.ColErrorReason] = ""
		if i == 1 {
			v[dataset.ColErrorReason] = "src_port: required but missing."
		}
		validated.Append(v)
	}

	return &factory.Batch{
		Name:      "office",
		Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Raw:       raw,
		Validated: validated,
		Summary: model.Summary{
			Capture: "office", TotalPackets: 4, IPPackets: 3,
			TotalFlows: 2, ValidFlows: 1, InvalidFlows: 1,
		},
	}
}

func TestCSVWriter(t *testing.T) {
	root := t.TempDir()
	w, err := NewCSVWriter(config.WriterDef{Type: "csv", CSV: config.CSVConfig{RootPath: root, IncludeRaw: true}})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(context.Background(), testBatch()))

	rawPath, validatedPath := w.(*CSVWriter).Paths("office")
	require.Equal(t, filepath.Join(root, "office_flows_validated.csv"), validatedPath)

	raw, err := dataset.ReadCSVFile(rawPath)
	require.NoError(t, err)
	require.Equal(t, dataset.FlowColumns, raw.Columns)

	tbl, err := dataset.ReadCSVFile(validatedPath)
	require.NoError(t, err)
	require.Equal(t, dataset.ValidatedColumns, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	require.Equal(t, "true", tbl.Rows[0][dataset.ColIsValid])
	require.Nil(t, tbl.Rows[0][dataset.ColErrorReason])
	require.Equal(t, "src_port: required but missing.", tbl.Rows[1][dataset.ColErrorReason])
}

func TestCSVWriter_ValidOnly(t *testing.T) {
	root := t.TempDir()
	w, err := NewCSVWriter(config.WriterDef{CSV: config.CSVConfig{RootPath: root, ValidOnly: true}})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), testBatch()))

	rawPath, validatedPath := w.(*CSVWriter).Paths("office")
	_, err = os.Stat(rawPath)
	require.True(t, os.IsNotExist(err), "raw table must not be written unless include_raw is set")

	tbl, err := dataset.ReadCSVFile(validatedPath)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
}

func TestCSVWriter_RequiresRoot(t *testing.T) {
	_, err := NewCSVWriter(config.WriterDef{})
	require.Error(t, err)
}

func TestWritersRejectEscapingNames(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "out")
	csvWriter, err := NewCSVWriter(config.WriterDef{CSV: config.CSVConfig{RootPath: root}})
	require.NoError(t, err)
	gobWriter, err := NewGobWriter(config.WriterDef{Snapshot: config.SnapshotConfig{RootPath: root}})
	require.NoError(t, err)

	batch := testBatch()
	batch.Name = "../escaped"
	require.ErrorIs(t, csvWriter.Write(context.Background(), batch), factory.ErrInvalidName)
	require.ErrorIs(t, gobWriter.Write(context.Background(), batch), factory.ErrInvalidName)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestGobWriter(t *testing.T) {
	root := t.TempDir()
	w, err := NewGobWriter(config.WriterDef{Snapshot: config.SnapshotConfig{RootPath: root}})
	require.NoError(t, err)

	batch := testBatch()
	require.NoError(t, w.Write(context.Background(), batch))

	dir := filepath.Join(root, "2024-05-01_12-30-00", "office")
	require.Equal(t, dir, w.(*GobWriter).Dir(batch))

	snapshot, err := ReadSnapshot(filepath.Join(dir, "flows.dat"))
	require.NoError(t, err)
	require.Equal(t, "office", snapshot.Name)
	require.Equal(t, dataset.ValidatedColumns, snapshot.Columns)
	require.Len(t, snapshot.Rows, 2)
	require.Equal(t, int64(1234), snapshot.Rows[0][dataset.ColSrcPort])
	require.Equal(t, true, snapshot.Rows[0][dataset.ColIsValid])
	require.Nil(t, snapshot.Rows[1][dataset.ColSrcPort])

	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var summary SummaryData
	require.NoError(t, json.Unmarshal(data, &summary))
	require.Equal(t, 2, summary.TotalFlows)
	require.Equal(t, 1, summary.InvalidFlows)
	require.Equal(t, "2024-05-01T12:30:00Z", summary.Timestamp)
}

func TestSQLiteWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.sqlite")
	w, err := NewSQLiteWriter(config.WriterDef{SQLite: config.SQLConfig{Path: path}})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(context.Background(), testBatch()))
	require.NoError(t, w.Write(context.Background(), testBatch()))

	n, err := w.(*sqlWriter).Count(context.Background(), "office")
	require.NoError(t, err)
	require.Equal(t, 4, n)

	var invalid int
	err = w.(*sqlWriter).db.QueryRow("SELECT COUNT(*) FROM validated_flows WHERE src_port IS NULL AND NOT is_valid").Scan(&invalid)
	require.NoError(t, err)
	require.Equal(t, 2, invalid)
}

func TestTypedCells(t *testing.T) {
	row := dataset.Row{
		dataset.ColSrcIP:         "1.1.1.1",
		dataset.ColSrcPort:       "80",
		dataset.ColDstPort:       "http",
		dataset.ColAvgPacketSize: "12.5",
		dataset.ColIsValid:       "false",
		dataset.ColErrorReason:   "dst_port: expected int, got string",
	}
	cells := typedCells(row)
	require.Len(t, cells, len(storedColumns)+2)
	require.Equal(t, "1.1.1.1", cells[0])
	require.Equal(t, int64(80), cells[2])
	require.Nil(t, cells[3])
	require.Equal(t, 12.5, cells[7])
	require.Equal(t, false, cells[len(cells)-2])
	require.Equal(t, "dst_port: expected int, got string", cells[len(cells)-1])
}

func TestCreateTableStatement(t *testing.T) {
	ddl := createTableStatement(duckdbDialect)
	require.True(t, strings.HasPrefix(ddl, "CREATE TABLE IF NOT EXISTS validated_flows"))
	require.Contains(t, ddl, "src_port BIGINT")
	require.Contains(t, ddl, "avg_packet_size DOUBLE")
	require.Contains(t, ddl, "is_valid BOOLEAN")
}

func TestWritersRegistered(t *testing.T) {
	for _, name := range []string{"csv", "snapshot", "sqlite", "duckdb", "clickhouse", "nats"} {
		require.Contains(t, factory.Registered(), name)
	}
}
