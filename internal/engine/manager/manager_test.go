package manager

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/factory"
	"NetProfiler/internal/pcapgen"
	"NetProfiler/internal/validation"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Type() string { return "failing" }
func (failingWriter) Write(ctx context.Context, b *factory.Batch) error {
	return errors.New("disk full")
}
func (failingWriter) Close() error { return nil }

func testConfig(root string) *config.Config {
	cfg := config.Defaults()
	cfg.Aggregator.NumWorkers = 4
	cfg.Validator.NumWorkers = 4
	cfg.Writers = []config.WriterDef{
		{Type: "csv", Enabled: true, CSV: config.CSVConfig{RootPath: root, IncludeRaw: true}},
	}
	return cfg
}

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "office.pcap")
	packets := []pcapgen.Packet{
		{Transport: pcapgen.TCP, SrcIP: "1.1.1.1", DstIP: "2.2.2.2", SrcPort: 1234, DstPort: 80, PayloadSize: 6, Timestamp: time.Unix(1, 0)},
		{Transport: pcapgen.ARP, SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Timestamp: time.Unix(1, 500000000)},
		{Transport: pcapgen.TCP, SrcIP: "1.1.1.1", DstIP: "2.2.2.2", SrcPort: 1234, DstPort: 80, PayloadSize: 46, Timestamp: time.Unix(2, 0)},
		{Transport: pcapgen.UDP, SrcIP: "5.5.5.5", DstIP: "8.8.8.8", SrcPort: 5000, DstPort: 53, PayloadSize: 58, Timestamp: time.Unix(3, 0)},
		{Transport: pcapgen.ICMP, SrcIP: "5.5.5.5", DstIP: "8.8.8.8", Timestamp: time.Unix(4, 0)},
	}
	require.NoError(t, pcapgen.WriteFile(path, packets))
	return path
}

func TestAnalyzeCapture(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(testConfig(root))
	require.NoError(t, err)
	defer m.Close()

	report, err := m.AnalyzeCapture(context.Background(), writeCapture(t))
	require.NoError(t, err)

	s := report.Summary
	require.Equal(t, "office", s.Capture)
	require.Equal(t, 5, s.TotalPackets)
	require.Equal(t, 4, s.IPPackets)
	require.Equal(t, 3, s.TotalFlows)
	require.Equal(t, 2, s.ValidFlows)
	require.Equal(t, 1, s.InvalidFlows)
	require.Equal(t, 0, s.DuplicateFlows)

	require.Len(t, report.Flows, 3)
	tcp := report.Flows[0]
	require.Equal(t, uint64(2), tcp.PacketCount)
	require.Equal(t, uint64(160), tcp.ByteCount) // 60 + 100
	require.Equal(t, 80.0, tcp.AvgPacketSize)
	require.Equal(t, 0, tcp.FirstPacketIndex)
	require.Equal(t, 2, tcp.LastPacketIndex)
	require.Equal(t, 1.0, tcp.Duration)

	require.True(t, report.Outcomes[0].Valid)
	require.True(t, report.Outcomes[1].Valid)
	require.False(t, report.Outcomes[2].Valid)
	require.Contains(t, report.Outcomes[2].Errors, "src_port: required but missing.")
	require.Contains(t, report.Outcomes[2].Errors, "ICMP should not use ports (should be 0)")

	written, err := dataset.ReadCSVFile(filepath.Join(root, "office_flows_validated.csv"))
	require.NoError(t, err)
	require.Equal(t, dataset.ValidatedColumns, written.Columns)
	require.Equal(t, 3, written.Len())
	require.Equal(t, "true", written.Rows[0][dataset.ColIsValid])

	_, err = os.Stat(filepath.Join(root, "office_flows.csv"))
	require.NoError(t, err)
}

func TestAnalyzeStream(t *testing.T) {
	m, err := NewManager(testConfig(t.TempDir()))
	require.NoError(t, err)
	defer m.Close()

	f, err := os.Open(writeCapture(t))
	require.NoError(t, err)
	defer f.Close()

	report, err := m.AnalyzeStream(context.Background(), "upload", f)
	require.NoError(t, err)
	require.Equal(t, "upload", report.Summary.Capture)
	require.Equal(t, 3, report.Summary.TotalFlows)
}

func TestValidateTable_MissingColumn(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(testConfig(root))
	require.NoError(t, err)
	defer m.Close()

	tbl := dataset.NewTable([]string{dataset.ColSrcIP, dataset.ColDstIP})
	tbl.Append(dataset.Row{dataset.ColSrcIP: "1.1.1.1", dataset.ColDstIP: "2.2.2.2"})

	report, err := m.ValidateTable(context.Background(), "partial", tbl)
	require.Nil(t, report)
	require.ErrorIs(t, err, validation.ErrMissingColumn)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries, "nothing must be written when the schema check fails")
}

func TestRejectsUnsafeNames(t *testing.T) {
	base := t.TempDir()
	m, err := NewManager(testConfig(filepath.Join(base, "out")))
	require.NoError(t, err)
	defer m.Close()

	tbl := dataset.NewTable(dataset.FlowColumns)
	report, err := m.ValidateTable(context.Background(), "../escaped", tbl)
	require.Nil(t, report)
	require.ErrorIs(t, err, factory.ErrInvalidName)

	f, err := os.Open(writeCapture(t))
	require.NoError(t, err)
	defer f.Close()
	_, err = m.AnalyzeStream(context.Background(), "a/b", f)
	require.ErrorIs(t, err, factory.ErrInvalidName)

	_, err = os.Stat(filepath.Join(base, "escaped_flows_validated.csv"))
	require.True(t, os.IsNotExist(err))
}

func TestWriterFailureDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(testConfig(root))
	require.NoError(t, err)
	defer m.Close()
	m.writers = append([]factory.Writer{failingWriter{}}, m.writers...)

	report, err := m.AnalyzeCapture(context.Background(), writeCapture(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing writer: disk full")
	require.NotNil(t, report)
	require.Equal(t, 2, report.Summary.ValidFlows)

	_, err = os.Stat(filepath.Join(root, "office_flows_validated.csv"))
	require.NoError(t, err)
}

func TestAlertsWithoutNotifier(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Alerter = config.AlerterConfig{
		Enabled: true,
		Rules: []config.AlerterRule{
			{Name: "Invalid flows present", Metric: "invalid_flows", Operator: ">", Threshold: 0},
		},
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	defer m.Close()

	report, err := m.AnalyzeCapture(context.Background(), writeCapture(t))
	require.NoError(t, err)
	require.Len(t, report.Alerts, 1)
	require.Equal(t, 1.0, report.Alerts[0].Value)
}

func TestNewManager_RejectsBadRule(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Alerter = config.AlerterConfig{
		Enabled: true,
		Rules:   []config.AlerterRule{{Name: "bad", Metric: "nope", Operator: ">"}},
	}
	_, err := NewManager(cfg)
	require.Error(t, err)
}

func TestCaptureName(t *testing.T) {
	require.Equal(t, "office", CaptureName("/data/office.pcapng"))
	require.Equal(t, "flows", CaptureName("flows.csv"))
}
