package dataset

import (
	"NetProfiler/internal/model"
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoerceInt(t *testing.T) {
	ok := map[string]struct {
		in   any
		want int64
	}{
		"int64":           {int64(42), 42},
		"int":             {7, 7},
		"integral float":  {80.0, 80},
		"text":            {"443", 443},
		"text with space": {" 53 ", 53},
		"float text":      {"6.0", 6},
		"negative":        {"-1", -1},
	}
	for name, tc := range ok {
		t.Run(name, func(t *testing.T) {
			got, err := CoerceInt(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	for _, in := range []any{"abc", 1.5, "2.5", true, math.NaN(), math.Inf(1), nil, ""} {
		_, err := CoerceInt(in)
		require.Error(t, err, "input %v", in)
		require.True(t, errors.Is(err, ErrCoercion))

		var ce *CoercionError
		require.ErrorAs(t, err, &ce)
		require.Equal(t, KindInt, ce.Kind)
	}
}

func TestCoerceFloat(t *testing.T) {
	got, err := CoerceFloat(int64(3))
	require.NoError(t, err)
	require.Equal(t, 3.0, got)

	got, err = CoerceFloat("0.25")
	require.NoError(t, err)
	require.Equal(t, 0.25, got)

	_, err = CoerceFloat("fast")
	require.ErrorIs(t, err, ErrCoercion)
	_, err = CoerceFloat(false)
	require.ErrorIs(t, err, ErrCoercion)
}

func TestCoerceText(t *testing.T) {
	got, err := CoerceText("TCP")
	require.NoError(t, err)
	require.Equal(t, "TCP", got)

	_, err = CoerceText(int64(6))
	require.ErrorIs(t, err, ErrCoercion)
}

func TestIsAbsentAndNames(t *testing.T) {
	require.True(t, IsAbsent(nil))
	require.True(t, IsAbsent(math.NaN()))
	require.False(t, IsAbsent(0.0))
	require.False(t, IsAbsent(""))

	require.Equal(t, "string", TypeName("x"))
	require.Equal(t, "int", TypeName(int64(1)))
	require.Equal(t, "float", TypeName(1.5))
	require.Equal(t, "bool", TypeName(true))

	require.Equal(t, "50.0", FormatFloat(50))
	require.Equal(t, "0.5", FormatFloat(0.5))
	require.Equal(t, "", FormatValue(nil))
	require.Equal(t, "443", FormatValue(int64(443)))
}

func sampleFlows() []*model.FlowRecord {
	return []*model.FlowRecord{
		{
			FlowKey: model.FlowKey{
				SrcIP: "1.1.1.1", DstIP: "2.2.2.2",
				SrcPort: model.PortOf(1234), DstPort: model.PortOf(80), Protocol: 6,
			},
			PacketCount: 2, ByteCount: 100, AvgPacketSize: 50,
			FirstPacketIndex: 0, LastPacketIndex: 1, Duration: 0.5, ProtocolName: "TCP",
		},
		{
			FlowKey:     model.FlowKey{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Protocol: 1},
			PacketCount: 1, ByteCount: 98, AvgPacketSize: 98,
			FirstPacketIndex: 2, LastPacketIndex: 2, ProtocolName: "1",
		},
	}
}

func TestFromFlows(t *testing.T) {
	tbl := FromFlows(sampleFlows())
	require.Equal(t, FlowColumns, tbl.Columns)
	require.Equal(t, 2, tbl.Len())

	r := tbl.Rows[0]
	require.Equal(t, int64(1234), r[ColSrcPort])
	require.Equal(t, int64(100), r[ColByteCount])
	require.Equal(t, 50.0, r[ColAvgPacketSize])
	require.Nil(t, tbl.Rows[1][ColSrcPort])
}

func TestFilter(t *testing.T) {
	tbl := NewTable(ValidatedColumns)
	tbl.Append(Row{ColSrcIP: "a", ColIsValid: true})
	tbl.Append(Row{ColSrcIP: "b", ColIsValid: false})
	tbl.Append(Row{ColSrcIP: "c", ColIsValid: "true"})

	valid := tbl.ValidOnly()
	require.Equal(t, 2, valid.Len())
	require.Equal(t, "a", valid.Rows[0][ColSrcIP])
	require.Equal(t, "c", valid.Rows[1][ColSrcIP])
	require.Equal(t, 3, tbl.Len())
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "flows.csv")
	require.NoError(t, WriteCSVFile(path, FromFlows(sampleFlows())))

	tbl, err := ReadCSVFile(path)
	require.NoError(t, err)
	require.Equal(t, FlowColumns, tbl.Columns)
	require.Equal(t, 2, tbl.Len())

	// Everything comes back as text; absent ports come back absent.
	require.Equal(t, "1234", tbl.Rows[0][ColSrcPort])
	require.Equal(t, "50.0", tbl.Rows[0][ColAvgPacketSize])
	require.Nil(t, tbl.Rows[1][ColDstPort])

	n, err := CoerceInt(tbl.Rows[0][ColByteCount])
	require.NoError(t, err)
	require.Equal(t, int64(100), n)
}

func TestWriteCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, NewTable(ValidatedColumns)))
	require.Equal(t, strings.Join(ValidatedColumns, ",")+"\n", buf.String())
}

func TestReadCSV_MissingValueMarkers(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a,b,c,d,e\nNaN,null,NA,,x\n"))
	require.NoError(t, err)
	row := tbl.Rows[0]
	for _, col := range []string{"a", "b", "c", "d"} {
		require.Nil(t, row[col], col)
	}
	require.Equal(t, "x", row["e"])

	require.True(t, IsMissing("nan"))
	require.True(t, IsMissing(nil))
	require.False(t, IsMissing("0"))
	require.False(t, IsAbsent("NaN"))
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	require.Error(t, err)
}
