// Package sink holds the dataset writers. Each writer registers itself with
// the factory under its config type name.
package sink

import (
	"NetProfiler/internal/dataset"
	"strings"
)

const snapshotTimeLayout = "2006-01-02_15-04-05"

// column describes one stored column of the validated_flows table.
type column struct {
	name string
	kind dataset.Kind
}

// storedColumns are the typed columns the SQL writers persist, after the
// capture name and analysis time.
var storedColumns = []column{
	{dataset.ColSrcIP, dataset.KindText},
	{dataset.ColDstIP, dataset.KindText},
	{dataset.ColSrcPort, dataset.KindInt},
	{dataset.ColDstPort, dataset.KindInt},
	{dataset.ColProtocol, dataset.KindInt},
	{dataset.ColPacketCount, dataset.KindInt},
	{dataset.ColByteCount, dataset.KindInt},
	{dataset.ColAvgPacketSize, dataset.KindFloat},
	{dataset.ColFirstPacketIndex, dataset.KindInt},
	{dataset.ColLastPacketIndex, dataset.KindInt},
	{dataset.ColDuration, dataset.KindFloat},
	{dataset.ColProtocolName, dataset.KindText},
}

// typedCells converts a row into values for storedColumns followed by
// is_valid and error_reason. Cells that cannot be coerced are stored as NULL;
// the row's error_reason already says why.
func typedCells(row dataset.Row) []any {
	out := make([]any, 0, len(storedColumns)+2)
	for _, c := range storedColumns {
		cell := row[c.name]
		if dataset.IsMissing(cell) {
			out = append(out, nil)
			continue
		}
		v, err := dataset.Coerce(c.kind, cell)
		if err != nil {
			v = nil
		}
		out = append(out, v)
	}
	return append(out, dataset.IsValidRow(row), reasonOf(row))
}

func reasonOf(row dataset.Row) string {
	s, _ := row[dataset.ColErrorReason].(string)
	return s
}

// insertColumns lists the columns of an INSERT into validated_flows.
func insertColumns() string {
	names := []string{"capture", "analyzed_at"}
	for _, c := range storedColumns {
		names = append(names, c.name)
	}
	names = append(names, dataset.ColIsValid, dataset.ColErrorReason)
	return strings.Join(names, ", ")
}
