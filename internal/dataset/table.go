// Package dataset holds flow tables: rows of loosely typed cells that come
// either from aggregated flows or from an external CSV file.
package dataset

import (
	"NetProfiler/internal/model"
	"slices"
	"strconv"
)

// Row maps a column name to a cell. Cells are nil (absent), int64, float64,
// string or bool.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered list of rows sharing a column set.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Append adds a row at the end of the table.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Filter returns a table holding the rows for which keep returns true.
// Rows are shared with t, not copied.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := NewTable(t.Columns)
	for _, r := range t.Rows {
		if keep(r) {
			out.Append(r)
		}
	}
	return out
}

// ValidOnly keeps the rows marked valid by validation.
func (t *Table) ValidOnly() *Table {
	return t.Filter(IsValidRow)
}

// IsValidRow reports whether a row's is_valid cell is true. Text cells from
// a re-read CSV are parsed.
func IsValidRow(r Row) bool {
	switch v := r[ColIsValid].(type) {
	case bool:
		return v
	case string:
		ok, err := strconv.ParseBool(v)
		return err == nil && ok
	}
	return false
}

// FromFlows builds a raw flow table. Absent ports become absent cells.
func FromFlows(flows []*model.FlowRecord) *Table {
	t := NewTable(FlowColumns)
	t.Rows = make([]Row, 0, len(flows))
	for _, f := range flows {
		t.Append(Row{
			ColSrcIP:            f.SrcIP,
			ColDstIP:            f.DstIP,
			ColSrcPort:          portCell(f.SrcPort),
			ColDstPort:          portCell(f.DstPort),
			ColProtocol:         int64(f.Protocol),
			ColPacketCount:      int64(f.PacketCount),
			ColByteCount:        int64(f.ByteCount),
			ColAvgPacketSize:    f.AvgPacketSize,
			ColFirstPacketIndex: int64(f.FirstPacketIndex),
			ColLastPacketIndex:  int64(f.LastPacketIndex),
			ColDuration:         f.Duration,
			ColProtocolName:     f.ProtocolName,
		})
	}
	return t
}

func portCell(p model.Port) any {
	if !p.Valid {
		return nil
	}
	return int64(p.Num)
}
