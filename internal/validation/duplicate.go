package validation

import (
	"NetProfiler/internal/dataset"
	"strconv"
	"strings"
)

// DuplicateMessage is appended to every member of a duplicate group.
const DuplicateMessage = "Duplicate flow detected"

// duplicateKeyColumns form the reduced key two rows must share to be duplicates.
var duplicateKeyColumns = []string{
	dataset.ColSrcIP,
	dataset.ColDstIP,
	dataset.ColSrcPort,
	dataset.ColDstPort,
	dataset.ColProtocol,
	dataset.ColFirstPacketIndex,
}

var intKeyColumns = map[string]bool{
	dataset.ColSrcPort:          true,
	dataset.ColDstPort:          true,
	dataset.ColProtocol:         true,
	dataset.ColFirstPacketIndex: true,
}

// DuplicateIndex maps each reduced key to the rows carrying it. It is built
// once over the whole table and only read afterwards.
type DuplicateIndex struct {
	groups map[string][]int
	keys   []string
}

// BuildDuplicateIndex indexes every row of t by its reduced key.
func BuildDuplicateIndex(t *dataset.Table) *DuplicateIndex {
	idx := &DuplicateIndex{
		groups: make(map[string][]int, t.Len()),
		keys:   make([]string, t.Len()),
	}
	for i, row := range t.Rows {
		key := duplicateKey(row)
		idx.keys[i] = key
		idx.groups[key] = append(idx.groups[key], i)
	}
	return idx
}

// duplicateKey renders the reduced key. Integer columns are canonicalised
// through coercion so "80", 80 and 80.0 collide; absent cells all compare equal.
func duplicateKey(row dataset.Row) string {
	var b strings.Builder
	for i, col := range duplicateKeyColumns {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		cell := row[col]
		if dataset.IsMissing(cell) {
			b.WriteString("\x00")
			continue
		}
		if intKeyColumns[col] {
			if n, err := dataset.CoerceInt(cell); err == nil {
				b.WriteString(strconv.FormatInt(n, 10))
				continue
			}
		}
		b.WriteString(dataset.TypeName(cell))
		b.WriteByte(':')
		b.WriteString(dataset.FormatValue(cell))
	}
	return b.String()
}

// IsDuplicate reports whether row shares its key with at least one other row.
func (d *DuplicateIndex) IsDuplicate(row int) bool {
	if row < 0 || row >= len(d.keys) {
		return false
	}
	return len(d.groups[d.keys[row]]) > 1
}

// Groups returns the row indices of every group with two or more members.
func (d *DuplicateIndex) Groups() [][]int {
	var out [][]int
	for _, rows := range d.groups {
		if len(rows) > 1 {
			out = append(out, rows)
		}
	}
	return out
}

// Count returns the number of rows flagged as duplicates.
func (d *DuplicateIndex) Count() int {
	n := 0
	for _, rows := range d.groups {
		if len(rows) > 1 {
			n += len(rows)
		}
	}
	return n
}
