package validation

import (
	"NetProfiler/internal/dataset"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrMissingColumn is wrapped by MissingColumnError.
var ErrMissingColumn = errors.New("missing required column")

// MissingColumnError reports schema columns absent from a whole table.
// It aborts validation; no rows are checked.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumn, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// FieldRule describes one column of the flow schema.
type FieldRule struct {
	Name     string
	Kind     dataset.Kind
	Required bool
	Min      *float64
	Max      *float64
}

func limit(v float64) *float64 { return &v }

// Schema is an ordered list of field rules. Row errors follow its order.
type Schema []FieldRule

// FlowSchema is the schema every flow table must satisfy.
var FlowSchema = Schema{
	{Name: dataset.ColSrcIP, Kind: dataset.KindText, Required: true},
	{Name: dataset.ColDstIP, Kind: dataset.KindText, Required: true},
	{Name: dataset.ColSrcPort, Kind: dataset.KindInt, Required: true, Min: limit(0), Max: limit(65535)},
	{Name: dataset.ColDstPort, Kind: dataset.KindInt, Required: true, Min: limit(0), Max: limit(65535)},
	{Name: dataset.ColProtocol, Kind: dataset.KindInt, Required: true, Min: limit(0), Max: limit(255)},
	{Name: dataset.ColPacketCount, Kind: dataset.KindInt, Required: true, Min: limit(0)},
	{Name: dataset.ColByteCount, Kind: dataset.KindInt, Required: true, Min: limit(0)},
	{Name: dataset.ColAvgPacketSize, Kind: dataset.KindFloat, Required: true, Min: limit(1.0), Max: limit(65535.0)},
	{Name: dataset.ColFirstPacketIndex, Kind: dataset.KindInt, Required: true, Min: limit(0)},
	{Name: dataset.ColLastPacketIndex, Kind: dataset.KindInt, Required: true, Min: limit(0)},
	{Name: dataset.ColDuration, Kind: dataset.KindFloat, Required: true, Min: limit(0.0)},
	{Name: dataset.ColProtocolName, Kind: dataset.KindText, Required: true},
}

// CheckColumns returns a *MissingColumnError naming every schema column
// the table lacks.
func (s Schema) CheckColumns(t *dataset.Table) error {
	var missing []string
	for _, rule := range s {
		if !t.HasColumn(rule.Name) {
			missing = append(missing, rule.Name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing}
	}
	return nil
}

// CheckRow applies every field rule to the row.
func (s Schema) CheckRow(row dataset.Row) []string {
	var errs []string
	for _, rule := range s {
		errs = append(errs, rule.check(row[rule.Name])...)
	}
	return errs
}

func (r FieldRule) check(cell any) []string {
	if dataset.IsMissing(cell) {
		return r.missing()
	}

	switch r.Kind {
	case dataset.KindInt:
		n, err := dataset.CoerceInt(cell)
		if err != nil {
			return []string{r.typeMismatch(cell)}
		}
		var errs []string
		if r.Min != nil && n < int64(*r.Min) {
			errs = append(errs, fmt.Sprintf("%s: %d < minimum %d", r.Name, n, int64(*r.Min)))
		}
		if r.Max != nil && n > int64(*r.Max) {
			errs = append(errs, fmt.Sprintf("%s: %d > maximum %d", r.Name, n, int64(*r.Max)))
		}
		return errs
	case dataset.KindFloat:
		f, err := dataset.CoerceFloat(cell)
		if err != nil {
			return []string{r.typeMismatch(cell)}
		}
		if math.IsNaN(f) {
			return r.missing()
		}
		var errs []string
		if r.Min != nil && f < *r.Min {
			errs = append(errs, fmt.Sprintf("%s: %s < minimum %s", r.Name, dataset.FormatFloat(f), dataset.FormatFloat(*r.Min)))
		}
		if r.Max != nil && f > *r.Max {
			errs = append(errs, fmt.Sprintf("%s: %s > maximum %s", r.Name, dataset.FormatFloat(f), dataset.FormatFloat(*r.Max)))
		}
		return errs
	default:
		if _, err := dataset.CoerceText(cell); err != nil {
			return []string{r.typeMismatch(cell)}
		}
		return nil
	}
}

func (r FieldRule) missing() []string {
	if r.Required {
		return []string{fmt.Sprintf("%s: required but missing.", r.Name)}
	}
	return nil
}

func (r FieldRule) typeMismatch(cell any) string {
	return fmt.Sprintf("%s: expected %s, got %s", r.Name, r.Kind, dataset.TypeName(cell))
}
