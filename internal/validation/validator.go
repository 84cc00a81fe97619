// Package validation checks flow tables against the flow schema, the
// domain rules and cross-row duplicate detection.
package validation

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"context"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Outcome is the verdict for one row.
type Outcome struct {
	Valid  bool
	Errors []string
}

// Reason joins the errors the way they are stored in error_reason.
func (o Outcome) Reason() string {
	return strings.Join(o.Errors, "; ")
}

// Result is the output of one validation run.
type Result struct {
	Outcomes   []Outcome
	Table      *dataset.Table // input rows plus is_valid and error_reason
	Duplicates int
}

// ValidCount returns the number of valid rows.
func (r *Result) ValidCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Valid {
			n++
		}
	}
	return n
}

// ErrorCounts counts how many rows carry each distinct error.
func (r *Result) ErrorCounts() map[string]int {
	counts := make(map[string]int)
	for _, o := range r.Outcomes {
		for _, e := range o.Errors {
			counts[e]++
		}
	}
	return counts
}

// Validator runs the two-phase validation of a flow table.
type Validator struct {
	schema     Schema
	domain     Domain
	numWorkers int
}

// NewValidator creates a validator from its configuration section.
func NewValidator(cfg config.ValidatorConfig) *Validator {
	workers := cfg.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Validator{
		schema:     FlowSchema,
		domain:     Domain{FlagPrivateAddresses: cfg.FlagPrivateAddresses},
		numWorkers: workers,
	}
}

// CheckRow returns the schema and domain errors of a single row, without
// duplicate detection.
func (v *Validator) CheckRow(row dataset.Row) []string {
	errs := v.schema.CheckRow(row)
	return append(errs, v.domain.CheckRow(row)...)
}

// Validate checks every row of t. A table missing schema columns fails with
// a *MissingColumnError before any row is looked at. Otherwise every row
// gets exactly one outcome, in input order.
func (v *Validator) Validate(ctx context.Context, t *dataset.Table) (*Result, error) {
	if err := v.schema.CheckColumns(t); err != nil {
		return nil, err
	}

	dups := BuildDuplicateIndex(t)
	outcomes := make([]Outcome, t.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.numWorkers)
	for i := range t.Rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			errs := v.CheckRow(t.Rows[i])
			if dups.IsDuplicate(i) {
				errs = append(errs, DuplicateMessage)
			}
			errs = distinct(errs)
			outcomes[i] = Outcome{Valid: len(errs) == 0, Errors: errs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Outcomes:   outcomes,
		Table:      annotate(t, outcomes),
		Duplicates: dups.Count(),
	}
	log.WithFields(log.Fields{
		"rows":       t.Len(),
		"valid":      res.ValidCount(),
		"duplicates": res.Duplicates,
	}).Debug("Validated flow table.")
	return res, nil
}

func distinct(errs []string) []string {
	if len(errs) < 2 {
		return errs
	}
	seen := make(map[string]struct{}, len(errs))
	out := errs[:0]
	for _, e := range errs {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// annotate copies t's rows and appends the outcome columns.
func annotate(t *dataset.Table, outcomes []Outcome) *dataset.Table {
	columns := append([]string(nil), t.Columns...)
	for _, col := range []string{dataset.ColIsValid, dataset.ColErrorReason} {
		if !t.HasColumn(col) {
			columns = append(columns, col)
		}
	}

	out := dataset.NewTable(columns)
	out.Rows = make([]dataset.Row, t.Len())
	for i, row := range t.Rows {
		r := row.Clone()
		r[dataset.ColIsValid] = outcomes[i].Valid
		r[dataset.ColErrorReason] = outcomes[i].Reason()
		out.Rows[i] = r
	}
	return out
}
