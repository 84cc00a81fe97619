package sink

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/factory"
	"context"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("csv", NewCSVWriter)
}

// CSVWriter writes the validated table, and optionally the raw flow table,
// as CSV files named after the capture.
type CSVWriter struct {
	rootPath   string
	includeRaw bool
	validOnly  bool
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(def config.WriterDef) (factory.Writer, error) {
	if def.CSV.RootPath == "" {
		return nil, fmt.Errorf("csv writer requires root_path")
	}
	return &CSVWriter{
		rootPath:   def.CSV.RootPath,
		includeRaw: def.CSV.IncludeRaw,
		validOnly:  def.CSV.ValidOnly,
	}, nil
}

func (w *CSVWriter) Type() string { return "csv" }

// Paths returns the files written for a batch name.
func (w *CSVWriter) Paths(name string) (raw, validated string) {
	return filepath.Join(w.rootPath, name+"_flows.csv"),
		filepath.Join(w.rootPath, name+"_flows_validated.csv")
}

func (w *CSVWriter) Write(ctx context.Context, batch *factory.Batch) error {
	if err := factory.CheckName(batch.Name); err != nil {
		return err
	}
	rawPath, validatedPath := w.Paths(batch.Name)

	if w.includeRaw && batch.Raw != nil {
		if err := dataset.WriteCSVFile(rawPath, batch.Raw); err != nil {
			return err
		}
	}

	tbl := batch.Validated
	if w.validOnly {
		tbl = tbl.ValidOnly()
	}
	if err := dataset.WriteCSVFile(validatedPath, tbl); err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": validatedPath, "rows": tbl.Len()}).Info("Wrote validated flows.")
	return nil
}

func (w *CSVWriter) Close() error { return nil }
