package sink

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/factory"
	"NetProfiler/internal/model"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SnapshotData is the gob payload of a snapshot.
type SnapshotData struct {
	Name      string
	Timestamp time.Time
	Columns   []string
	Rows      []dataset.Row
}

// SummaryData is written next to every snapshot as summary.json.
type SummaryData struct {
	model.Summary
	Timestamp string `json:"timestamp"`
}

func init() {
	factory.RegisterWriter("snapshot", NewGobWriter)
}

// GobWriter writes the validated table as a gob snapshot plus a JSON summary
// under <root>/<timestamp>/<name>/.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a snapshot writer.
func NewGobWriter(def config.WriterDef) (factory.Writer, error) {
	if def.Snapshot.RootPath == "" {
		return nil, fmt.Errorf("snapshot writer requires root_path")
	}
	return &GobWriter{rootPath: def.Snapshot.RootPath}, nil
}

func (w *GobWriter) Type() string { return "snapshot" }

// Dir returns the directory a batch is written to.
func (w *GobWriter) Dir(batch *factory.Batch) string {
	return filepath.Join(w.rootPath, batch.Timestamp.UTC().Format(snapshotTimeLayout), batch.Name)
}

func (w *GobWriter) Write(ctx context.Context, batch *factory.Batch) error {
	if err := factory.CheckName(batch.Name); err != nil {
		return err
	}
	dir := w.Dir(batch)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	flowsPath := filepath.Join(dir, "flows.dat")
	file, err := os.Create(flowsPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", flowsPath, err)
	}
	defer file.Close()

	snapshot := SnapshotData{
		Name:      batch.Name,
		Timestamp: batch.Timestamp,
		Columns:   batch.Validated.Columns,
		Rows:      batch.Validated.Rows,
	}
	if err := gob.NewEncoder(file).Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode flows to gob for file '%s': %w", flowsPath, err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	summary := SummaryData{
		Summary:   batch.Summary,
		Timestamp: batch.Timestamp.UTC().Format(time.RFC3339),
	}
	summaryFilePath := filepath.Join(dir, "summary.json")
	summaryFile, err := os.Create(summaryFilePath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return summaryFile.Close()
}

func (w *GobWriter) Close() error { return nil }

// ReadSnapshot loads a flows.dat file written by GobWriter.
func ReadSnapshot(path string) (*SnapshotData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snapshot SnapshotData
	if err := gob.NewDecoder(file).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot '%s': %w", path, err)
	}
	return &snapshot, nil
}
