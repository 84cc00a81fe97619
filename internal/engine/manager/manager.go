package manager

import (
	"NetProfiler/internal/alerter"
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/engine/flowaggregator"
	"NetProfiler/internal/factory"
	"NetProfiler/internal/model"
	"NetProfiler/internal/notification"
	_ "NetProfiler/internal/sink" // Registers the dataset writers
	"NetProfiler/internal/validation"
	"NetProfiler/pkg/pcap"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Report is the result of one analysis.
type Report struct {
	Summary   model.Summary
	Flows     []*model.FlowRecord // nil when a table was validated directly
	Raw       *dataset.Table
	Validated *dataset.Table
	Outcomes  []validation.Outcome
	Alerts    []alerter.Alert
}

// Manager runs the analysis pipeline: capture, flows, validation, writers
// and alerts.
type Manager struct {
	cfg       *config.Config
	writers   []factory.Writer
	validator *validation.Validator
	alerter   *alerter.Alerter
	now       func() time.Time
}

// NewManager creates the writers and the alerter described by cfg.
func NewManager(cfg *config.Config) (*Manager, error) {
	writers, err := factory.Create(cfg)
	if err != nil {
		return nil, err
	}

	var alertr *alerter.Alerter
	if cfg.Alerter.Enabled {
		var notifier model.Notifier
		if cfg.SMTP.Host != "" {
			notifier = notification.NewEmailNotifier(cfg.SMTP)
		} else {
			log.Println("Alerter is enabled but no SMTP host is configured; alerts will only be logged.")
		}
		alertr, err = alerter.NewAlerter(cfg.Alerter, notifier)
		if err != nil {
			for _, w := range writers {
				w.Close()
			}
			return nil, fmt.Errorf("failed to create alerter: %w", err)
		}
		log.Println("Alerter enabled and initialized.")
	}

	return &Manager{
		cfg:       cfg,
		writers:   writers,
		validator: validation.NewValidator(cfg.Validator),
		alerter:   alertr,
		now:       time.Now,
	}, nil
}

// CaptureName derives a batch name from a capture or CSV path.
func CaptureName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// AnalyzeCapture reads a pcap or pcapng file and runs the full pipeline on it.
func (m *Manager) AnalyzeCapture(ctx context.Context, path string) (*Report, error) {
	reader, err := pcap.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return m.analyze(ctx, CaptureName(path), reader)
}

// AnalyzeStream runs the full pipeline on a capture read from r.
func (m *Manager) AnalyzeStream(ctx context.Context, name string, r io.Reader) (*Report, error) {
	if err := factory.CheckName(name); err != nil {
		return nil, err
	}
	reader, err := pcap.NewStreamReader(r)
	if err != nil {
		return nil, err
	}
	return m.analyze(ctx, name, reader)
}

func (m *Manager) analyze(ctx context.Context, name string, reader *pcap.Reader) (*Report, error) {
	reader.SetIncludeIPv6(m.cfg.Extractor.IncludeIPv6)

	agg := flowaggregator.NewAggregator(m.cfg.Aggregator)
	agg.Start()
	stats, err := reader.ReadPackets(ctx, agg.Input())
	flows := agg.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to read capture '%s': %w", name, err)
	}
	log.WithFields(log.Fields{
		"capture":    name,
		"packets":    stats.TotalPackets,
		"ip_packets": stats.IPPackets,
		"flows":      len(flows),
	}).Info("Aggregated capture into flows.")

	base := model.Summary{
		Capture:      name,
		TotalPackets: stats.TotalPackets,
		IPPackets:    stats.IPPackets,
	}
	report, err := m.run(ctx, name, dataset.FromFlows(flows), base)
	if report != nil {
		report.Flows = flows
	}
	return report, err
}

// ValidateTable runs validation, writers and alerts on an existing flow table.
func (m *Manager) ValidateTable(ctx context.Context, name string, tbl *dataset.Table) (*Report, error) {
	return m.run(ctx, name, tbl, model.Summary{Capture: name})
}

// run validates raw and hands the result to the writers and the alerter.
// A missing schema column is fatal and nothing is written. Writer and
// notification failures are returned together with the report.
func (m *Manager) run(ctx context.Context, name string, raw *dataset.Table, summary model.Summary) (*Report, error) {
	if err := factory.CheckName(name); err != nil {
		return nil, err
	}
	res, err := m.validator.Validate(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("validation of '%s' failed: %w", name, err)
	}

	summary.TotalFlows = raw.Len()
	summary.ValidFlows = res.ValidCount()
	summary.InvalidFlows = summary.TotalFlows - summary.ValidFlows
	summary.DuplicateFlows = res.Duplicates
	summary.ErrorCounts = res.ErrorCounts()

	report := &Report{
		Summary:   summary,
		Raw:       raw,
		Validated: res.Table,
		Outcomes:  res.Outcomes,
	}
	log.WithFields(log.Fields{
		"capture":    name,
		"flows":      summary.TotalFlows,
		"valid":      summary.ValidFlows,
		"invalid":    summary.InvalidFlows,
		"duplicates": summary.DuplicateFlows,
	}).Info("Validated flows.")

	batch := &factory.Batch{
		Name:      name,
		Timestamp: m.now(),
		Raw:       raw,
		Validated: res.Table,
		Summary:   summary,
	}
	var errs []error
	if err := m.write(ctx, batch); err != nil {
		errs = append(errs, err)
	}

	if m.alerter != nil {
		alerts, err := m.alerter.Run(summary)
		report.Alerts = alerts
		if err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// write hands the batch to every writer concurrently. A failing writer does
// not stop the others; all failures are returned joined.
func (m *Manager) write(ctx context.Context, batch *factory.Batch) error {
	errs := make([]error, len(m.writers))
	var g errgroup.Group
	for i, w := range m.writers {
		g.Go(func() error {
			if err := w.Write(ctx, batch); err != nil {
				log.WithField("writer", w.Type()).Errorf("Error writing flows for '%s': %v", batch.Name, err)
				errs[i] = fmt.Errorf("%s writer: %w", w.Type(), err)
			}
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

// Close closes every writer.
func (m *Manager) Close() error {
	log.Println("Manager stopping...")
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s writer: %w", w.Type(), err))
		}
	}
	return errors.Join(errs...)
}
