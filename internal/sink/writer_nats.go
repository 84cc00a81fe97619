package sink

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/factory"
	"NetProfiler/internal/probe"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("nats", NewNATSWriter)
}

// NATSWriter publishes every validated row as one message.
type NATSWriter struct {
	pub *probe.Publisher
}

// NewNATSWriter connects to NATS.
func NewNATSWriter(def config.WriterDef) (factory.Writer, error) {
	if def.NATS.Subject == "" {
		return nil, fmt.Errorf("nats writer requires subject")
	}
	pub, err := probe.NewPublisher(def.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSWriter{pub: pub}, nil
}

func (w *NATSWriter) Type() string { return "nats" }

func (w *NATSWriter) Write(ctx context.Context, batch *factory.Batch) error {
	for i, row := range batch.Validated.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := probe.FlowMessage{Capture: batch.Name, AnalyzedAt: batch.Timestamp, Row: row}
		if err := w.pub.Publish(msg); err != nil {
			return fmt.Errorf("failed to publish row %d: %w", i, err)
		}
	}
	if err := w.pub.Flush(); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}
	log.Printf("Published %d flows for capture '%s'", batch.Validated.Len(), batch.Name)
	return nil
}

func (w *NATSWriter) Close() error {
	w.pub.Close()
	return nil
}
