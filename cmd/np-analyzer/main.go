package main

import (
	"NetProfiler/internal/config"
	"NetProfiler/internal/dataset"
	"NetProfiler/internal/engine/manager"
	"NetProfiler/internal/probe"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath    string
	bidirectional bool
	flagPrivate   bool
	jsonOutput    bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "np-analyzer",
		Short: "Extract, aggregate and validate network flows from packet captures",
		Long: `np-analyzer reads pcap/pcapng captures, aggregates IP packets into
5-tuple flows, validates every flow against the flow schema and domain rules,
and hands the annotated dataset to the configured writers.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&flagPrivate, "flag-private", false, "Report RFC 1918 addresses as errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON instead of tables")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <capture>",
		Short: "Analyze a pcap or pcapng file",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().BoolVar(&bidirectional, "bidirectional", false, "Merge both directions of a conversation into one flow")

	validateCmd := &cobra.Command{
		Use:   "validate <flows.csv>",
		Short: "Validate an existing flow CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print validated flows published on NATS",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}

	rootCmd.AddCommand(analyzeCmd, validateCmd, watchCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Log.ApplyLogging(); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("flag-private") {
		cfg.Validator.FlagPrivateAddresses = flagPrivate
	}
	if f := cmd.Flags().Lookup("bidirectional"); f != nil && f.Changed {
		cfg.Aggregator.Bidirectional = bidirectional
	}
	log.Println("Configuration loaded successfully.")
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := manager.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	defer m.Close()

	ctx, cancel := signalContext()
	defer cancel()

	log.Printf("Reading packets from '%s'...", args[0])
	report, err := m.AnalyzeCapture(ctx, args[0])
	return finish(report, err)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tbl, err := dataset.ReadCSVFile(args[0])
	if err != nil {
		return err
	}
	m, err := manager.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	defer m.Close()

	ctx, cancel := signalContext()
	defer cancel()

	report, err := m.ValidateTable(ctx, manager.CaptureName(args[0]), tbl)
	return finish(report, err)
}

// finish prints whatever was produced and returns err. A report with an
// error means validation completed but a writer or the notifier failed.
func finish(report *manager.Report, err error) error {
	if report == nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report.Summary); encErr != nil {
			return errors.Join(err, encErr)
		}
	} else {
		renderSummary(os.Stdout, report)
	}
	if err != nil {
		log.Errorf("Analysis finished with errors: %v", err)
	}
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	def, ok := cfg.EnabledWriter("nats")
	if !ok {
		return errors.New("no enabled nats writer in the configuration")
	}

	sub, err := probe.NewSubscriber(def.NATS)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer sub.Close()

	err = sub.Start(func(msg probe.FlowMessage) {
		fields := log.Fields{"capture": msg.Capture}
		for _, col := range dataset.ValidatedColumns {
			fields[col] = dataset.FormatValue(msg.Row[col])
		}
		log.WithFields(fields).Info("Received flow")
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	<-ctx.Done()
	log.Println("Shutting down watcher...")
	return nil
}
