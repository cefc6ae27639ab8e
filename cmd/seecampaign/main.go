// Command seecampaign runs single-event-effect injection campaigns against the
// in-memory demo design.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/see-armada/internal/config"
	"github.com/ahrav/see-armada/internal/config/fileloader"
	"github.com/ahrav/see-armada/pkg/common/logger"
	"github.com/ahrav/see-armada/pkg/common/otel"
)

const serviceName = "seecampaign"

type options struct {
	configPath     string
	logFile        string
	reportPath     string
	metricsAddr    string
	otlpEndpoint   string
	stepsPerSecond float64
	maxSimTime     time.Duration
}

func main() {
	_, _ = maxprocs.Set()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Inject single-event upsets and transients into a simulated design",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "campaign configuration file (YAML)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run a campaign until its goal is met or it is interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	run.Flags().StringVar(&opts.reportPath, "report", "-", `write the YAML report here ("-" for stdout, "" to skip)`)
	run.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	run.Flags().StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "export traces and metrics to this OTLP gRPC endpoint")
	run.Flags().Float64Var(&opts.stepsPerSecond, "steps-per-second", 0, "pace simulated clock steps (0 means as fast as possible)")
	run.Flags().DurationVar(&opts.maxSimTime, "max-sim-time", 0, "abort once simulated time reaches this value (0 means no limit)")

	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "List the injection candidates selected by the configured filters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return catalogCommand(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	root.AddCommand(run, catalog)
	return root
}

// loadSettings reads the environment and the campaign file.
func loadSettings(ctx context.Context, opts *options) (config.Env, *config.Campaign, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return config.Env{}, nil, err
	}
	cfg, err := fileloader.NewFileLoader(opts.configPath).Load(ctx)
	if err != nil {
		return config.Env{}, nil, err
	}
	return env, cfg, nil
}

// newLogger builds the process logger. Error records are also echoed to
// stderr as JSON so they stand out from the per-event stream.
func newLogger(env config.Env, logFile string) (*logger.Logger, func() error, error) {
	var w io.Writer = os.Stdout
	closeFn := func() error { return nil }
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}

	events := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = fmt.Sprint(v)
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	hostname, _ := os.Hostname()
	metadata := map[string]string{
		"hostname":  hostname,
		"app":       serviceName,
		"simulator": env.Simulator,
	}

	log := logger.NewWithMetadata(w, logger.ParseLevel(env.LogLevel), serviceName, otel.GetTraceID, events, metadata)
	return log, closeFn, nil
}
