package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/see-armada/internal/app/injection"
	injmetrics "github.com/ahrav/see-armada/internal/app/injection/metrics"
	"github.com/ahrav/see-armada/internal/config"
	"github.com/ahrav/see-armada/internal/domain/events"
	domain "github.com/ahrav/see-armada/internal/domain/injection"
	eventdispatcher "github.com/ahrav/see-armada/internal/infra/event_dispatcher"
	"github.com/ahrav/see-armada/internal/infra/eventbus/memory"
	sim "github.com/ahrav/see-armada/internal/infra/sim/memory"
	"github.com/ahrav/see-armada/pkg/common"
	"github.com/ahrav/see-armada/pkg/common/logger"
	"github.com/ahrav/see-armada/pkg/common/otel"
)

// errSimTimeExceeded aborts a run that reached --max-sim-time.
var errSimTimeExceeded = errors.New("simulated time limit reached")

type telemetry struct {
	tracer         trace.Tracer
	meterProvider  metric.MeterProvider
	metricsHandler http.Handler
	teardown       func(context.Context)
}

// newTelemetry exports to OTLP when an endpoint is set, and otherwise keeps
// metrics local, exposed through a Prometheus handler when requested.
func newTelemetry(log *logger.Logger, opts *options) (telemetry, error) {
	if opts.otlpEndpoint != "" {
		tp, mp, teardown, err := otel.InitTelemetry(log, otel.Config{
			ServiceName:      serviceName,
			ExporterEndpoint: opts.otlpEndpoint,
			Probability:      1,
			ResourceAttributes: map[string]string{
				"library.language": "go",
			},
			InsecureExporter: true,
		})
		if err != nil {
			return telemetry{}, err
		}
		return telemetry{tracer: tp.Tracer(serviceName), meterProvider: mp, teardown: teardown}, nil
	}

	t := telemetry{tracer: noop.NewTracerProvider().Tracer(serviceName), teardown: func(context.Context) {}}
	var err error
	if opts.metricsAddr != "" {
		t.meterProvider, t.metricsHandler, err = otel.NewPrometheusMeterProvider(serviceName)
	} else {
		t.meterProvider, err = otel.NewMeterProvider(serviceName)
	}
	if err != nil {
		return telemetry{}, err
	}
	return t, nil
}

func runCommand(ctx context.Context, opts *options, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, cfg, err := loadSettings(ctx, opts)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(env, opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	tel, err := newTelemetry(log, opts)
	if err != nil {
		log.Error(ctx, "failed to initialize telemetry", "error", err)
		return err
	}
	defer tel.teardown(context.WithoutCancel(ctx))

	report, runErr := runCampaign(ctx, opts, env, cfg, log, tel)
	if err := writeReportFile(opts.reportPath, out, report); err != nil {
		log.Error(ctx, "failed to write report", "error", err)
		return errors.Join(runErr, err)
	}
	return runErr
}

// runCampaign drives one campaign on the demo design. The design logic, the
// simulated clock and the optional metrics server run in an errgroup that is
// torn down once the campaign has been joined.
func runCampaign(
	ctx context.Context,
	opts *options,
	env config.Env,
	cfg *config.Campaign,
	log *logger.Logger,
	tel telemetry,
) (Report, error) {
	campaignID := uuid.New()
	design := newDemoDesign()
	clk := sim.NewClock()

	bus := memory.NewBroker()
	defer bus.Close()

	collector := &roundCollector{}
	if err := subscribeMonitor(context.WithoutCancel(ctx), bus, collector, log, tel.tracer); err != nil {
		return Report{}, err
	}

	metrics, err := injmetrics.New(tel.meterProvider)
	if err != nil {
		return Report{}, fmt.Errorf("failed to create metrics: %w", err)
	}

	obs := newSink(cfg.Observability, design.tb, campaignID, bus)
	injCfg, err := newInjectorConfig(cfg, env, clk, obs, campaignID)
	if err != nil {
		return Report{}, err
	}

	inj, err := injection.NewHierarchyInjector(ctx, injCfg, []domain.Node{design.dut}, bus, log, tel.tracer, metrics)
	if err != nil {
		return Report{}, err
	}

	// The simulation outlives an interrupt so a stopped campaign can finish the
	// round in flight. It is torn down once the campaign has been joined.
	simCtx, cancelSim := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSim()
	g, gctx := errgroup.WithContext(simCtx)

	g.Go(func() error { return design.run(gctx, clk) })
	g.Go(func() error {
		return driveClock(gctx, clk, common.NewPacer(opts.stepsPerSecond, 1), opts.maxSimTime)
	})
	if tel.metricsHandler != nil {
		g.Go(func() error { return common.RunMetricsServer(gctx, opts.metricsAddr, tel.metricsHandler) })
		log.Info(ctx, "serving metrics", "addr", opts.metricsAddr)
	}

	// Interrupts stop the campaign at the next round boundary.
	stopOnInterrupt := context.AfterFunc(ctx, inj.Stop)
	defer stopOnInterrupt()

	// Once the simulation is gone no pending wait can ever finish, so the
	// campaign is cancelled instead of stopped.
	if err := inj.Start(gctx); err != nil {
		cancelSim()
		_ = g.Wait()
		return newReport(inj.Summary()), err
	}

	runErr := inj.Join(context.WithoutCancel(ctx))
	simErr := gctx.Err()
	cancelSim()
	if errors.Is(runErr, context.Canceled) && simErr != nil {
		runErr = nil
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		runErr = errors.Join(runErr, err)
	}

	inj.PrintSummary(ctx)

	report := newReport(inj.Summary())
	report.Simulator = env.Simulator
	report.PulseMode = injCfg.Engine.PulseMode.String()
	report.SimTime = clk.Now().String()
	report.History = collector.history()
	if runErr != nil {
		report.Error = runErr.Error()
	}
	return report, runErr
}

// subscribeMonitor routes the campaign's lifecycle events to log lines and
// its round events to collector.
func subscribeMonitor(
	ctx context.Context,
	bus events.EventBus,
	collector *roundCollector,
	log *logger.Logger,
	tracer trace.Tracer,
) error {
	d := eventdispatcher.New(tracer, log)
	d.RegisterHandler(ctx, domain.EventTypeFaultRoundInjected, collector.onRound)
	d.RegisterHandler(ctx, domain.EventTypeCampaignStarted, func(ctx context.Context, evt events.EventEnvelope) error {
		if e, ok := evt.Payload.(domain.CampaignStartedEvent); ok {
			log.Info(ctx, "campaign started", "campaign_id", evt.Key, "name", e.Name,
				"seu_candidates", e.SEUCandidates, "set_candidates", e.SETCandidates)
		}
		return nil
	})
	d.RegisterHandler(ctx, domain.EventTypeCampaignCompleted, func(ctx context.Context, evt events.EventEnvelope) error {
		if e, ok := evt.Payload.(domain.CampaignCompletedEvent); ok {
			log.Info(ctx, "campaign completed", "campaign_id", evt.Key,
				"faults_injected", e.FaultsInjected, "rounds", e.Rounds, "error", e.Err)
		}
		return nil
	})

	if err := bus.Subscribe(ctx, d.EventTypes(), d.Dispatch); err != nil {
		return fmt.Errorf("failed to subscribe campaign monitor: %w", err)
	}
	return nil
}

// driveClock advances simulated time to the next pending deadline, at the
// pace allowed by pacer, until ctx is cancelled or limit is reached.
func driveClock(ctx context.Context, clk *sim.Clock, pacer *common.Pacer, limit time.Duration) error {
	const (
		sleepers = 2
		patience = time.Millisecond
	)
	for {
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
		if limit > 0 && clk.Now() >= limit {
			return errSimTimeExceeded
		}

		// Give the design and the campaign a chance to go back to sleep before
		// jumping ahead, so neither misses a deadline.
		deadline := time.Now().Add(patience)
		for clk.Pending() < sleepers && time.Now().Before(deadline) {
			if err := ctx.Err(); err != nil {
				return err
			}
			time.Sleep(10 * time.Microsecond)
		}
		clk.AdvanceToNext()
	}
}

func catalogCommand(ctx context.Context, opts *options, out io.Writer) error {
	env, cfg, err := loadSettings(ctx, opts)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(env, opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	builder, err := injection.NewCatalogBuilder(injection.Filters{
		ExcludeNames:   cfg.Filters.ExcludeNames,
		ExcludePaths:   cfg.Filters.ExcludePaths,
		ExcludeModules: cfg.Filters.ExcludeModules,
		IncludeNames:   cfg.Filters.IncludeNames,
	}, cfg.MaxSignalWidth, log, noop.NewTracerProvider().Tracer(serviceName))
	if err != nil {
		return err
	}

	cat, err := builder.Build(ctx, newDemoDesign().dut)
	if err != nil {
		return err
	}
	return writeCatalog(out, cat)
}
