package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/tgsync/internal/hw/sim"
	"github.com/roach88/tgsync/internal/orchestrator"
	"github.com/roach88/tgsync/internal/store"
	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/timeline"
	"github.com/roach88/tgsync/internal/workerpool"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Database    string
	MetricsAddr string
	Generator   string
	LateWarning time.Duration

	// Simulated moveable for Position-domain playback.
	Simulate bool
	Start    float64
	Target   float64
	Step     float64
	Interval time.Duration
}

// PlayResult summarizes a playback.
type PlayResult struct {
	RunID         string  `json:"run_id,omitempty"`
	Outcome       string  `json:"outcome"`
	ActiveDomain  string  `json:"active_domain"`
	PassiveDomain string  `json:"passive_domain"`
	Direction     int     `json:"direction"`
	Events        int     `json:"events"`
	Timed         int     `json:"timed"`
	MeanLateness  float64 `json:"mean_lateness_seconds"`
	MaxLateness   float64 `json:"max_lateness_seconds"`
	Error         string  `json:"error,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <description>",
		Short: "Play a description on the software generator",
		Long: `Play a synchronization description on the software timeline generator
and print every event as it fires.

Time-domain playback runs against the wall clock. Position-domain playback
needs a moveable: --simulate sweeps a simulated motor from --start to
--target in steps of --step.

Examples:
  tgsync play scan.yaml
  tgsync play scan.yaml --db ./tgsync.db --metrics-addr :9100
  tgsync play step-scan.yaml --simulate --start 0 --target 10 --step 0.05`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during playback")
	cmd.Flags().StringVar(&opts.Generator, "name", orchestrator.DefaultGeneratorName, "software generator name")
	cmd.Flags().DurationVar(&opts.LateWarning, "late-warning", time.Millisecond, "log a warning for events later than this")
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "drive playback with a simulated moveable")
	cmd.Flags().Float64Var(&opts.Start, "start", 0, "simulated moveable start position")
	cmd.Flags().Float64Var(&opts.Target, "target", 1, "simulated moveable target position")
	cmd.Flags().Float64Var(&opts.Step, "step", 0.01, "simulated moveable step")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 10*time.Millisecond, "simulated moveable sample interval")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	doc, err := synch.LoadFile(path)
	if err != nil {
		return formatter.Fail(path, err)
	}
	active, passive, direction, err := resolveDocument(doc, opts.Simulate)
	if err != nil {
		return formatter.Fail(path, err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	metrics := timeline.NewMetrics(reg)
	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "addr", opts.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	gen := timeline.NewGenerator(opts.Generator,
		timeline.WithMetrics(metrics),
		timeline.WithLatenessWarning(opts.LateWarning),
	)
	pool := workerpool.New(ctx)
	defer pool.Shutdown()
	orch := orchestrator.New(pool, orchestrator.WithGenerator(gen))

	printer := &eventPrinter{w: formatter.Writer, quiet: opts.Format == "json"}
	orch.AddListener(printer)
	defer orch.RemoveListener(printer)

	startOpts := orchestrator.StartOptions{
		ActiveDomain:  active,
		PassiveDomain: passive,
		Direction:     direction,
	}
	var mov *sim.Moveable
	if opts.Simulate {
		mov = sim.NewMoveable("sim-motor", opts.Start)
		startOpts.Moveable = mov
	}

	var st *store.Store
	result := PlayResult{
		ActiveDomain:  active.String(),
		PassiveDomain: passive.String(),
		Direction:     direction,
	}
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		result.RunID = store.NewRunID()
		if err := st.CreateRun(ctx, store.Run{
			ID:            result.RunID,
			Generator:     gen.Name(),
			ActiveDomain:  active,
			PassiveDomain: passive,
			Direction:     direction,
			Cycles:        doc.Synchronization.TotalRepeats(),
			Description:   doc.Synchronization,
			StartedAt:     time.Now(),
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		startOpts.Monitor = st.NewRecorder(result.RunID)
	}

	slog.Debug("starting playback", "path", path, "cycles", doc.Synchronization.TotalRepeats())
	runErr := playback(ctx, orch, doc.Synchronization, startOpts, mov, opts)

	result.Outcome = store.OutcomeOf(runErr)
	if runErr != nil {
		result.Error = runErr.Error()
	}
	if st != nil {
		if err := st.FinishRun(context.WithoutCancel(ctx), result.RunID, result.Outcome, runErr, time.Now()); err != nil {
			slog.Error("failed to finish run", "run", result.RunID, "error", err)
		}
	}

	stats := gen.Stats()
	result.Events = stats.Fired
	result.Timed = stats.Timed
	result.MeanLateness = stats.MeanLateness.Seconds()
	result.MaxLateness = stats.MaxLateness.Seconds()

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if runErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: errorCode(runErr), Message: runErr.Error()}
		}
		if err := json.NewEncoder(formatter.Writer).Encode(resp); err != nil {
			return err
		}
	} else {
		outputPlayText(formatter.Writer, result, stats)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "playback "+result.Outcome, runErr)
	}
	return nil
}

// playback runs one action, sweeping mov concurrently when given.
func playback(ctx context.Context, orch *orchestrator.Orchestrator, desc synch.Description, startOpts orchestrator.StartOptions, mov *sim.Moveable, opts *PlayOptions) error {
	if err := orch.StartAction(ctx, orchestrator.Config{}, desc, startOpts); err != nil {
		return err
	}
	moveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	moved := make(chan struct{})
	if mov != nil {
		go func() {
			defer close(moved)
			if err := mov.Move(moveCtx, opts.Target, opts.Step, opts.Interval); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("simulated moveable stopped", "error", err)
			}
		}()
	} else {
		close(moved)
	}

	err := orch.ActionLoop(ctx)
	cancel()
	<-moved
	return err
}

// eventPrinter prints events as they fire.
type eventPrinter struct {
	w     io.Writer
	quiet bool
}

func (p *eventPrinter) EventReceived(src timeline.Source, ev timeline.Event) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "%-7s #%-4d %-8s %12.6f  +%-12s late %s\n",
		ev.Type, ev.Index, ev.Coordinate.Domain(), ev.Coordinate.Value(),
		ev.Elapsed.Round(time.Microsecond), ev.Lateness.Round(time.Microsecond))
}

func outputPlayText(w io.Writer, r PlayResult, stats timeline.Stats) {
	p := newPrinter()
	fmt.Fprintln(w)
	mark := "✓"
	if r.Outcome != store.OutcomeCompleted {
		mark = "✗"
	}
	p.Fprintf(w, "%s Playback %s: %d event(s)", mark, r.Outcome, r.Events)
	if r.RunID != "" {
		fmt.Fprintf(w, ", run %s", r.RunID)
	}
	fmt.Fprintln(w)
	if stats.Timed > 0 {
		p.Fprintf(w, "  lateness over %d timed event(s): mean %v, max %v\n",
			stats.Timed, stats.MeanLateness, stats.MaxLateness)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
}
