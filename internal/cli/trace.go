package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tgsync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show one run in detail
	Limit    int
}

// RunSummary is one stored run in a listing.
type RunSummary struct {
	ID            string     `json:"id"`
	Generator     string     `json:"generator"`
	ActiveDomain  string     `json:"active_domain"`
	PassiveDomain string     `json:"passive_domain"`
	Direction     int        `json:"direction"`
	Cycles        int        `json:"cycles"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Outcome       string     `json:"outcome"`
	Error         string     `json:"error,omitempty"`
}

// TraceEvent is one stored event of a run.
type TraceEvent struct {
	Seq        int     `json:"seq"`
	Type       string  `json:"type"`
	Index      int     `json:"index"`
	Domain     string  `json:"domain"`
	Coordinate float64 `json:"coordinate"`
	ElapsedNS  int64   `json:"elapsed_ns"`
	LatenessNS int64   `json:"lateness_ns"`
}

// TraceStats is the timing summary of a run.
type TraceStats struct {
	Timed             int   `json:"timed"`
	MeanLatenessNS    int64 `json:"mean_lateness_ns"`
	MaxLatenessNS     int64 `json:"max_lateness_ns"`
	Cycles            int   `json:"cycles"`
	MeanCycleJitterNS int64 `json:"mean_cycle_jitter_ns"`
	MaxCycleJitterNS  int64 `json:"max_cycle_jitter_ns"`
}

// TraceResult is the detail view of one run.
type TraceResult struct {
	Run    RunSummary   `json:"run"`
	Events []TraceEvent `json:"events"`
	Stats  TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `List recorded runs, or show the events and timing statistics of one run.

Statistics cover Time-domain events: lateness against each event's deadline
and cycle-to-cycle jitter of consecutive Active events.

Examples:
  tgsync trace --db ./tgsync.db
  tgsync trace --db ./tgsync.db --run 01936f0e-...
  tgsync trace --db ./tgsync.db --run 01936f0e-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to show in detail")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, opts, cmd.OutOrStdout())
	}
	return showRun(ctx, st, opts, cmd.OutOrStdout())
}

func listRuns(ctx context.Context, st *store.Store, opts *TraceOptions, w io.Writer) error {
	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, summarize(r))
	}

	if opts.Format == "json" {
		return json.NewEncoder(w).Encode(CLIResponse{Status: "ok", Data: summaries})
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	p := newPrinter()
	for _, s := range summaries {
		p.Fprintf(w, "%s  %-10s %-14s %s/%s  %d cycle(s)  %s\n",
			s.ID, s.Outcome, s.Generator, s.ActiveDomain, s.PassiveDomain, s.Cycles,
			s.StartedAt.Format(time.RFC3339))
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, opts *TraceOptions, w io.Writer) error {
	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		if opts.Format == "json" {
			_ = json.NewEncoder(w).Encode(CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: ErrCodeNotFound, Message: fmt.Sprintf("run not found: %s", opts.RunID)},
			})
		}
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.ReadEvents(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	jitter, err := st.JitterStats(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute statistics", err)
	}

	result := TraceResult{
		Run:    summarize(run),
		Events: make([]TraceEvent, 0, len(events)),
		Stats: TraceStats{
			Timed:             jitter.Timed,
			MeanLatenessNS:    jitter.MeanLateness.Nanoseconds(),
			MaxLatenessNS:     jitter.MaxLateness.Nanoseconds(),
			Cycles:            jitter.Cycles,
			MeanCycleJitterNS: jitter.MeanCycleJitter.Nanoseconds(),
			MaxCycleJitterNS:  jitter.MaxCycleJitter.Nanoseconds(),
		},
	}
	for _, ev := range events {
		result.Events = append(result.Events, TraceEvent{
			Seq:        ev.Seq,
			Type:       ev.Type.String(),
			Index:      ev.Index,
			Domain:     ev.Domain.String(),
			Coordinate: ev.Coordinate,
			ElapsedNS:  ev.Elapsed.Nanoseconds(),
			LatenessNS: ev.Lateness.Nanoseconds(),
		})
	}

	if opts.Format == "json" {
		return json.NewEncoder(w).Encode(CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(w, result, jitter)
	return nil
}

func summarize(r store.Run) RunSummary {
	s := RunSummary{
		ID:            r.ID,
		Generator:     r.Generator,
		ActiveDomain:  r.ActiveDomain.String(),
		PassiveDomain: r.PassiveDomain.String(),
		Direction:     r.Direction,
		Cycles:        r.Cycles,
		StartedAt:     r.StartedAt,
		Outcome:       r.Outcome,
		Error:         r.Error,
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		s.FinishedAt = &finished
	}
	return s
}

func outputTraceText(w io.Writer, r TraceResult, j store.Jitter) {
	p := newPrinter()
	fmt.Fprintf(w, "Run: %s\n", r.Run.ID)
	fmt.Fprintf(w, "Generator: %s (%s/%s, direction %+d)\n", r.Run.Generator, r.Run.ActiveDomain, r.Run.PassiveDomain, r.Run.Direction)
	fmt.Fprintf(w, "Outcome: %s\n", r.Run.Outcome)
	if r.Run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Run.Error)
	}
	fmt.Fprintln(w)

	p.Fprintf(w, "Events (%d):\n", len(r.Events))
	for _, ev := range r.Events {
		fmt.Fprintf(w, "  [%d] %-7s #%-4d %-8s %12.6f  +%s\n",
			ev.Seq, ev.Type, ev.Index, ev.Domain, ev.Coordinate, time.Duration(ev.ElapsedNS))
	}

	if j.Timed > 0 {
		fmt.Fprintln(w)
		p.Fprintf(w, "Lateness (%d timed events): mean %v, max %v\n", j.Timed, j.MeanLateness, j.MaxLateness)
	}
	if j.Cycles > 0 {
		p.Fprintf(w, "Cycle jitter (%d intervals): mean %v, max %v\n", j.Cycles, j.MeanCycleJitter, j.MaxCycleJitter)
	}
}
