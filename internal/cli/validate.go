package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tgsync/internal/synch"
	"github.com/roach88/tgsync/internal/timeline"
)

// ExpandedEvent is one event of an expanded description.
type ExpandedEvent struct {
	Type       string  `json:"type"`
	Index      int     `json:"index"`
	Domain     string  `json:"domain"`
	Coordinate float64 `json:"coordinate"`
}

// ValidationResult holds an expanded description.
type ValidationResult struct {
	Valid         bool            `json:"valid"`
	ActiveDomain  string          `json:"active_domain"`
	PassiveDomain string          `json:"passive_domain"`
	Direction     int             `json:"direction"`
	Cycles        int             `json:"cycles"`
	Events        []ExpandedEvent `json:"events"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <description>",
		Short: "Validate and expand a synchronization description",
		Long: `Validate a synchronization description (.yaml, .json or .cue) and print
the Active and Passive events it expands to.

Default domains resolve to time when every group has time values and to
position otherwise. A direction of 0 is inferred from the first position
total.

Examples:
  tgsync validate scan.yaml
  tgsync validate scan.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout())

	doc, err := synch.LoadFile(path)
	if err != nil {
		return formatter.Fail(path, err)
	}

	tl, err := expandDocument(doc)
	if err != nil {
		return formatter.Fail(path, err)
	}
	slog.Debug("description expanded", "path", path, "cycles", tl.Len())

	result := ValidationResult{
		Valid:         true,
		ActiveDomain:  tl.ActiveDomain.String(),
		PassiveDomain: tl.PassiveDomain.String(),
		Direction:     tl.Direction,
		Cycles:        tl.Len(),
		Events:        make([]ExpandedEvent, 0, 2*tl.Len()),
	}
	for i := 0; i < tl.Len(); i++ {
		for _, typ := range []synch.EventType{synch.Active, synch.Passive} {
			c := tl.Coordinate(typ, i)
			result.Events = append(result.Events, ExpandedEvent{
				Type:       typ.String(),
				Index:      i,
				Domain:     c.Domain().String(),
				Coordinate: c.Value(),
			})
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputValidateText(formatter, result)
}

// expandDocument expands the document's description. Without a moveable,
// default domains resolve to time when every group has time values.
func expandDocument(doc *synch.Document) (*timeline.Timeline, error) {
	active, passive, direction, err := resolveDocument(doc, !doc.Synchronization.Has(synch.DomainTime))
	if err != nil {
		return nil, err
	}
	return timeline.Expand(doc.Synchronization, active, passive, direction)
}

// resolveDocument fills in default domains (position when a moveable
// drives playback, time otherwise) and infers a zero direction.
func resolveDocument(doc *synch.Document, moveable bool) (active, passive synch.Domain, direction int, err error) {
	active, passive, err = doc.Domains()
	if err != nil {
		return 0, 0, 0, err
	}
	fallback := synch.DomainTime
	if moveable {
		fallback = synch.DomainPosition
	}
	if active == synch.DomainDefault {
		active = fallback
	}
	if passive == synch.DomainDefault {
		passive = fallback
	}
	direction = doc.Direction
	if direction == 0 {
		direction = doc.Synchronization.InferDirection()
	}
	return active, passive, direction, nil
}

func outputValidateText(f *OutputFormatter, r ValidationResult) error {
	p := newPrinter()
	w := f.Writer
	p.Fprintf(w, "✓ Description valid: %d cycle(s), active=%s passive=%s direction=%+d\n",
		r.Cycles, r.ActiveDomain, r.PassiveDomain, r.Direction)
	for _, ev := range r.Events {
		fmt.Fprintf(w, "  %-7s #%-4d %-8s %12.6f\n", ev.Type, ev.Index, ev.Domain, ev.Coordinate)
	}
	return nil
}
