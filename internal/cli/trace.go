package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sleight/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Mock     string // optional, filter to one mock name
}

// TimelineEvent is one rendered row of a session timeline.
type TimelineEvent struct {
	Seq      int64  `json:"seq"`
	MockName string `json:"mock_name"`
	Method   string `json:"method"`
	Args     string `json:"args,omitempty"`
	Stubbed  bool   `json:"stubbed"`
	Verified bool   `json:"verified"`
	Ignored  bool   `json:"ignored"`
}

// TraceStats holds summary statistics for the session.
type TraceStats struct {
	Interactions int `json:"interactions"`
	Mocks        int `json:"mocks"`
	Stubbed      int `json:"stubbed"`
	Verified     int `json:"verified"`
	Ignored      int `json:"ignored"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  string          `json:"session"`
	Timeline []TimelineEvent `json:"timeline"`
	Stats    TraceStats      `json:"stats"`
}

// SessionList is the output of trace with no --session flag.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect the interaction archive",
		Long: `Inspect archived interactions for a test session.

Without --session, lists the sessions present in the archive. With
--session, renders that session's interaction timeline in logical clock
order, with stubbing and verification marks.

Examples:
  sleight trace --db ./sleight.db
  sleight trace --db ./sleight.db --session test-session-1
  sleight trace --db ./sleight.db --session test-session-1 --mock userService
  sleight trace --db ./sleight.db --session test-session-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite archive (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to inspect")
	cmd.Flags().StringVar(&opts.Mock, "mock", "", "filter to a mock name")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	archive, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open archive", err)
	}
	defer archive.Close()

	if opts.Session == "" {
		return listSessions(ctx, archive, opts, cmd)
	}
	return showSession(ctx, archive, opts, cmd)
}

func listSessions(ctx context.Context, archive *trace.Archive, opts *TraceOptions, cmd *cobra.Command) error {
	sessions, err := archive.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "list sessions", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{
			Status: "ok",
			Data:   SessionList{Sessions: sessions},
		})
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions in archive.")
		return nil
	}
	fmt.Fprintln(w, "Sessions (most recent first):")
	for _, s := range sessions {
		fmt.Fprintf(w, "  %s\n", s)
	}
	return nil
}

func showSession(ctx context.Context, archive *trace.Archive, opts *TraceOptions, cmd *cobra.Command) error {
	records, err := archive.ReadSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "read session", err)
	}

	stats, err := archive.SessionStats(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "session stats", err)
	}

	result := TraceResult{
		Session:  opts.Session,
		Timeline: buildTimeline(records, opts.Mock),
		Stats: TraceStats{
			Interactions: stats.Interactions,
			Mocks:        stats.Mocks,
			Stubbed:      stats.Stubbed,
			Verified:     stats.Verified,
			Ignored:      stats.Ignored,
		},
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTimeline converts archive records to timeline events, applying the
// optional mock name filter.
func buildTimeline(records []trace.Interaction, mockFilter string) []TimelineEvent {
	timeline := make([]TimelineEvent, 0, len(records))
	for _, rec := range records {
		if mockFilter != "" && rec.MockName != mockFilter {
			continue
		}
		timeline = append(timeline, TimelineEvent{
			Seq:      rec.Seq,
			MockName: rec.MockName,
			Method:   rec.Method,
			Args:     rec.Args,
			Stubbed:  rec.Stubbed,
			Verified: rec.Verified,
			Ignored:  rec.Ignored,
		})
	}
	return timeline
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no interactions)")
	} else {
		for _, event := range result.Timeline {
			fmt.Fprintf(w, "  [%d] %s.%s%s\n", event.Seq, event.MockName, event.Method, marks(event))
			if verbose && event.Args != "" {
				fmt.Fprintf(w, "       Args: %s\n", event.Args)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Interactions: %d\n", result.Stats.Interactions)
	fmt.Fprintf(w, "  Mocks:        %d\n", result.Stats.Mocks)
	fmt.Fprintf(w, "  Stubbed:      %d\n", result.Stats.Stubbed)
	fmt.Fprintf(w, "  Verified:     %d\n", result.Stats.Verified)
	fmt.Fprintf(w, "  Ignored:      %d\n", result.Stats.Ignored)

	return nil
}

// marks renders an interaction's flags as a compact suffix.
func marks(event TimelineEvent) string {
	out := ""
	if event.Stubbed {
		out += " [stubbed]"
	}
	if event.Verified {
		out += " [verified]"
	}
	if event.Ignored {
		out += " [ignored]"
	}
	return out
}
