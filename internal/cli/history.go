package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"codeberg.org/mutker/cyclectl/internal/config"
	"codeberg.org/mutker/cyclectl/internal/errors"
	"codeberg.org/mutker/cyclectl/internal/logger"
	"codeberg.org/mutker/cyclectl/internal/monitor"
	"codeberg.org/mutker/cyclectl/internal/telemetry"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

type historyOptions struct {
	limit  int
	format string
}

// historyRecord is the JSON form of a stored heartbeat.
type historyRecord struct {
	Session    string    `json:"session"`
	Timestamp  time.Time `json:"timestamp"`
	Tick       *uint32   `json:"tick"`
	CycleCount uint64    `json:"cycle_count"`
}

func NewHistoryCommand() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded heartbeats",
		Long: `History prints the most recent heartbeats from the telemetry
database, newest first.

Example:
  cyclectl history --database ./heartbeats.db --limit 5
  cyclectl history --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return showHistory(cmd, cfg, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", defaultHistoryLimit, "number of heartbeats to show")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text|json)")

	return cmd
}

func showHistory(cmd *cobra.Command, cfg *config.Config, opts *historyOptions) error {
	errFactory := errors.New()

	if opts.limit <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "limit must be positive")
	}
	if opts.format != "text" && opts.format != "json" {
		return errFactory.WithData(errors.ErrInvalidArgument, opts.format)
	}

	if _, err := os.Stat(cfg.TelemetryDB); err != nil {
		return errFactory.Wrap(errors.ErrInitTelemetry, err)
	}

	reader, err := telemetry.OpenReadOnly(cfg.TelemetryDB, logger.Nop())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitTelemetry, err)
	}
	defer reader.Close()

	heartbeats, err := reader.Recent(cmd.Context(), opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return writeHistoryJSON(cmd.OutOrStdout(), heartbeats)
	}
	return writeHistoryText(cmd.OutOrStdout(), heartbeats)
}

func writeHistoryJSON(w io.Writer, heartbeats []monitor.Heartbeat) error {
	records := make([]historyRecord, 0, len(heartbeats))
	for _, hb := range heartbeats {
		rec := historyRecord{
			Session:    hb.Session,
			Timestamp:  hb.Timestamp,
			CycleCount: hb.CycleCount,
		}
		if tick, ok := hb.Tick.Get(); ok {
			v := uint32(tick)
			rec.Tick = &v
		}
		records = append(records, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeHistoryText(w io.Writer, heartbeats []monitor.Heartbeat) error {
	if len(heartbeats) == 0 {
		_, err := fmt.Fprintln(w, "No heartbeats recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSESSION\tTICK\tCYCLES")
	for _, hb := range heartbeats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			hb.Timestamp.Local().Format(time.RFC3339), hb.Session, hb.Tick, hb.CycleCount)
	}
	return tw.Flush()
}
