package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/inkdex/ingest-cli/internal/store"
)

var cellsStatusFreshness int

var cellsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cell freshness relative to the ingestion window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("cells"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		window := cfg.Ingest.FreshnessWindow()
		if cmd.Flags().Changed("freshness") {
			window = time.Duration(cellsStatusFreshness) * 24 * time.Hour
		}

		stats, err := st.CellStats(ctx, window)
		if err != nil {
			return eris.Wrap(err, "cells status")
		}

		locations, err := st.CountLocations(ctx)
		if err != nil {
			return eris.Wrap(err, "count locations")
		}

		formatCellStats(os.Stdout, stats, locations, window)
		return nil
	},
}

func init() {
	cellsStatusCmd.Flags().IntVar(&cellsStatusFreshness, "freshness", 0, "freshness window in days (overrides config)")
	cellsCmd.AddCommand(cellsStatusCmd)
}

// formatCellStats writes the cell freshness summary to w.
func formatCellStats(out io.Writer, s *store.CellStats, locations int64, window time.Duration) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%d days\n", int(window.Hours())/24)
	_, _ = fmt.Fprintf(w, "Total cells:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Never ingested:\t%d\n", s.NeverIngested)
	_, _ = fmt.Fprintf(w, "Stale:\t%d\n", s.Stale)
	_, _ = fmt.Fprintf(w, "Fresh:\t%d\n", s.Fresh)
	_, _ = fmt.Fprintf(w, "Due next run:\t%d\n", s.Due())
	_, _ = fmt.Fprintf(w, "Locations:\t%d\n", locations)
	_ = w.Flush()
}
