package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/inkdex/ingest-cli/internal/geo"
)

var (
	cellsLoadSource     string
	cellsLoadFormat     string
	cellsLoadNameField  string
	cellsLoadStateField string
	cellsLoadCharset    string
	cellsLoadSheet      string
)

var cellsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load county boundaries into the cell inventory",
	Long:  "Fetches a boundary source (TIGER shapefile, CSV, or XLSX over http, ftp, or a local path) and upserts geo cells.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		sum, err := geo.NewLoader(st).Load(ctx, geo.LoadOptions{
			Source:     cellsLoadSource,
			Format:     cellsLoadFormat,
			NameField:  cellsLoadNameField,
			StateField: cellsLoadStateField,
			Charset:    cellsLoadCharset,
			Sheet:      cellsLoadSheet,
		})
		if err != nil {
			return eris.Wrap(err, "cells load")
		}

		fmt.Printf("Loaded %d cells (%d records read, %d skipped)\n", sum.Upserted, sum.Read, sum.Skipped)
		return nil
	},
}

func init() {
	cellsLoadCmd.Flags().StringVar(&cellsLoadSource, "source", geo.DefaultCountySource, "boundary source URL or path")
	cellsLoadCmd.Flags().StringVar(&cellsLoadFormat, "format", "", "source format: shapefile, csv, or xlsx (default: by extension)")
	cellsLoadCmd.Flags().StringVar(&cellsLoadNameField, "name-field", "", "shapefile attribute holding the cell name (default NAMELSAD)")
	cellsLoadCmd.Flags().StringVar(&cellsLoadStateField, "state-field", "", "shapefile attribute appended to the name (default STATEFP)")
	cellsLoadCmd.Flags().StringVar(&cellsLoadCharset, "charset", "", "CSV source encoding (e.g. latin1)")
	cellsLoadCmd.Flags().StringVar(&cellsLoadSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	cellsCmd.AddCommand(cellsLoadCmd)
}
