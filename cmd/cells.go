package main

import (
	"github.com/spf13/cobra"
)

var cellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "Manage the geographic cell inventory",
	Long:  "Commands for loading county boundaries and inspecting cell freshness.",
}

func init() {
	rootCmd.AddCommand(cellsCmd)
}
