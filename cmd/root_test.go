package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkdex/ingest-cli/internal/geo"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"run", "cells", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "ingest-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"max-cells", "freshness", "workers", "profile"} {
		flag := runCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "run command should have --%s flag", name)
	}

	assert.Equal(t, "0", runCmd.Flags().Lookup("max-cells").DefValue)
	assert.Equal(t, "", runCmd.Flags().Lookup("profile").DefValue)
}

func TestCellsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range cellsCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["load"], "cells should have a load subcommand")
	assert.True(t, names["status"], "cells should have a status subcommand")
}

func TestCellsLoadCommand_Flags(t *testing.T) {
	for _, name := range []string{"source", "format", "name-field", "state-field", "charset", "sheet"} {
		flag := cellsLoadCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "cells load should have --%s flag", name)
	}

	assert.Equal(t, geo.DefaultCountySource, cellsLoadCmd.Flags().Lookup("source").DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["list"], "runs should have a list subcommand")
}

func TestRunsListCommand_Flags(t *testing.T) {
	flag := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "runs list should have --limit flag")
	assert.Equal(t, "20", flag.DefValue)
}
