package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"resolve", "catalog", "extract", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "cityobj", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestResolveCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "text-column", "region", "output", "format", "db"} {
		assert.NotNil(t, resolveCmd.Flags().Lookup(name), "resolve should have --%s flag", name)
	}
	flag := resolveCmd.Flags().Lookup("text-column")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)
}

func TestCatalogCommand_Flags(t *testing.T) {
	assert.NotNil(t, catalogCmd.Flags().Lookup("region"))
	assert.NotNil(t, catalogCmd.Flags().Lookup("output"))
}

func TestExtractCommand_Flags(t *testing.T) {
	assert.NotNil(t, extractCmd.Flags().Lookup("text"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
