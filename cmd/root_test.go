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

	for _, name := range []string{"serve", "migrate", "version"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "diagnostic-versions", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestInitRuntime(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	t.Setenv("DIAG_LOG_LEVEL", "debug")
	require.NoError(t, initRuntime())
	assert.Equal(t, "debug", cfg.Log.Level)

	t.Setenv("DIAG_LOG_LEVEL", "loud")
	err := initRuntime()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root: init logger")
}

func TestVersionCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range versionCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"create", "import", "finalize", "activate", "show", "template"} {
		assert.True(t, names[name], "expected version subcommand %q not found", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestVersionCommands_Flags(t *testing.T) {
	for _, c := range []struct {
		name  string
		flags []string
	}{
		{"create", []string{"diagnostic-id", "name", "description", "prompt", "note", "actor"}},
		{"import", []string{"id", "file", "actor"}},
		{"finalize", []string{"id", "actor"}},
		{"activate", []string{"id", "actor", "diagnostic-id"}},
		{"show", []string{"id", "audit"}},
		{"template", []string{"id", "diagnostic-id", "out"}},
	} {
		cmd, _, err := versionCmd.Find([]string{c.name})
		require.NoError(t, err)
		for _, f := range c.flags {
			assert.NotNil(t, cmd.Flags().Lookup(f), "%s should have --%s", c.name, f)
		}
	}
}
