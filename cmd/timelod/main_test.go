package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRootCommand_Subcommands verifies every subcommand is registered.
func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := newRootCommand()

	for _, name := range []string{"aggregate", "sweep", "validate", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

// TestVersionCommand verifies the version line.
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "timelod ")
	assert.Contains(t, out.String(), "commit:")
}
