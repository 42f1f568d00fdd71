package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "git-burl", cmd.Use)
	assert.Contains(t, cmd.Long, "branchless")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"smartlog", "hide", "unhide", "restack", "undo", "hook"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestSmartlogAlias(t *testing.T) {
	cmd := NewRootCommand()
	subCmd, _, err := cmd.Find([]string{"sl"})
	require.NoError(t, err)
	assert.Equal(t, "smartlog", subCmd.Name())
}

func TestHookSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	hooks := []string{"post-commit", "post-rewrite", "post-checkout", "reference-transaction"}

	for _, hookName := range hooks {
		t.Run(hookName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{"hook", hookName})
			require.NoError(t, err)
			assert.Equal(t, hookName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "smartlog"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExecuteEmitsJSONErrorEnvelope(t *testing.T) {
	var out, errOut bytes.Buffer
	// hide requires at least one revision, so this fails before
	// touching any repository.
	code := Execute(&out, &errOut, []string{"--format", "json", "hide"})
	assert.Equal(t, ExitFailure, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "requires at least 1 arg")
}

func TestExecuteReportsTextErrorsOnStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Execute(&out, &errOut, []string{"hide"})
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error: ")
}
