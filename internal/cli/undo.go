package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/burl-vcs/burl/internal/render"
	"github.com/burl-vcs/burl/internal/undo"
)

// NewUndoCommand creates the undo command.
func NewUndoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Return the repository to a previous state",
		Long: `Browse the event log interactively, pick a previous state of the
repository, and restore it. Every operation recorded in the event log
can be undone, including commits, amends, rebases, checkouts, and
branch moves.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(cmd, opts)
		},
	}
}

func runUndo(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	app, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	replayer, err := app.Replayer(ctx)
	if err != nil {
		return err
	}

	undoer := &undo.Undoer{
		Objects:    app.Objects,
		Store:      app.Store,
		Log:        app.Log,
		Replayer:   replayer,
		Ops:        app.Runner,
		TxIDs:      app.TxIDs,
		Logger:     app.Logger,
		Out:        out,
		MainBranch: app.Config.MainBranch,
		Glyphs:     render.PrettyGlyphs(),
	}

	cursor, selected, err := undo.Scrub(ctx, undoer, replayer)
	if err != nil {
		return WrapExitError(ExitCommandError, "undo browser failed", err)
	}
	if !selected {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	plan, err := undoer.Plan(cursor, time.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to plan undo", err)
	}
	if len(plan) == 0 {
		fmt.Fprintln(out, "No undo actions to apply, exiting.")
		return nil
	}

	fmt.Fprintln(out, "Will apply these actions:")
	for _, line := range undo.DescribeEvents(app.Objects, plan) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprint(out, "Confirm? [yN] ")
	if !readConfirmation(cmd) {
		fmt.Fprintln(out, "Aborted.")
		return NewExitError(ExitFailure, "undo aborted")
	}

	code, err := undoer.Apply(ctx, plan)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to apply undo", err)
	}
	if code != 0 {
		return NewExitError(code, "undo did not complete cleanly")
	}
	return nil
}

func readConfirmation(cmd *cobra.Command) bool {
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}
