package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/repo"
)

// NewHideCommand creates the hide command.
func NewHideCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hide <revision>...",
		Short: "Hide commits from the smartlog",
		Long: `Hide the given commits. Hidden commits stay in the repository and in
the event log, so they can be unhidden or restored with undo; they
just no longer appear in the smartlog.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHide(cmd, opts, args, false)
		},
	}
}

// NewUnhideCommand creates the unhide command.
func NewUnhideCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unhide <revision>...",
		Short:         "Unhide previously hidden commits",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHide(cmd, opts, args, true)
		},
	}
}

func runHide(cmd *cobra.Command, opts *RootOptions, revs []string, unhide bool) error {
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
	cursor := replayer.DefaultCursor()

	commits := make([]repo.Commit, 0, len(revs))
	for _, rev := range revs {
		oid, err := app.Objects.ResolveRev(rev)
		if err != nil {
			fmt.Fprintf(out, "Commit not found: %s\n", rev)
			return NewExitError(ExitFailure, "commit not found: "+rev)
		}
		commit, ok, err := app.Objects.GetCommit(oid)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read commit "+oid.String(), err)
		}
		if !ok {
			fmt.Fprintf(out, "Commit not found: %s\n", rev)
			return NewExitError(ExitFailure, "commit not found: "+rev)
		}
		commits = append(commits, commit)
	}

	now := time.Now()
	txID, err := app.TxIDs.NewTxID()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to generate transaction ID", err)
	}
	events := make([]eventlog.Event, 0, len(commits))
	for _, commit := range commits {
		if unhide {
			events = append(events, eventlog.UnhideEvent{Timestamp: now, TransactionID: txID, CommitOID: commit.OID})
		} else {
			events = append(events, eventlog.HideEvent{Timestamp: now, TransactionID: txID, CommitOID: commit.OID})
		}
	}
	if err := app.Log.Append(ctx, events...); err != nil {
		return WrapExitError(ExitCommandError, "failed to append events", err)
	}

	for _, commit := range commits {
		visibility := replayer.CommitVisibility(cursor, commit.OID)
		if unhide {
			fmt.Fprintf(out, "Unhid commit: %s %s\n", commit.OID.Short(), commit.Summary)
			if visibility == eventlog.VisibilityVisible {
				fmt.Fprintln(out, "(It was not hidden, so this operation had no effect.)")
			}
			fmt.Fprintf(out, "To hide this commit, run: git burl hide %s\n", commit.OID)
		} else {
			fmt.Fprintf(out, "Hid commit: %s %s\n", commit.OID.Short(), commit.Summary)
			if visibility == eventlog.VisibilityHidden {
				fmt.Fprintln(out, "(It was already hidden, so this operation had no effect.)")
			}
			fmt.Fprintf(out, "To unhide this commit, run: git burl unhide %s\n", commit.OID)
		}
	}
	return nil
}
