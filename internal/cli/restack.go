package cli

import (
	"github.com/spf13/cobra"

	"github.com/burl-vcs/burl/internal/restack"
)

// NewRestackCommand creates the restack command.
func NewRestackCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restack",
		Short: "Rebase abandoned commits and branches onto their rewritten parents",
		Long: `Fix commits and branches abandoned by a rewrite operation. When a
commit is amended or rebased, its descendants still point at the old
version; restack rebases them onto the replacement, repeating until
nothing is left to fix.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestack(cmd, opts)
		},
	}
}

func runRestack(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	app, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	restacker := &restack.Restacker{
		Objects:            app.Objects,
		Store:              app.Store,
		Log:                app.Log,
		Ops:                app.Runner,
		Logger:             app.Logger,
		Out:                cmd.OutOrStdout(),
		MainBranch:         app.Config.MainBranch,
		PreserveTimestamps: app.Config.PreserveTimestamps,
	}
	code, err := restacker.Run(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "restack failed", err)
	}
	if code != 0 {
		return NewExitError(code, "restack did not complete cleanly")
	}
	return nil
}
