package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/burl-vcs/burl/internal/hooks"
)

// NewHookCommand creates the hook command group. These subcommands are
// invoked by git, not by users; the hook scripts installed into
// .git/hooks delegate to them.
func NewHookCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Handle a git hook invocation (internal)",
		Hidden: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "post-commit",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHookHandler(cmd, opts, func(h *hooks.Handler) error {
				return h.PostCommit(cmd.Context())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "post-rewrite <type>",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHookHandler(cmd, opts, func(h *hooks.Handler) error {
				return h.PostRewrite(cmd.Context(), args[0], cmd.InOrStdin())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "post-checkout <old> <new> <is-branch-checkout>",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			isBranchCheckout, err := strconv.Atoi(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid post-checkout flag", err)
			}
			return withHookHandler(cmd, opts, func(h *hooks.Handler) error {
				return h.PostCheckout(cmd.Context(), args[0], args[1], isBranchCheckout)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "reference-transaction <state>",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHookHandler(cmd, opts, func(h *hooks.Handler) error {
				return h.ReferenceTransaction(cmd.Context(), args[0], cmd.InOrStdin())
			})
		},
	})

	return cmd
}

func withHookHandler(cmd *cobra.Command, opts *RootOptions, run func(*hooks.Handler) error) error {
	app, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	handler := &hooks.Handler{
		Objects: app.Objects,
		Log:     app.Log,
		TxIDs:   app.TxIDs,
		Now:     time.Now,
		Out:     cmd.OutOrStdout(),
		GitDir:  app.Objects.GitDir(),
	}
	if err := run(handler); err != nil {
		return WrapExitError(ExitCommandError, "hook failed", err)
	}
	return nil
}
