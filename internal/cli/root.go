package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the burl CLI. Running it
// with no subcommand shows the smartlog.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "git-burl",
		Short: "burl - a branchless workflow for git",
		Long: "A branchless workflow layer for git: work on anonymous stacks of\n" +
			"commits, visualize them with the smartlog, and undo any operation.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmartlog(cmd, opts)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewSmartlogCommand(opts))
	cmd.AddCommand(NewHideCommand(opts))
	cmd.AddCommand(NewUnhideCommand(opts))
	cmd.AddCommand(NewRestackCommand(opts))
	cmd.AddCommand(NewUndoCommand(opts))
	cmd.AddCommand(NewHookCommand(opts))

	return cmd, opts
}

// Execute runs the CLI and reports any failure in the selected output
// format, so that a --format json invocation still produces a parseable
// envelope on error. It returns the process exit code.
func Execute(stdout, stderr io.Writer, args []string) int {
	cmd, opts := newRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		formatter := &OutputFormatter{
			Format:    opts.Format,
			Writer:    stdout,
			ErrWriter: stderr,
			Verbose:   opts.Verbose,
		}
		formatter.Error(err.Error())
		return GetExitCode(err)
	}
	return ExitSuccess
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
