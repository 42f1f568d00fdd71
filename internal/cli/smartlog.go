package cli

import (
	"github.com/spf13/cobra"

	"github.com/burl-vcs/burl/internal/graph"
	"github.com/burl-vcs/burl/internal/mergebase"
	"github.com/burl-vcs/burl/internal/render"
)

// NewSmartlogCommand creates the smartlog command.
func NewSmartlogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "smartlog",
		Aliases: []string{"sl"},
		Short:   "Display the commit graph",
		Long: `Display the smartlog: the graph of your local commits relative to
the main branch, with hidden commits pruned and each stack drawn as
its own subtree.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmartlog(cmd, opts)
		},
	}
}

func runSmartlog(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	app, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	replayer, err := app.Replayer(ctx)
	if err != nil {
		return err
	}
	app.Format.VerboseLog("replayed %d events", replayer.EventCount())
	headOID, _, err := app.HeadOID()
	if err != nil {
		return err
	}
	mainBranchOID, err := app.MainBranchOID()
	if err != nil {
		return err
	}
	branchOIDs, branchesByOID, err := app.Branches()
	if err != nil {
		return err
	}

	builder := &graph.Builder{
		Objects:  app.Objects,
		Bases:    mergebase.NewCache(app.Store, app.Objects),
		Replayer: replayer,
		Logger:   app.Logger,
	}
	g, err := builder.Build(ctx, replayer.DefaultCursor(), graph.Params{
		HeadOID:       headOID,
		MainBranchOID: mainBranchOID,
		BranchOIDs:    branchOIDs,
		PruneHidden:   true,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build commit graph", err)
	}

	renderer := &render.Renderer{
		Glyphs: render.TextGlyphs(),
		Bases:  mergebase.NewCache(app.Store, app.Objects),
	}
	lines, err := renderer.Render(ctx, g, render.Options{
		HeadOID:       headOID,
		BranchesByOID: branchesByOID,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render commit graph", err)
	}
	return app.Format.Lines(lines)
}
