package cli

import (
	"context"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/burl-vcs/burl/internal/config"
	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/storage"
)

// App bundles the collaborators every command needs: the repository,
// the event database, the config, and a logger. Commands construct it
// once at startup and close it on exit.
type App struct {
	Objects *repo.GitStore
	Store   *storage.Store
	Log     *eventlog.Log
	Config  config.Config
	Runner  *repo.Runner
	TxIDs   eventlog.TxIDGenerator
	Logger  *slog.Logger
	Format  *OutputFormatter
}

// openApp discovers the enclosing repository and opens the event
// database inside its .git directory.
func openApp(cmd *cobra.Command, opts *RootOptions) (*App, error) {
	objects, err := repo.Open(".")
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "not inside a git repository", err)
	}
	gitDir := objects.GitDir()

	cfg, err := config.Load(gitDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	store, err := storage.OpenInGitDir(gitDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open event database", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return &App{
		Objects: objects,
		Store:   store,
		Log:     eventlog.NewLog(store),
		Config:  cfg,
		Runner: &repo.Runner{
			GitExecutable: "git",
			Dir:           ".",
			Out:           cmd.OutOrStdout(),
			Err:           cmd.ErrOrStderr(),
		},
		TxIDs:  eventlog.UUIDGenerator{},
		Logger: logger,
		Format: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

// Replayer loads and replays the whole event log.
func (a *App) Replayer(ctx context.Context) (*eventlog.Replayer, error) {
	replayer, err := eventlog.FromLog(ctx, a.Log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to replay event log", err)
	}
	return replayer, nil
}

// MainBranchOID resolves the configured main branch.
func (a *App) MainBranchOID() (repo.OID, error) {
	oid, ok, err := a.Objects.ResolveRef(repo.BranchesPrefix + a.Config.MainBranch)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to resolve main branch", err)
	}
	if !ok {
		return "", NewExitError(ExitCommandError, "main branch "+a.Config.MainBranch+" not found")
	}
	return oid, nil
}

// Branches maps each branch tip to the branch names pointing at it,
// names sorted for stable output.
func (a *App) Branches() (map[repo.OID]bool, map[repo.OID][]string, error) {
	refNames, err := a.Objects.ListLocalRefs()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to list branches", err)
	}

	branchOIDs := make(map[repo.OID]bool)
	branchesByOID := make(map[repo.OID][]string)
	for _, refName := range refNames {
		target, ok, err := a.Objects.ResolveRef(refName)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to resolve "+refName, err)
		}
		if !ok {
			continue
		}
		branchOIDs[target] = true
		branchesByOID[target] = append(branchesByOID[target], repo.BranchShortName(refName))
	}
	for _, names := range branchesByOID {
		sort.Strings(names)
	}
	return branchOIDs, branchesByOID, nil
}

// HeadOID resolves HEAD, reporting absence (e.g. an unborn branch)
// rather than failing.
func (a *App) HeadOID() (repo.OID, bool, error) {
	oid, ok, err := a.Objects.ResolveRef(eventlog.HeadRefName)
	if err != nil {
		return "", false, WrapExitError(ExitCommandError, "failed to resolve HEAD", err)
	}
	return oid, ok, nil
}
