// Package restack repairs commits and branches abandoned by rewrites.
//
// Amending a commit in place hides it and creates a replacement, but
// leaves its descendants parented on the hidden original. Restacking
// finds those descendants and rebases them onto the replacement,
// round by round, until no abandoned commits remain; then it does the
// same for branches still pointing at superseded commits, and finally
// returns HEAD to where it started.
package restack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/graph"
	"github.com/burl-vcs/burl/internal/mergebase"
	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/storage"
)

// Ops are the external git operations restacking needs. They must run
// the real git binary in production so that hooks fire and record the
// resulting rewrites; tests substitute a fake.
type Ops interface {
	RebaseOnto(ctx context.Context, source, branchTip, newBase repo.OID, preserveTimestamps bool) (int, error)
	ForceBranch(ctx context.Context, branchName string, target repo.OID) (int, error)
	Checkout(ctx context.Context, target string) (int, error)
}

// Restacker drives the fixed-point repair.
type Restacker struct {
	Objects repo.ObjectStore
	Store   *storage.Store
	Log     *eventlog.Log
	Ops     Ops
	Logger  *slog.Logger
	Out     io.Writer

	// MainBranch is the short name of the main branch.
	MainBranch string

	// PreserveTimestamps keeps the original committer dates on rebased
	// commits.
	PreserveTimestamps bool
}

// Run restacks commits, then branches, then restores HEAD. Returns the
// exit code of the first failing external operation, or 0.
func (r *Restacker) Run(ctx context.Context) (int, error) {
	originalHead, hasHead, err := r.Objects.ResolveRef(eventlog.HeadRefName)
	if err != nil {
		return 0, err
	}

	code, err := r.restackCommits(ctx)
	if err != nil || code != 0 {
		return code, err
	}

	code, err = r.restackBranches(ctx)
	if err != nil || code != 0 {
		return code, err
	}

	if hasHead {
		return r.Ops.Checkout(ctx, originalHead.String())
	}
	return 0, nil
}

// snapshot is the repository state at the start of a round. Each
// external operation appends events via hooks, so every round re-reads
// everything.
type snapshot struct {
	replayer *eventlog.Replayer
	cursor   eventlog.Cursor
	graph    graph.Graph
	branches map[string]repo.OID
}

func (r *Restacker) loadSnapshot(ctx context.Context) (*snapshot, error) {
	replayer, err := eventlog.FromLog(ctx, r.Log)
	if err != nil {
		return nil, err
	}
	cursor := replayer.DefaultCursor()

	headOID, _, err := r.Objects.ResolveRef(eventlog.HeadRefName)
	if err != nil {
		return nil, err
	}
	mainBranchOID, ok, err := r.Objects.ResolveRef(repo.BranchesPrefix + r.MainBranch)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("main branch %q not found", r.MainBranch)
	}

	refNames, err := r.Objects.ListLocalRefs()
	if err != nil {
		return nil, err
	}
	branches := make(map[string]repo.OID, len(refNames))
	branchOIDs := make(map[repo.OID]bool, len(refNames))
	for _, refName := range refNames {
		target, ok, err := r.Objects.ResolveRef(refName)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		branches[refName] = target
		branchOIDs[target] = true
	}

	builder := &graph.Builder{
		Objects:  r.Objects,
		Bases:    mergebase.NewCache(r.Store, r.Objects),
		Replayer: replayer,
		Logger:   r.Logger,
	}
	g, err := builder.Build(ctx, cursor, graph.Params{
		HeadOID:       headOID,
		MainBranchOID: mainBranchOID,
		BranchOIDs:    branchOIDs,
		PruneHidden:   true,
	})
	if err != nil {
		return nil, err
	}

	return &snapshot{
		replayer: replayer,
		cursor:   cursor,
		graph:    g,
		branches: branches,
	}, nil
}

func (r *Restacker) restackCommits(ctx context.Context) (int, error) {
	for {
		snap, err := r.loadSnapshot(ctx)
		if err != nil {
			return 0, err
		}

		oid, target, child, found := findNextAbandoned(snap)
		if !found {
			fmt.Fprintln(r.Out, "burl: no more abandoned commits to restack")
			return 0, nil
		}

		code, err := r.Ops.RebaseOnto(ctx, oid, child, target, r.PreserveTimestamps)
		if err != nil {
			return 0, err
		}
		if code != 0 {
			fmt.Fprintln(r.Out, "burl: resolve the rebase, then run 'git burl restack' again")
			return code, nil
		}
		// State changed; start over and look again.
	}
}

// findNextAbandoned scans the graph for a rewritten commit that still
// has a visible child parented on it, and returns the rewrite target
// and one such child. The scan order is sorted so repeated runs pick
// the same commit.
func findNextAbandoned(snap *snapshot) (oid, target, child repo.OID, found bool) {
	oids := make([]repo.OID, 0, len(snap.graph))
	for oid := range snap.graph {
		oids = append(oids, oid)
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })

	for _, oid := range oids {
		target, ok := FindRewriteTarget(snap.replayer, snap.cursor, oid)
		if !ok {
			continue
		}
		children := abandonedChildren(snap.graph, oid)
		if len(children) == 0 {
			continue
		}
		return oid, target, children[0], true
	}
	return "", "", "", false
}

// FindRewriteTarget follows the chain of rewrite events from the given
// commit to its final replacement. ok is false if the commit was never
// rewritten.
func FindRewriteTarget(replayer *eventlog.Replayer, cursor eventlog.Cursor, oid repo.OID) (repo.OID, bool) {
	current := oid
	rewritten := false
	for {
		event, ok := replayer.CommitLatestEvent(cursor, current)
		if !ok {
			break
		}
		rewrite, ok := event.(eventlog.RewriteEvent)
		if !ok || rewrite.OldCommitOID != current || rewrite.NewCommitOID == current {
			break
		}
		current = rewrite.NewCommitOID
		rewritten = true
	}
	if !rewritten {
		return "", false
	}
	return current, true
}

// abandonedChildren returns the still-visible children of the commit,
// in sorted order. Graph links alone are not enough: adjacent
// main-line commits are never linked, so the real commit parents are
// consulted too.
func abandonedChildren(g graph.Graph, oid repo.OID) []repo.OID {
	childSet := make(map[repo.OID]bool)
	for child := range g[oid].Children {
		childSet[child] = true
	}
	for possibleChild, node := range g {
		if childSet[possibleChild] {
			continue
		}
		for _, parent := range node.Commit.Parents {
			if parent == oid {
				childSet[possibleChild] = true
				break
			}
		}
	}

	var children []repo.OID
	for child := range childSet {
		if g[child].IsVisible {
			children = append(children, child)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	return children
}

func (r *Restacker) restackBranches(ctx context.Context) (int, error) {
	for {
		snap, err := r.loadSnapshot(ctx)
		if err != nil {
			return 0, err
		}

		refNames := make([]string, 0, len(snap.branches))
		for refName := range snap.branches {
			refNames = append(refNames, refName)
		}
		sort.Strings(refNames)

		moved := false
		for _, refName := range refNames {
			target := snap.branches[refName]
			if _, ok := snap.graph[target]; !ok {
				continue
			}
			newOID, ok := FindRewriteTarget(snap.replayer, snap.cursor, target)
			if !ok {
				continue
			}

			code, err := r.Ops.ForceBranch(ctx, repo.BranchShortName(refName), newOID)
			if err != nil {
				return 0, err
			}
			if code != 0 {
				return code, nil
			}
			moved = true
			break
		}
		if !moved {
			fmt.Fprintln(r.Out, "burl: no more abandoned branches to restack")
			return 0, nil
		}
	}
}
