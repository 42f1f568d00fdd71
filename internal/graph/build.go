package graph

import (
	"context"
	"log/slog"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/mergebase"
	"github.com/burl-vcs/burl/internal/repo"
)

// Builder constructs commit graphs. All collaborators are injected;
// one Builder is created per command invocation.
type Builder struct {
	Objects  repo.ObjectStore
	Bases    *mergebase.Cache
	Replayer *eventlog.Replayer
	Logger   *slog.Logger
}

// Params selects what to build.
type Params struct {
	// HeadOID is the current (or historical) HEAD commit. Empty on an
	// unborn branch.
	HeadOID repo.OID

	// MainBranchOID is the tip of the main branch; merge-bases are
	// computed against it.
	MainBranchOID repo.OID

	// BranchOIDs are the commits pointed to by local branches. They
	// and their ancestry are never pruned.
	BranchOIDs map[repo.OID]bool

	// PruneHidden removes subtrees that are entirely hidden. Set for
	// display; unset when the caller needs to inspect hidden commits.
	PruneHidden bool
}

// Build walks the repository from every commit the event log knows
// about (plus HEAD and all branch tips) down to its merge-base with
// the main branch, links the results into a graph, and optionally
// prunes hidden subtrees.
func (b *Builder) Build(ctx context.Context, cursor eventlog.Cursor, params Params) (Graph, error) {
	seeds := b.Replayer.ActiveOIDs(cursor)
	for oid := range params.BranchOIDs {
		seeds = append(seeds, oid)
	}
	if params.HeadOID != "" {
		seeds = append(seeds, params.HeadOID)
	}

	g, err := b.walkFromCommits(ctx, cursor, params.MainBranchOID, seeds)
	if err != nil {
		return nil, err
	}
	if err := g.CheckLinks(); err != nil {
		return nil, err
	}

	if params.PruneHidden {
		b.pruneHidden(g, params)
		if err := g.CheckLinks(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// walkFromCommits materializes the path from each seed to its
// merge-base with the main branch, then wires up parent/child links.
func (b *Builder) walkFromCommits(ctx context.Context, cursor eventlog.Cursor, mainBranchOID repo.OID, seeds []repo.OID) (Graph, error) {
	g := make(Graph)

	for _, seed := range seeds {
		commit, ok, err := b.Objects.GetCommit(seed)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Commit may have been garbage-collected.
			continue
		}

		mergeBase, err := b.Bases.MergeBase(ctx, seed, mainBranchOID)
		if err != nil {
			return nil, err
		}

		var path []repo.Commit
		if mergeBase == "" {
			// No common ancestor with the main branch, e.g. a
			// rewritten initial commit. Keep it as a standalone
			// component rather than failing the whole build.
			b.Logger.Warn("commit has no merge-base with main branch",
				"commit", seed.Short())
			path = []repo.Commit{commit}
		} else {
			path, err = b.findPathToMergeBase(seed, mergeBase)
			if err != nil {
				return nil, err
			}
			if path == nil {
				b.Logger.Warn("no path to merge-base",
					"commit", seed.Short(), "mergeBase", mergeBase.Short())
				continue
			}
		}

		for _, pathCommit := range path {
			if _, ok := g[pathCommit.OID]; ok {
				// This commit and all of its ancestors are already in
				// the graph.
				break
			}

			isVisible := true
			if b.Replayer.CommitVisibility(cursor, pathCommit.OID) == eventlog.VisibilityHidden {
				isVisible = false
			}
			latestEvent, _ := b.Replayer.CommitLatestEvent(cursor, pathCommit.OID)

			g[pathCommit.OID] = &Node{
				Commit:      pathCommit,
				Children:    make(map[repo.OID]bool),
				IsMain:      pathCommit.OID == mergeBase,
				IsVisible:   isVisible,
				LatestEvent: latestEvent,
			}
		}
	}

	// Link each non-main node to its first git parent present in the
	// graph. Main-line nodes are never linked as children; that keeps
	// separate main-line components from collapsing into one long
	// chain. A merge commit links through a single parent only, so
	// parent/child links stay mutual.
	for oid, node := range g {
		if node.IsMain {
			continue
		}
		for _, parentOID := range node.Commit.Parents {
			if parent, ok := g[parentOID]; ok {
				node.Parent = parentOID
				parent.Children[oid] = true
				break
			}
		}
	}

	return g, nil
}

// findPathToMergeBase finds a shortest path (by parent edges) from the
// commit to the target, inclusive of both ends. Breadth-first search
// keeps merge commits from dragging in huge amounts of history. When
// several equal-length paths exist, the first one found by parent
// order wins. Returns nil if there is no such path.
func (b *Builder) findPathToMergeBase(from, target repo.OID) ([]repo.Commit, error) {
	start, ok, err := b.Objects.GetCommit(from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	queue := [][]repo.Commit{{start}}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		last := path[len(path)-1]

		if last.OID == target {
			return path, nil
		}

		for _, parentOID := range last.Parents {
			parent, ok, err := b.Objects.GetCommit(parentOID)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			next := make([]repo.Commit, len(path), len(path)+1)
			copy(next, path)
			queue = append(queue, append(next, parent))
		}
	}
	return nil, nil
}

// pruneHidden removes subtrees that are entirely hidden, without ever
// removing HEAD, a branch tip, or any of their ancestors. The
// to-remove set is fully computed before the graph is mutated.
func (b *Builder) pruneHidden(g Graph, params Params) {
	protected := make(map[repo.OID]bool, len(params.BranchOIDs)+1)
	for oid := range params.BranchOIDs {
		protected[oid] = true
	}
	if params.HeadOID != "" {
		protected[params.HeadOID] = true
	}

	shouldRemove := make(map[repo.OID]bool, len(g))

	// Decide each node bottom-up with an explicit stack; histories can
	// be deep enough that recursing per commit is not safe.
	for oid := range g {
		if _, done := shouldRemove[oid]; done {
			continue
		}
		stack := []repo.OID{oid}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			if _, done := shouldRemove[current]; done {
				stack = stack[:len(stack)-1]
				continue
			}

			node := g[current]
			relevant := relevantChildren(g, node)

			pending := false
			for _, child := range relevant {
				if _, done := shouldRemove[child]; !done {
					stack = append(stack, child)
					pending = true
				}
			}
			if pending {
				continue
			}
			stack = stack[:len(stack)-1]

			if protected[current] {
				shouldRemove[current] = false
				continue
			}
			allChildrenRemoved := true
			for _, child := range relevant {
				if !shouldRemove[child] {
					allChildrenRemoved = false
					break
				}
			}
			if node.IsMain {
				// Hide only "uninteresting" main-line nodes: ones that
				// are visible and have no surviving offshoots. A
				// hidden main-line commit is an anomaly the user
				// should see.
				shouldRemove[current] = node.IsVisible && allChildrenRemoved
			} else {
				shouldRemove[current] = !node.IsVisible && allChildrenRemoved
			}
		}
	}

	for oid, remove := range shouldRemove {
		if !remove {
			continue
		}
		parentOID := g[oid].Parent
		delete(g, oid)
		if parent, ok := g[parentOID]; ok {
			delete(parent.Children, oid)
		}
	}
}

// relevantChildren returns the children that matter for pruning a
// node. The next main-line commit does not count as a child of a
// main-line node for this purpose.
func relevantChildren(g Graph, node *Node) []repo.OID {
	var children []repo.OID
	for child := range node.Children {
		if node.IsMain && g[child].IsMain {
			continue
		}
		children = append(children, child)
	}
	return children
}
