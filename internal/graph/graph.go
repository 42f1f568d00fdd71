// Package graph builds the in-memory commit DAG that smartlog,
// restack, and undo all operate on. The graph covers only the commits
// the event log considers interesting, plus the ancestry connecting
// them to the main line; long uninteresting stretches of main-line
// history are elided.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/repo"
)

// Node is one commit in the built graph.
type Node struct {
	// Commit is the underlying commit object.
	Commit repo.Commit

	// Parent is the commit's single parent as represented in the
	// graph. This is not the git parent: the graph elides main-line
	// intermediates, and a merge commit contributes only the path the
	// builder walked. Empty for roots.
	Parent repo.OID

	// Children is the set of graph children.
	Children map[repo.OID]bool

	// IsMain marks commits reachable on the main line.
	IsMain bool

	// IsVisible is the commit's display state derived from the event
	// log. A hidden commit can still be in the graph, e.g. when it is
	// checked out.
	IsVisible bool

	// LatestEvent is the most recent event that touched this commit,
	// if any. The restack engine follows rewrite chains through it.
	LatestEvent eventlog.Event
}

// Graph maps each included commit to its node.
type Graph map[repo.OID]*Node

// ConsistencyError reports a broken internal invariant of the built
// graph. It indicates a bug in the builder, not a problem with the
// repository, and callers should treat it as fatal.
type ConsistencyError struct {
	Code    ConsistencyErrorCode
	Message string
	OID     repo.OID
	Related repo.OID
}

// ConsistencyErrorCode categorizes consistency violations.
type ConsistencyErrorCode string

const (
	// ErrCodeMissingChildLink means a node names a parent that does
	// not list it as a child.
	ErrCodeMissingChildLink ConsistencyErrorCode = "MISSING_CHILD_LINK"

	// ErrCodeMissingParentLink means a node lists a child that does
	// not name it as parent.
	ErrCodeMissingParentLink ConsistencyErrorCode = "MISSING_PARENT_LINK"

	// ErrCodeDanglingNode means a link refers to a commit that is not
	// in the graph at all.
	ErrCodeDanglingNode ConsistencyErrorCode = "DANGLING_NODE"
)

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s (commit=%s, related=%s)", e.Code, e.Message, e.OID.Short(), e.Related.Short())
}

// IsConsistencyError reports whether err is (or wraps) a graph
// consistency violation.
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

// CheckLinks verifies that parent and child links are mutual. It runs
// after construction and again after pruning; a failure means one of
// those steps has a bug.
func (g Graph) CheckLinks() error {
	for oid, node := range g {
		if node.Parent != "" {
			parent, ok := g[node.Parent]
			if !ok {
				return &ConsistencyError{
					Code:    ErrCodeDanglingNode,
					Message: "node's parent is not in the graph",
					OID:     oid,
					Related: node.Parent,
				}
			}
			if !parent.Children[oid] {
				return &ConsistencyError{
					Code:    ErrCodeMissingChildLink,
					Message: "node is not listed among its parent's children",
					OID:     oid,
					Related: node.Parent,
				}
			}
		}
		for child := range node.Children {
			childNode, ok := g[child]
			if !ok {
				return &ConsistencyError{
					Code:    ErrCodeDanglingNode,
					Message: "node's child is not in the graph",
					OID:     oid,
					Related: child,
				}
			}
			if childNode.Parent != oid {
				return &ConsistencyError{
					Code:    ErrCodeMissingParentLink,
					Message: "child does not point back at this node",
					OID:     oid,
					Related: child,
				}
			}
		}
	}
	return nil
}

// Roots returns the commits with no graph parent, sorted by commit
// time then OID for determinism.
func (g Graph) Roots() []repo.OID {
	var roots []repo.OID
	for oid, node := range g {
		if node.Parent == "" {
			roots = append(roots, oid)
		}
	}
	sortByTime(g, roots)
	return roots
}

// SortedChildren returns a node's children sorted by commit time then
// OID.
func (g Graph) SortedChildren(oid repo.OID) []repo.OID {
	node := g[oid]
	if node == nil {
		return nil
	}
	children := make([]repo.OID, 0, len(node.Children))
	for child := range node.Children {
		children = append(children, child)
	}
	sortByTime(g, children)
	return children
}

// sortByTime orders commits by author time, breaking ties by OID so
// output is stable across runs.
func sortByTime(g Graph, oids []repo.OID) {
	sort.Slice(oids, func(i, j int) bool {
		a, b := g[oids[i]], g[oids[j]]
		if !a.Commit.AuthorTime.Equal(b.Commit.AuthorTime) {
			return a.Commit.AuthorTime.Before(b.Commit.AuthorTime)
		}
		return oids[i] < oids[j]
	})
}
