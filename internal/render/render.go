// Package render draws the commit graph as text. Rendering is pure:
// the same graph renders to the same lines every time, which the undo
// engine relies on as the user scrubs back and forth through history.
package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/burl-vcs/burl/internal/graph"
	"github.com/burl-vcs/burl/internal/mergebase"
	"github.com/burl-vcs/burl/internal/repo"
)

// Options control a single rendering.
type Options struct {
	// HeadOID is the commit to mark as checked out.
	HeadOID repo.OID

	// BranchesByOID decorates commits with the short names of branches
	// pointing at them.
	BranchesByOID map[repo.OID][]string
}

// Renderer draws graphs. The merge-base cache is used to order
// independent components topologically.
type Renderer struct {
	Glyphs Glyphs
	Bases  *mergebase.Cache
}

// Render returns the display lines for the graph, one commit per line
// plus connector lines.
func (r *Renderer) Render(ctx context.Context, g graph.Graph, opts Options) ([]string, error) {
	roots := r.splitByRoots(ctx, g)
	rootSet := make(map[repo.OID]bool, len(roots))
	for _, root := range roots {
		rootSet[root] = true
	}

	// hasRealParent consults the underlying commit's parents, not the
	// graph links: adjacent main-line commits are related even though
	// the graph never links them.
	hasRealParent := func(oid, parentOID repo.OID) bool {
		for _, p := range g[oid].Commit.Parents {
			if p == parentOID {
				return true
			}
		}
		return false
	}

	var lines []string
	for rootIdx, rootOID := range roots {
		if len(g[rootOID].Commit.Parents) > 0 {
			if rootIdx > 0 && hasRealParent(rootOID, roots[rootIdx-1]) {
				lines = append(lines, r.Glyphs.Line)
			} else {
				lines = append(lines, r.Glyphs.VerticalEllipsis)
			}
		} else if rootIdx > 0 {
			// Topologically unrelated roots get a blank separator.
			lines = append(lines, "")
		}

		lastChildChar := ""
		if rootIdx < len(roots)-1 {
			if hasRealParent(roots[rootIdx+1], rootOID) {
				lastChildChar = r.Glyphs.Line
			} else {
				lastChildChar = r.Glyphs.VerticalEllipsis
			}
		}

		lines = r.renderSubtree(lines, g, rootSet, opts, rootOID, lastChildChar)
	}
	return lines, nil
}

// frame is one pending unit of rendering work: either a literal line,
// or a node whose output lines all carry the given prefix.
type frame struct {
	literal string
	isNode  bool
	oid     repo.OID
	prefix  string

	// lastChildChar, when non-empty, is the column character that the
	// next root will occupy; the node's last child is shifted right
	// past it.
	lastChildChar string
}

// renderSubtree renders the subtree at rootOID, appending to lines.
// The traversal uses an explicit stack so that arbitrarily deep
// histories cannot exhaust the call stack.
func (r *Renderer) renderSubtree(lines []string, g graph.Graph, rootSet map[repo.OID]bool, opts Options, rootOID repo.OID, lastChildChar string) []string {
	stack := []frame{{isNode: true, oid: rootOID, lastChildChar: lastChildChar}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !f.isNode {
			lines = append(lines, f.literal)
			continue
		}

		node := g[f.oid]
		lines = append(lines, f.prefix+r.describe(node, opts))

		var children []repo.OID
		for _, child := range g.SortedChildren(f.oid) {
			if rootSet[child] {
				// Rendered at the top level instead.
				continue
			}
			children = append(children, child)
		}

		// Push in reverse so the first child is processed first.
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			isLast := i == len(children)-1

			var connector string
			childFrame := frame{isNode: true, oid: child}
			switch {
			case !isLast:
				connector = r.Glyphs.LineWithOffshoot + r.Glyphs.Slash
				childFrame.prefix = f.prefix + r.Glyphs.Line + " "
			case f.lastChildChar != "":
				connector = r.Glyphs.LineWithOffshoot + r.Glyphs.Slash
				childFrame.prefix = f.prefix + f.lastChildChar + " "
			default:
				connector = r.Glyphs.Line
				childFrame.prefix = f.prefix
			}

			stack = append(stack, childFrame)
			stack = append(stack, frame{literal: f.prefix + connector})
		}
	}
	return lines
}

// describe renders a commit's own line: status glyph, abbreviated
// OID, branch decorations, summary.
func (r *Renderer) describe(node *graph.Node, opts Options) string {
	isHead := node.Commit.OID == opts.HeadOID

	var glyph string
	switch {
	case node.IsMain && node.IsVisible && isHead:
		glyph = r.Glyphs.CommitMainHead
	case node.IsMain && node.IsVisible:
		glyph = r.Glyphs.CommitMain
	case node.IsMain && isHead:
		glyph = r.Glyphs.CommitMainHiddenHead
	case node.IsMain:
		glyph = r.Glyphs.CommitMainHidden
	case node.IsVisible && isHead:
		glyph = r.Glyphs.CommitHead
	case node.IsVisible:
		glyph = r.Glyphs.Commit
	case isHead:
		glyph = r.Glyphs.CommitHiddenHead
	default:
		glyph = r.Glyphs.CommitHidden
	}

	var sb strings.Builder
	sb.WriteString(glyph)
	sb.WriteString(" ")
	sb.WriteString(node.Commit.OID.Short())
	if branches := opts.BranchesByOID[node.Commit.OID]; len(branches) > 0 {
		sorted := append([]string(nil), branches...)
		sort.Strings(sorted)
		fmt.Fprintf(&sb, " (%s)", strings.Join(sorted, ", "))
	}
	sb.WriteString(" ")
	// Summaries come from arbitrary commit messages; normalize so the
	// same text always renders as the same bytes.
	sb.WriteString(norm.NFC.String(node.Commit.Summary))
	return sb.String()
}

// splitByRoots returns the graph's roots ordered so that
// topologically earlier components come first. Components that cannot
// be ordered by merge-base fall back to commit time, then OID.
func (r *Renderer) splitByRoots(ctx context.Context, g graph.Graph) []repo.OID {
	roots := g.Roots()
	sort.SliceStable(roots, func(i, j int) bool {
		lhs, rhs := roots[i], roots[j]
		mergeBase, err := r.Bases.MergeBase(ctx, lhs, rhs)
		if err == nil {
			switch mergeBase {
			case lhs:
				return true
			case rhs:
				return false
			}
		}
		lhsTime := g[lhs].Commit.AuthorTime
		rhsTime := g[rhs].Commit.AuthorTime
		if !lhsTime.Equal(rhsTime) {
			return lhsTime.Before(rhsTime)
		}
		return lhs < rhs
	})
	return roots
}
