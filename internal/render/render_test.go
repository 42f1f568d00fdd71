package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/burl-vcs/burl/internal/graph"
	"github.com/burl-vcs/burl/internal/mergebase"
	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/storage"
)

const (
	oidMain1  = repo.OID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	oidB      = repo.OID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	oidC      = repo.OID("cccccccccccccccccccccccccccccccccccccccc")
	oidMain2  = repo.OID("dddddddddddddddddddddddddddddddddddddddd")
	oidOrphan = repo.OID("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
)

// fakeObjects serves merge-base queries from a fixed table. The
// renderer only needs merge-bases, to order root components.
type fakeObjects struct {
	bases map[[2]repo.OID]repo.OID
}

func (f *fakeObjects) MergeBase(a, b repo.OID) (repo.OID, error) {
	if a > b {
		a, b = b, a
	}
	return f.bases[[2]repo.OID{a, b}], nil
}

func (f *fakeObjects) GetCommit(repo.OID) (repo.Commit, bool, error) {
	return repo.Commit{}, false, nil
}
func (f *fakeObjects) ResolveRef(string) (repo.OID, bool, error) { return "", false, nil }
func (f *fakeObjects) ResolveRev(string) (repo.OID, error)       { return "", nil }
func (f *fakeObjects) ListLocalRefs() ([]string, error)          { return nil, nil }
func (f *fakeObjects) UpdateRef(string, repo.OID) error          { return nil }
func (f *fakeObjects) DeleteRef(string) (bool, error)            { return false, nil }

func newTestRenderer(t *testing.T, bases map[[2]repo.OID]repo.OID) *Renderer {
	t.Helper()
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &Renderer{
		Glyphs: TextGlyphs(),
		Bases:  mergebase.NewCache(store, &fakeObjects{bases: bases}),
	}
}

// node builds a graph node; links are wired up by the caller.
func node(oid repo.OID, summary string, minute int, parents ...repo.OID) *graph.Node {
	return &graph.Node{
		Commit: repo.Commit{
			OID:        oid,
			Parents:    parents,
			AuthorTime: time.Date(2022, 1, 1, 0, minute, 0, 0, time.UTC),
			Summary:    summary,
		},
		Children:  make(map[repo.OID]bool),
		IsVisible: true,
	}
}

func link(g graph.Graph, parent, child repo.OID) {
	g[child].Parent = parent
	g[parent].Children[child] = true
}

func renderToGolden(t *testing.T, r *Renderer, g graph.Graph, opts Options) {
	t.Helper()
	require.NoError(t, g.CheckLinks())
	lines, err := r.Render(context.Background(), g, opts)
	require.NoError(t, err)

	golden := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	golden.Assert(t, t.Name(), []byte(strings.Join(lines, "\n")+"\n"))
}

func TestRenderStack(t *testing.T) {
	g := graph.Graph{
		oidMain1: node(oidMain1, "main one", 1),
		oidB:     node(oidB, "commit b", 2, oidMain1),
		oidC:     node(oidC, "commit c", 3, oidB),
	}
	g[oidMain1].IsMain = true
	link(g, oidMain1, oidB)
	link(g, oidB, oidC)

	r := newTestRenderer(t, nil)
	renderToGolden(t, r, g, Options{
		HeadOID:       oidC,
		BranchesByOID: map[repo.OID][]string{oidMain1: {"master"}},
	})
}

func TestRenderFork(t *testing.T) {
	g := graph.Graph{
		oidMain1: node(oidMain1, "main one", 1),
		oidB:     node(oidB, "commit b", 2, oidMain1),
		oidC:     node(oidC, "commit c", 3, oidMain1),
	}
	g[oidMain1].IsMain = true
	link(g, oidMain1, oidB)
	link(g, oidMain1, oidC)

	r := newTestRenderer(t, nil)
	renderToGolden(t, r, g, Options{HeadOID: oidC})
}

func TestRenderHiddenCommits(t *testing.T) {
	g := graph.Graph{
		oidMain1: node(oidMain1, "main one", 1),
		oidB:     node(oidB, "commit b", 2, oidMain1),
		oidC:     node(oidC, "commit c", 3, oidB),
	}
	g[oidMain1].IsMain = true
	g[oidB].IsVisible = false
	g[oidC].IsVisible = false
	link(g, oidMain1, oidB)
	link(g, oidB, oidC)

	r := newTestRenderer(t, nil)
	renderToGolden(t, r, g, Options{HeadOID: oidC})
}

func TestRenderTwoMainComponents(t *testing.T) {
	g := graph.Graph{
		oidMain1: node(oidMain1, "main one", 1),
		oidB:     node(oidB, "commit b", 2, oidMain1),
		oidMain2: node(oidMain2, "main two", 3, oidMain1),
	}
	g[oidMain1].IsMain = true
	g[oidMain2].IsMain = true
	link(g, oidMain1, oidB)

	r := newTestRenderer(t, map[[2]repo.OID]repo.OID{
		{oidMain1, oidMain2}: oidMain1,
	})
	renderToGolden(t, r, g, Options{
		HeadOID:       oidMain2,
		BranchesByOID: map[repo.OID][]string{oidMain2: {"master"}},
	})
}

func TestRenderElidedMainLine(t *testing.T) {
	// The second root's real parent is an elided main-line commit, so
	// the components are joined with a vertical ellipsis.
	hidden := repo.OID("ffffffffffffffffffffffffffffffffffffffff")
	g := graph.Graph{
		oidMain1: node(oidMain1, "main one", 1),
		oidMain2: node(oidMain2, "main two", 3, hidden),
	}
	g[oidMain1].IsMain = true
	g[oidMain2].IsMain = true

	r := newTestRenderer(t, map[[2]repo.OID]repo.OID{
		{oidMain1, oidMain2}: oidMain1,
	})
	renderToGolden(t, r, g, Options{HeadOID: oidMain2})
}

func TestRenderUnrelatedRoots(t *testing.T) {
	g := graph.Graph{
		oidMain1:  node(oidMain1, "main one", 1),
		oidOrphan: node(oidOrphan, "orphan root", 5),
	}
	g[oidMain1].IsMain = true

	r := newTestRenderer(t, nil)
	renderToGolden(t, r, g, Options{HeadOID: oidOrphan})
}
