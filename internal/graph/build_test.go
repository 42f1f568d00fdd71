package graph

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/mergebase"
	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/repo/repotest"
	"github.com/burl-vcs/burl/internal/storage"
)

func newTestBuilder(t *testing.T, r *repotest.Repo, replayer *eventlog.Replayer) *Builder {
	t.Helper()
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &Builder{
		Objects:  r.Store,
		Bases:    mergebase.NewCache(store, r.Store),
		Replayer: replayer,
		Logger:   slog.New(slog.DiscardHandler),
	}
}

func commitEvent(oid repo.OID) eventlog.CommitEvent {
	return eventlog.CommitEvent{Timestamp: time.Unix(0, 0).UTC(), CommitOID: oid}
}

func hideEvent(oid repo.OID) eventlog.HideEvent {
	return eventlog.HideEvent{Timestamp: time.Unix(0, 0).UTC(), CommitOID: oid}
}

func TestBuildLinksStackToMainBranch(t *testing.T) {
	r := repotest.New(t)
	main1 := r.Commit("main 1")
	main2 := r.Commit("main 2", main1)
	b := r.Commit("commit b", main2)
	c := r.Commit("commit c", b)

	replayer := eventlog.NewReplayer()
	replayer.Process(commitEvent(b))
	replayer.Process(commitEvent(c))

	builder := newTestBuilder(t, r, replayer)
	g, err := builder.Build(context.Background(), replayer.DefaultCursor(), Params{
		HeadOID:       c,
		MainBranchOID: main2,
		PruneHidden:   true,
	})
	require.NoError(t, err)

	require.Contains(t, g, main2)
	require.Contains(t, g, b)
	require.Contains(t, g, c)
	// main 1 is an uninteresting main-line intermediate.
	assert.NotContains(t, g, main1)

	assert.True(t, g[main2].IsMain)
	assert.False(t, g[b].IsMain)
	assert.Equal(t, main2, g[b].Parent)
	assert.Equal(t, b, g[c].Parent)
	assert.True(t, g[main2].Children[b])
	assert.True(t, g[b].Children[c])
	require.NoError(t, g.CheckLinks())
}

func TestHiddenCommitPrunedUnlessHead(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("main a")
	b := r.Commit("commit b", a)

	replayer := eventlog.NewReplayer()
	replayer.Process(commitEvent(b))
	replayer.Process(hideEvent(b))

	builder := newTestBuilder(t, r, replayer)
	ctx := context.Background()

	g, err := builder.Build(ctx, replayer.DefaultCursor(), Params{
		MainBranchOID: a,
		PruneHidden:   true,
	})
	require.NoError(t, err)
	assert.NotContains(t, g, b)

	// The same build with b checked out must keep it.
	g, err = builder.Build(ctx, replayer.DefaultCursor(), Params{
		HeadOID:       b,
		MainBranchOID: a,
		PruneHidden:   true,
	})
	require.NoError(t, err)
	require.Contains(t, g, b)
	assert.False(t, g[b].IsVisible)
}

func TestPruningKeepsHeadAncestry(t *testing.T) {
	r := repotest.New(t)
	main := r.Commit("main")
	x := r.Commit("commit x", main)
	y := r.Commit("commit y", x)

	replayer := eventlog.NewReplayer()
	replayer.Process(commitEvent(x))
	replayer.Process(commitEvent(y))
	replayer.Process(hideEvent(x))
	replayer.Process(hideEvent(y))

	builder := newTestBuilder(t, r, replayer)
	g, err := builder.Build(context.Background(), replayer.DefaultCursor(), Params{
		HeadOID:       y,
		MainBranchOID: main,
		PruneHidden:   true,
	})
	require.NoError(t, err)

	// Both hidden, but y is HEAD, so y and its ancestor x survive.
	assert.Contains(t, g, x)
	assert.Contains(t, g, y)
}

func TestBranchTipsProtectedFromPruning(t *testing.T) {
	r := repotest.New(t)
	main := r.Commit("main")
	b := r.Commit("commit b", main)

	replayer := eventlog.NewReplayer()
	replayer.Process(commitEvent(b))
	replayer.Process(hideEvent(b))

	builder := newTestBuilder(t, r, replayer)
	g, err := builder.Build(context.Background(), replayer.DefaultCursor(), Params{
		MainBranchOID: main,
		BranchOIDs:    map[repo.OID]bool{b: true},
		PruneHidden:   true,
	})
	require.NoError(t, err)
	assert.Contains(t, g, b)
}

func TestUnrelatedRootBecomesStandaloneComponent(t *testing.T) {
	r := repotest.New(t)
	main := r.Commit("main")
	orphan := r.Commit("orphan root")

	replayer := eventlog.NewReplayer()
	replayer.Process(commitEvent(orphan))

	builder := newTestBuilder(t, r, replayer)
	g, err := builder.Build(context.Background(), replayer.DefaultCursor(), Params{
		HeadOID:       orphan,
		MainBranchOID: main,
		PruneHidden:   true,
	})
	require.NoError(t, err)

	require.Contains(t, g, orphan)
	assert.Equal(t, repo.OID(""), g[orphan].Parent)
	assert.False(t, g[orphan].IsMain)
}

func TestRewriteRecordedAsLatestEvent(t *testing.T) {
	r := repotest.New(t)
	main := r.Commit("main")
	b := r.Commit("commit b", main)
	b2 := r.Commit("commit b amended", main)

	replayer := eventlog.NewReplayer()
	replayer.Process(commitEvent(b))
	replayer.Process(eventlog.RewriteEvent{
		Timestamp:    time.Unix(0, 0).UTC(),
		OldCommitOID: b,
		NewCommitOID: b2,
	})

	builder := newTestBuilder(t, r, replayer)
	g, err := builder.Build(context.Background(), replayer.DefaultCursor(), Params{
		HeadOID:       b2,
		MainBranchOID: main,
		PruneHidden:   false,
	})
	require.NoError(t, err)

	require.Contains(t, g, b)
	require.Contains(t, g, b2)
	assert.False(t, g[b].IsVisible)
	assert.IsType(t, eventlog.RewriteEvent{}, g[b].LatestEvent)
}

func TestCheckLinksCatchesBrokenInvariant(t *testing.T) {
	r := repotest.New(t)
	main := r.Commit("main")
	b := r.Commit("commit b", main)

	replayer := eventlog.NewReplayer()
	replayer.Process(commitEvent(b))

	builder := newTestBuilder(t, r, replayer)
	g, err := builder.Build(context.Background(), replayer.DefaultCursor(), Params{
		HeadOID:       b,
		MainBranchOID: main,
	})
	require.NoError(t, err)

	// Sever one direction of the link.
	delete(g[main].Children, b)
	err = g.CheckLinks()
	require.Error(t, err)
	assert.True(t, IsConsistencyError(err))
}
