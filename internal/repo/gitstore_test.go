package repo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/repo/repotest"
)

func TestGetCommit(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("first commit")
	b := r.Commit("second commit", a)

	commit, ok, err := r.Store.GetCommit(b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b, commit.OID)
	assert.Equal(t, []repo.OID{a}, commit.Parents)
	assert.Equal(t, "second commit", commit.Summary)
	assert.False(t, commit.AuthorTime.IsZero())
}

func TestGetCommitMissing(t *testing.T) {
	r := repotest.New(t)
	_, ok, err := r.Store.GetCommit("cccccccccccccccccccccccccccccccccccccccc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMergeBase(t *testing.T) {
	r := repotest.New(t)
	base := r.Commit("base")
	left := r.Commit("left", base)
	right := r.Commit("right", base)

	mb, err := r.Store.MergeBase(left, right)
	require.NoError(t, err)
	assert.Equal(t, base, mb)

	// An ancestor is its own merge-base with a descendant.
	mb, err = r.Store.MergeBase(base, left)
	require.NoError(t, err)
	assert.Equal(t, base, mb)
}

func TestMergeBaseUnrelatedHistories(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("one root")
	b := r.Commit("another root")

	mb, err := r.Store.MergeBase(a, b)
	require.NoError(t, err)
	assert.True(t, mb.IsZero())
}

func TestResolveRef(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("commit a")
	r.SetRef(repo.BranchesPrefix+"master", a)

	target, ok, err := r.Store.ResolveRef(repo.BranchesPrefix + "master")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, target)

	_, ok, err = r.Store.ResolveRef(repo.BranchesPrefix + "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRefThroughSymbolicHead(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("commit a")
	r.SetRef(repo.BranchesPrefix+"master", a)
	r.CheckoutBranch("master")

	target, ok, err := r.Store.ResolveRef("HEAD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, target)
}

func TestResolveRev(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("commit a")

	oid, err := r.Store.ResolveRev(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, oid)

	_, err = r.Store.ResolveRev("no-such-rev")
	assert.Error(t, err)
}

func TestListLocalRefsFiltersBranches(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("commit a")
	r.SetRef(repo.BranchesPrefix+"master", a)
	r.SetRef(repo.BranchesPrefix+"topic", a)
	r.SetRef("refs/tags/v1", a)

	names, err := r.Store.ListLocalRefs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		repo.BranchesPrefix + "master",
		repo.BranchesPrefix + "topic",
	}, names)
}

func TestUpdateAndDeleteRef(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("commit a")
	name := repo.BranchesPrefix + "topic"

	require.NoError(t, r.Store.UpdateRef(name, a))
	target, ok, err := r.Store.ResolveRef(name)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, target)

	existed, err := r.Store.DeleteRef(name)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = r.Store.DeleteRef(name)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestNormalizeOID(t *testing.T) {
	assert.Equal(t, repo.OID(""), repo.NormalizeOID(repo.ZeroHash))
	assert.Equal(t, repo.OID(""), repo.NormalizeOID(""))
	assert.Equal(t, repo.OID("abc"), repo.NormalizeOID("abc"))
}

func TestBranchShortName(t *testing.T) {
	assert.Equal(t, "master", repo.BranchShortName("refs/heads/master"))
	assert.Equal(t, "HEAD", repo.BranchShortName("HEAD"))
}
