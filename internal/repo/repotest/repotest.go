// Package repotest builds throwaway in-memory git repositories for
// tests. Commits are constructed object-by-object so a test can shape
// an arbitrary DAG without touching the filesystem or a working tree.
package repotest

import (
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"github.com/burl-vcs/burl/internal/repo"
)

// Repo wraps an in-memory git repository together with its ObjectStore
// adapter. The zero time base and one-minute tick between commits keep
// generated histories deterministic.
type Repo struct {
	t        *testing.T
	repo     *git.Repository
	Store    *repo.GitStore
	treeHash plumbing.Hash
	clock    time.Time
}

// New creates an empty in-memory repository.
func New(t *testing.T) *Repo {
	t.Helper()
	r, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)

	tr := &Repo{
		t:     t,
		repo:  r,
		Store: repo.NewFromRepository(r),
		clock: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	tr.treeHash = tr.writeEmptyTree()
	return tr
}

func (r *Repo) writeEmptyTree() plumbing.Hash {
	r.t.Helper()
	obj := r.repo.Storer.NewEncodedObject()
	tree := &object.Tree{}
	require.NoError(r.t, tree.Encode(obj))
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	require.NoError(r.t, err)
	return hash
}

// Commit writes a commit with the given summary and parents and
// returns its OID. Every commit shares the empty tree; histories built
// here exist only to exercise graph shape, not content.
func (r *Repo) Commit(summary string, parents ...repo.OID) repo.OID {
	r.t.Helper()
	r.clock = r.clock.Add(time.Minute)

	parentHashes := make([]plumbing.Hash, 0, len(parents))
	for _, p := range parents {
		parentHashes = append(parentHashes, plumbing.NewHash(string(p)))
	}
	sig := object.Signature{
		Name:  "Testy McTestface",
		Email: "test@example.com",
		When:  r.clock,
	}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      summary + "\n",
		TreeHash:     r.treeHash,
		ParentHashes: parentHashes,
	}
	obj := r.repo.Storer.NewEncodedObject()
	require.NoError(r.t, commit.Encode(obj))
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	require.NoError(r.t, err)
	return repo.OID(hash.String())
}

// SetRef points a ref (e.g. refs/heads/master) at a commit.
func (r *Repo) SetRef(name string, target repo.OID) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(string(target)))
	require.NoError(r.t, r.repo.Storer.SetReference(ref))
}

// DetachHead points HEAD directly at a commit.
func (r *Repo) DetachHead(target repo.OID) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.HEAD, plumbing.NewHash(string(target)))
	require.NoError(r.t, r.repo.Storer.SetReference(ref))
}

// CheckoutBranch makes HEAD a symbolic ref to the given branch.
func (r *Repo) CheckoutBranch(name string) {
	r.t.Helper()
	ref := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.ReferenceName(repo.BranchesPrefix+name))
	require.NoError(r.t, r.repo.Storer.SetReference(ref))
}
