package repo

import (
	"errors"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// GitStore implements ObjectStore on top of go-git.
type GitStore struct {
	repo   *git.Repository
	gitDir string
}

// Open discovers and opens the repository containing path (walking up
// to find the .git directory, like git itself does).
func Open(path string) (*GitStore, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	store := NewFromRepository(r)
	if fs, ok := r.Storer.(*filesystem.Storage); ok {
		store.gitDir = fs.Filesystem().Root()
	}
	return store, nil
}

// NewFromRepository wraps an already-open go-git repository. Used by
// tests that build repositories in memory.
func NewFromRepository(r *git.Repository) *GitStore {
	return &GitStore{repo: r}
}

// GitDir returns the path of the .git directory, or "" for in-memory
// repositories. Durable state (the event log database, the config
// file) lives underneath it.
func (s *GitStore) GitDir() string {
	return s.gitDir
}

// Repository exposes the underlying go-git handle.
func (s *GitStore) Repository() *git.Repository {
	return s.repo
}

func (s *GitStore) GetCommit(oid OID) (Commit, bool, error) {
	c, err := s.repo.CommitObject(plumbing.NewHash(string(oid)))
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return Commit{}, false, nil
	}
	if err != nil {
		return Commit{}, false, fmt.Errorf("failed to look up commit %s: %w", oid, err)
	}
	return commitFromObject(c), true, nil
}

func commitFromObject(c *object.Commit) Commit {
	parents := make([]OID, 0, c.NumParents())
	for _, h := range c.ParentHashes {
		parents = append(parents, OID(h.String()))
	}
	summary := c.Message
	if idx := strings.IndexByte(summary, '\n'); idx >= 0 {
		summary = summary[:idx]
	}
	return Commit{
		OID:        OID(c.Hash.String()),
		Parents:    parents,
		AuthorTime: c.Author.When,
		Summary:    summary,
	}
}

func (s *GitStore) MergeBase(a, b OID) (OID, error) {
	commitA, err := s.repo.CommitObject(plumbing.NewHash(string(a)))
	if err != nil {
		return "", fmt.Errorf("failed to look up commit %s: %w", a, err)
	}
	commitB, err := s.repo.CommitObject(plumbing.NewHash(string(b)))
	if err != nil {
		return "", fmt.Errorf("failed to look up commit %s: %w", b, err)
	}
	bases, err := commitA.MergeBase(commitB)
	if err != nil {
		return "", fmt.Errorf("failed to compute merge-base of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		// Unrelated histories. A valid answer, not an error.
		return "", nil
	}
	return OID(bases[0].Hash.String()), nil
}

func (s *GitStore) ResolveRef(name string) (OID, bool, error) {
	ref, err := s.repo.Reference(plumbing.ReferenceName(name), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve ref %s: %w", name, err)
	}
	return OID(ref.Hash().String()), true, nil
}

func (s *GitStore) ResolveRev(rev string) (OID, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("could not resolve %q to a commit: %w", rev, err)
	}
	return OID(hash.String()), nil
}

func (s *GitStore) ListLocalRefs() ([]string, error) {
	iter, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := string(ref.Name())
		if strings.HasPrefix(name, BranchesPrefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return names, nil
}

func (s *GitStore) UpdateRef(name string, target OID) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(string(target)))
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to update ref %s to %s: %w", name, target, err)
	}
	return nil
}

func (s *GitStore) DeleteRef(name string) (bool, error) {
	refName := plumbing.ReferenceName(name)
	_, err := s.repo.Reference(refName, false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up ref %s: %w", name, err)
	}
	if err := s.repo.Storer.RemoveReference(refName); err != nil {
		return false, fmt.Errorf("failed to delete ref %s: %w", name, err)
	}
	return true, nil
}
