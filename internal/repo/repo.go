// Package repo abstracts the underlying Git object store.
//
// The rest of burl only ever sees commits, references, and merge-bases
// through the ObjectStore interface; the go-git implementation lives in
// gitstore.go, and working-copy mutations (checkout, rebase, branch
// moves) go through the subprocess Runner instead, since those must run
// the real git executable so that hooks fire and conflicts stop where
// the user can resolve them.
package repo

import (
	"strings"
	"time"
)

// OID is the content-addressed identifier of a Git object, as a hex
// string. The object it names is not guaranteed to still exist (it may
// have been garbage collected). The empty string means "no object";
// Git's all-zero hash is normalized to it on the way in.
type OID string

// ZeroHash is the all-zeros OID Git hooks use to signal an absent
// endpoint (reference creation or deletion).
const ZeroHash = "0000000000000000000000000000000000000000"

// IsZero reports whether the OID names no object.
func (o OID) IsZero() bool {
	return o == "" || string(o) == ZeroHash
}

// Short returns the abbreviated form used for display.
func (o OID) Short() string {
	if len(o) <= 8 {
		return string(o)
	}
	return string(o[:8])
}

func (o OID) String() string {
	return string(o)
}

// NormalizeOID maps the all-zero hash to the empty OID.
func NormalizeOID(s string) OID {
	if s == ZeroHash {
		return ""
	}
	return OID(s)
}

// Commit is the subset of a Git commit object the graph logic needs.
type Commit struct {
	OID        OID
	Parents    []OID
	AuthorTime time.Time
	Summary    string
}

// ObjectStore provides read access to the repository's object database
// and references, plus direct reference writes for the undo engine.
// Implementations must be safe to use from a single goroutine.
type ObjectStore interface {
	// GetCommit looks up a commit by OID. ok is false if the object
	// does not exist (e.g. garbage collected).
	GetCommit(oid OID) (commit Commit, ok bool, err error)

	// MergeBase computes the nearest common ancestor of a and b.
	// Returns the empty OID if the histories are unrelated.
	MergeBase(a, b OID) (OID, error)

	// ResolveRef resolves a fully-qualified reference name (or HEAD)
	// to the commit it points to. ok is false if the ref does not
	// exist.
	ResolveRef(name string) (oid OID, ok bool, err error)

	// ResolveRev resolves user input (abbreviated hash, ref name,
	// revision expression) to a commit OID.
	ResolveRev(rev string) (OID, error)

	// ListLocalRefs returns the fully-qualified names of all local
	// branch references (refs/heads/*).
	ListLocalRefs() ([]string, error)

	// UpdateRef creates or moves a direct reference.
	UpdateRef(name string, target OID) error

	// DeleteRef removes a reference. Deleting an absent reference is
	// not an error; ok reports whether it existed.
	DeleteRef(name string) (ok bool, err error)
}

// BranchesPrefix is the namespace of local branch references.
const BranchesPrefix = "refs/heads/"

// BranchShortName strips the refs/heads/ prefix, if present.
func BranchShortName(refName string) string {
	return strings.TrimPrefix(refName, BranchesPrefix)
}
