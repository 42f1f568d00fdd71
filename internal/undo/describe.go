package undo

import (
	"fmt"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/repo"
)

// DescribeEvent renders one event in human terms for the undo
// preview.
func DescribeEvent(objects repo.ObjectStore, event eventlog.Event) string {
	switch e := event.(type) {
	case eventlog.CommitEvent:
		return fmt.Sprintf("Commit %s", describeCommit(objects, e.CommitOID))
	case eventlog.HideEvent:
		return fmt.Sprintf("Hide commit %s", describeCommit(objects, e.CommitOID))
	case eventlog.UnhideEvent:
		return fmt.Sprintf("Unhide commit %s", describeCommit(objects, e.CommitOID))
	case eventlog.RewriteEvent:
		return fmt.Sprintf("Rewrite commit %s\n            as %s",
			describeCommit(objects, e.OldCommitOID),
			describeCommit(objects, e.NewCommitOID))
	case eventlog.RefUpdateEvent:
		return describeRefUpdate(objects, e)
	default:
		panic("unhandled event kind in DescribeEvent")
	}
}

func describeRefUpdate(objects repo.ObjectStore, e eventlog.RefUpdateEvent) string {
	if e.RefName == eventlog.HeadRefName {
		switch {
		case e.OldRef.IsZero() && !e.NewRef.IsZero():
			return fmt.Sprintf("Check out to %s", describeCommit(objects, e.NewRef))
		case !e.OldRef.IsZero() && !e.NewRef.IsZero():
			return fmt.Sprintf("Check out from %s\n            to %s",
				describeCommit(objects, e.OldRef),
				describeCommit(objects, e.NewRef))
		}
	}

	name := repo.BranchShortName(e.RefName)
	switch {
	case e.OldRef.IsZero() && e.NewRef.IsZero():
		return fmt.Sprintf("Empty event for %s", name)
	case e.OldRef.IsZero():
		return fmt.Sprintf("Create branch %s at %s", name, describeCommit(objects, e.NewRef))
	case e.NewRef.IsZero():
		return fmt.Sprintf("Delete branch %s at %s", name, describeCommit(objects, e.OldRef))
	default:
		return fmt.Sprintf("Move branch %s from %s\n            to %s",
			name,
			describeCommit(objects, e.OldRef),
			describeCommit(objects, e.NewRef))
	}
}

// DescribeEvents numbers a sequence of events for display.
func DescribeEvents(objects repo.ObjectStore, events []eventlog.Event) []string {
	var lines []string
	for i, event := range events {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, DescribeEvent(objects, event)))
	}
	return lines
}

// describeCommit renders "abcd1234 summary", falling back to a marker
// when the commit object no longer exists.
func describeCommit(objects repo.ObjectStore, oid repo.OID) string {
	if oid.IsZero() {
		return "<none>"
	}
	commit, ok, err := objects.GetCommit(oid)
	if err != nil || !ok {
		return fmt.Sprintf("%s <commit not available>", oid.Short())
	}
	return fmt.Sprintf("%s %s", oid.Short(), commit.Summary)
}
