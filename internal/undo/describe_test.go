package undo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/repo/repotest"
)

func TestDescribeEvent(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("first commit")
	b := r.Commit("second commit", a)
	stamp := time.Unix(1000, 0).UTC()

	cases := []struct {
		name  string
		event eventlog.Event
		want  string
	}{
		{
			name:  "commit",
			event: eventlog.CommitEvent{Timestamp: stamp, CommitOID: a},
			want:  "Commit " + a.Short() + " first commit",
		},
		{
			name:  "hide",
			event: eventlog.HideEvent{Timestamp: stamp, CommitOID: b},
			want:  "Hide commit " + b.Short() + " second commit",
		},
		{
			name:  "checkout",
			event: eventlog.RefUpdateEvent{Timestamp: stamp, RefName: eventlog.HeadRefName, OldRef: a, NewRef: b},
			want:  "Check out from " + a.Short() + " first commit\n            to " + b.Short() + " second commit",
		},
		{
			name:  "branch creation",
			event: eventlog.RefUpdateEvent{Timestamp: stamp, RefName: repo.BranchesPrefix + "topic", NewRef: b},
			want:  "Create branch topic at " + b.Short() + " second commit",
		},
		{
			name:  "branch deletion",
			event: eventlog.RefUpdateEvent{Timestamp: stamp, RefName: repo.BranchesPrefix + "topic", OldRef: b},
			want:  "Delete branch topic at " + b.Short() + " second commit",
		},
		{
			name:  "missing commit",
			event: eventlog.HideEvent{Timestamp: stamp, CommitOID: oidC},
			want:  "Hide commit " + oidC.Short() + " <commit not available>",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DescribeEvent(r.Store, tc.event))
		})
	}
}

func TestDescribeEventsNumbersLines(t *testing.T) {
	r := repotest.New(t)
	a := r.Commit("first commit")
	stamp := time.Unix(1000, 0).UTC()

	lines := DescribeEvents(r.Store, []eventlog.Event{
		eventlog.CommitEvent{Timestamp: stamp, CommitOID: a},
		eventlog.HideEvent{Timestamp: stamp, CommitOID: a},
	})
	assert.Equal(t, []string{
		"1. Commit " + a.Short() + " first commit",
		"2. Hide commit " + a.Short() + " first commit",
	}, lines)
}
