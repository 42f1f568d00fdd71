package eventlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/storage"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	store, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewLog(store)
}

func TestAppendAndReadBack(t *testing.T) {
	ctx := context.Background()
	log := openTestLog(t)

	written := []Event{
		RefUpdateEvent{
			Timestamp:     at(1),
			TransactionID: "tx-1",
			RefName:       repo.BranchesPrefix + "master",
			NewRef:        oidA,
			Message:       "branch: created",
		},
		CommitEvent{Timestamp: at(2), TransactionID: "tx-1", CommitOID: oidB},
		RewriteEvent{Timestamp: at(3), TransactionID: "tx-2", OldCommitOID: oidB, NewCommitOID: oidC},
		HideEvent{Timestamp: at(4), TransactionID: "tx-3", CommitOID: oidC},
		UnhideEvent{Timestamp: at(5), TransactionID: "tx-4", CommitOID: oidC},
	}
	require.NoError(t, log.Append(ctx, written...))

	read, err := log.Events(ctx)
	require.NoError(t, err)
	assert.Equal(t, written, read)
}

func TestZeroHashNormalizedOnRead(t *testing.T) {
	ctx := context.Background()
	log := openTestLog(t)

	require.NoError(t, log.Append(ctx, RefUpdateEvent{
		Timestamp:     at(1),
		TransactionID: "tx-1",
		RefName:       repo.BranchesPrefix + "topic",
		OldRef:        oidA,
		NewRef:        repo.OID(repo.ZeroHash),
	}))

	events, err := log.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	update, ok := events[0].(RefUpdateEvent)
	require.True(t, ok)
	assert.True(t, update.NewRef.IsZero())
	assert.Equal(t, repo.OID(""), update.NewRef)
}

func TestAppendNothingIsNoOp(t *testing.T) {
	ctx := context.Background()
	log := openTestLog(t)

	require.NoError(t, log.Append(ctx))
	events, err := log.Events(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestUnknownEventTypeRejected(t *testing.T) {
	_, err := eventFromRow(row{typ: "frobnicate"})
	assert.ErrorContains(t, err, "unknown event type")
}
