// Package undo restores the repository to a previous point in the
// event log. The user scrubs a cursor through history, previews the
// graph as it looked then, and on confirmation the engine computes and
// applies the literal inverse of every event after the cursor.
package undo

import (
	"time"

	"github.com/burl-vcs/burl/internal/eventlog"
)

// InverseEvents computes the events that undo everything after the
// cursor. The suffix is reversed, each event is inverted, redundant
// HEAD moves are collapsed into the single final checkout, and
// checkouts are sorted first so that later ref updates do not dirty
// the working copy through a symbolic HEAD.
func InverseEvents(suffix []eventlog.Event, now time.Time, txID string) []eventlog.Event {
	var inverses []eventlog.Event
	for i := len(suffix) - 1; i >= 0; i-- {
		event := suffix[i]
		if update, ok := event.(eventlog.RefUpdateEvent); ok {
			if update.RefName == eventlog.HeadRefName && update.OldRef.IsZero() {
				// HEAD creation; its inverse would delete HEAD.
				continue
			}
		}
		inverses = append(inverses, inverseEvent(event, now, txID))
	}

	inverses = collapseHeadUpdates(inverses)

	// Stable partition: checkouts first, everything else after, in
	// the order already established.
	var sorted []eventlog.Event
	for _, event := range inverses {
		if isHeadUpdate(event) {
			sorted = append(sorted, event)
		}
	}
	for _, event := range inverses {
		if !isHeadUpdate(event) {
			sorted = append(sorted, event)
		}
	}
	return sorted
}

// inverseEvent returns the event that cancels the given one.
func inverseEvent(event eventlog.Event, now time.Time, txID string) eventlog.Event {
	switch e := event.(type) {
	case eventlog.CommitEvent:
		return eventlog.HideEvent{Timestamp: now, TransactionID: txID, CommitOID: e.CommitOID}
	case eventlog.UnhideEvent:
		return eventlog.HideEvent{Timestamp: now, TransactionID: txID, CommitOID: e.CommitOID}
	case eventlog.HideEvent:
		return eventlog.UnhideEvent{Timestamp: now, TransactionID: txID, CommitOID: e.CommitOID}
	case eventlog.RewriteEvent:
		return eventlog.RewriteEvent{
			Timestamp:     now,
			TransactionID: txID,
			OldCommitOID:  e.NewCommitOID,
			NewCommitOID:  e.OldCommitOID,
		}
	case eventlog.RefUpdateEvent:
		return eventlog.RefUpdateEvent{
			Timestamp:     now,
			TransactionID: txID,
			RefName:       e.RefName,
			OldRef:        e.NewRef,
			NewRef:        e.OldRef,
		}
	default:
		// The event union is closed; reaching here means a new kind
		// was added without updating this switch.
		panic("unhandled event kind in inverseEvent")
	}
}

// collapseHeadUpdates drops all HEAD updates except the last, which is
// the one that restores the original checkout. Undoing N events must
// not cost N checkouts.
func collapseHeadUpdates(events []eventlog.Event) []eventlog.Event {
	keep := -1
	for i := len(events) - 1; i >= 0; i-- {
		if isHeadUpdate(events[i]) {
			keep = i
			break
		}
	}

	var collapsed []eventlog.Event
	for i, event := range events {
		if isHeadUpdate(event) && i != keep {
			continue
		}
		collapsed = append(collapsed, event)
	}
	return collapsed
}

func isHeadUpdate(event eventlog.Event) bool {
	update, ok := event.(eventlog.RefUpdateEvent)
	return ok && update.RefName == eventlog.HeadRefName
}
