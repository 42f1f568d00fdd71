package eventlog

import (
	"context"
	"sort"
	"strings"

	"github.com/burl-vcs/burl/internal/repo"
)

// Visibility is a commit's status as derived from the event log.
type Visibility int

const (
	// VisibilityUnknown means the log has no event touching the commit.
	VisibilityUnknown Visibility = iota

	// VisibilityVisible means the commit's latest event shows it.
	VisibilityVisible

	// VisibilityHidden means the commit's latest event hides it.
	VisibilityHidden
)

// classification is what a single event says about a single commit.
type classification int

const (
	classShow classification = iota
	classHide
)

// Cursor identifies a point in time in the event log: the state after
// the first Index events have been applied. Index 0 is the beginning
// of recorded history; Index == number of events is the present.
type Cursor struct {
	Index int
}

// commitEvent is one event's effect on one commit.
type commitEvent struct {
	index int
	class classification
	event Event
}

// refLocation is a reference's target after a given event. An empty
// target means the ref was deleted.
type refLocation struct {
	index  int
	target repo.OID
}

// Replayer consumes events in log order and can then answer queries
// about commit visibility and reference positions at any cursor. It is
// built once per command; Process must not be called concurrently with
// queries.
type Replayer struct {
	events        []Event
	commitHistory map[repo.OID][]commitEvent
	refLocations  map[string][]refLocation
}

// NewReplayer returns an empty replayer.
func NewReplayer() *Replayer {
	return &Replayer{
		commitHistory: make(map[repo.OID][]commitEvent),
		refLocations:  make(map[string][]refLocation),
	}
}

// FromLog builds a replayer over the entire event log.
func FromLog(ctx context.Context, log *Log) (*Replayer, error) {
	events, err := log.Events(ctx)
	if err != nil {
		return nil, err
	}
	replayer := NewReplayer()
	for _, event := range events {
		replayer.Process(event)
	}
	return replayer, nil
}

// Process applies the next event in log order. Reference updates that
// carry no information (ignored namespaces, no-op moves, repeated
// deletions) are dropped entirely: they get no event index and never
// show up in EventsSince or EventBefore.
func (r *Replayer) Process(event Event) {
	if e, ok := event.(RefUpdateEvent); ok {
		e = r.repairRefUpdate(e)
		if !r.refUpdateIsMeaningful(e) {
			return
		}
		event = e
	}
	index := len(r.events)
	r.events = append(r.events, event)

	switch e := event.(type) {
	case RefUpdateEvent:
		r.recordRefLocation(index, e)
	case CommitEvent:
		r.recordCommitEvent(index, e.CommitOID, classShow, event)
	case RewriteEvent:
		if e.OldCommitOID == e.NewCommitOID {
			// An in-place rewrite replaces nothing. Record only that
			// the commit is still live, or it would hide itself.
			r.recordCommitEvent(index, e.NewCommitOID, classShow, event)
			return
		}
		r.recordCommitEvent(index, e.OldCommitOID, classHide, event)
		r.recordCommitEvent(index, e.NewCommitOID, classShow, event)
	case HideEvent:
		r.recordCommitEvent(index, e.CommitOID, classHide, event)
	case UnhideEvent:
		r.recordCommitEvent(index, e.CommitOID, classShow, event)
	}
}

func (r *Replayer) recordCommitEvent(index int, oid repo.OID, class classification, event Event) {
	if oid.IsZero() {
		return
	}
	r.commitHistory[oid] = append(r.commitHistory[oid], commitEvent{
		index: index,
		class: class,
		event: event,
	})
}

// repairRefUpdate fills in a deletion's missing old endpoint from the
// ref's last known location. Some git versions report both endpoints
// of a deletion as the zero OID, which would make the event
// uninvertible.
func (r *Replayer) repairRefUpdate(e RefUpdateEvent) RefUpdateEvent {
	if !e.OldRef.IsZero() || !e.NewRef.IsZero() || ShouldIgnoreRef(e.RefName) {
		return e
	}
	if locations := r.refLocations[e.RefName]; len(locations) > 0 {
		if last := locations[len(locations)-1].target; last != "" {
			e.OldRef = last
		}
	}
	return e
}

// refUpdateIsMeaningful decides whether a (repaired) ref update
// changes any observable state.
func (r *Replayer) refUpdateIsMeaningful(e RefUpdateEvent) bool {
	if ShouldIgnoreRef(e.RefName) {
		return false
	}
	if e.OldRef == e.NewRef {
		// The ref did not actually move.
		return false
	}
	if e.NewRef.IsZero() {
		// Git can report the same deletion several times in one
		// transaction; repeats of an already absent ref are noise.
		locations := r.refLocations[e.RefName]
		if len(locations) == 0 || locations[len(locations)-1].target == "" {
			return false
		}
	}
	return true
}

func (r *Replayer) recordRefLocation(index int, e RefUpdateEvent) {
	target := e.NewRef
	if target.IsZero() {
		target = ""
	}
	r.refLocations[e.RefName] = append(r.refLocations[e.RefName], refLocation{index: index, target: target})
}

// EventCount returns the number of events processed so far.
func (r *Replayer) EventCount() int {
	return len(r.events)
}

// DefaultCursor returns the cursor for the present moment.
func (r *Replayer) DefaultCursor() Cursor {
	return Cursor{Index: len(r.events)}
}

// MakeCursor clamps the given event index into the valid range.
func (r *Replayer) MakeCursor(index int) Cursor {
	if index < 0 {
		index = 0
	}
	if index > len(r.events) {
		index = len(r.events)
	}
	return Cursor{Index: index}
}

// AdvanceCursor moves a cursor by delta events, clamping at the ends
// of the log.
func (r *Replayer) AdvanceCursor(cursor Cursor, delta int) Cursor {
	return r.MakeCursor(cursor.Index + delta)
}

// latestCommitEvent returns the most recent event touching oid that is
// strictly before the cursor.
func (r *Replayer) latestCommitEvent(cursor Cursor, oid repo.OID) (commitEvent, bool) {
	history := r.commitHistory[oid]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].index < cursor.Index {
			return history[i], true
		}
	}
	return commitEvent{}, false
}

// CommitVisibility reports whether the commit was visible, hidden, or
// untracked as of the cursor.
func (r *Replayer) CommitVisibility(cursor Cursor, oid repo.OID) Visibility {
	entry, ok := r.latestCommitEvent(cursor, oid)
	if !ok {
		return VisibilityUnknown
	}
	switch entry.class {
	case classShow:
		return VisibilityVisible
	case classHide:
		return VisibilityHidden
	}
	return VisibilityUnknown
}

// CommitLatestEvent returns the most recent event that touched the
// commit as of the cursor.
func (r *Replayer) CommitLatestEvent(cursor Cursor, oid repo.OID) (Event, bool) {
	entry, ok := r.latestCommitEvent(cursor, oid)
	if !ok {
		return nil, false
	}
	return entry.event, true
}

// ActiveOIDs returns every commit the log had observed as of the
// cursor, visible or hidden, in sorted order for determinism. This is
// the seed set the graph builder walks from; hidden commits are
// included because they may still need to be drawn.
func (r *Replayer) ActiveOIDs(cursor Cursor) []repo.OID {
	var oids []repo.OID
	for oid := range r.commitHistory {
		if _, ok := r.latestCommitEvent(cursor, oid); ok {
			oids = append(oids, oid)
		}
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })
	return oids
}

// latestRefLocation returns the ref's most recent recorded position
// strictly before the cursor.
func (r *Replayer) latestRefLocation(cursor Cursor, refName string) (refLocation, bool) {
	locations := r.refLocations[refName]
	for i := len(locations) - 1; i >= 0; i-- {
		if locations[i].index < cursor.Index {
			return locations[i], true
		}
	}
	return refLocation{}, false
}

// HeadOIDAt returns where HEAD pointed as of the cursor. If no HEAD
// movement was recorded (reference-transaction hooks may be missing on
// old git versions), the most recent commit event stands in for it.
// ok is false only if neither exists.
func (r *Replayer) HeadOIDAt(cursor Cursor) (repo.OID, bool) {
	location, ok := r.latestRefLocation(cursor, HeadRefName)
	if ok && location.target != "" {
		return location.target, true
	}
	for i := min(cursor.Index, len(r.events)) - 1; i >= 0; i-- {
		if e, ok := r.events[i].(CommitEvent); ok {
			return e.CommitOID, true
		}
	}
	return "", false
}

// RefTargetAt returns where the named ref pointed as of the cursor.
// ok is false if the ref did not exist then (never created, or
// deleted).
func (r *Replayer) RefTargetAt(cursor Cursor, refName string) (repo.OID, bool) {
	location, ok := r.latestRefLocation(cursor, refName)
	if !ok || location.target == "" {
		return "", false
	}
	return location.target, true
}

// RefTargetsAt returns the position of every ref in the given
// namespace that existed as of the cursor, keyed by fully-qualified
// name. Pass repo.BranchesPrefix for local branches; the empty prefix
// matches everything, including HEAD under its own name.
func (r *Replayer) RefTargetsAt(cursor Cursor, prefix string) map[string]repo.OID {
	targets := make(map[string]repo.OID)
	for refName := range r.refLocations {
		if !strings.HasPrefix(refName, prefix) {
			continue
		}
		if target, ok := r.RefTargetAt(cursor, refName); ok {
			targets[refName] = target
		}
	}
	return targets
}

// EventsSince returns the raw events from the cursor to the present,
// in log order. This is the suffix the undo engine inverts.
func (r *Replayer) EventsSince(cursor Cursor) []Event {
	if cursor.Index >= len(r.events) {
		return nil
	}
	suffix := make([]Event, len(r.events)-cursor.Index)
	copy(suffix, r.events[cursor.Index:])
	return suffix
}

// EventBefore returns the last event applied as of the cursor, i.e.
// the one whose application produced the cursor's state. ok is false
// at the beginning of history.
func (r *Replayer) EventBefore(cursor Cursor) (Event, bool) {
	if cursor.Index <= 0 || cursor.Index > len(r.events) {
		return nil, false
	}
	return r.events[cursor.Index-1], true
}
