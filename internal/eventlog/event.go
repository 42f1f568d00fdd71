// Package eventlog records everything that happens to the repository
// as an append-only sequence of events, and replays that sequence to
// answer questions about any point in history.
//
// The event type is a closed sum: every Event value is one of the five
// concrete types below, enforced by the unexported isEvent method.
// Code that dispatches on events switches over all five and treats any
// other value as a programming error.
package eventlog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/burl-vcs/burl/internal/repo"
)

// Event is one entry in the event log.
type Event interface {
	// When returns the wall-clock time the event was recorded.
	When() time.Time

	// TxID returns the identifier of the transaction the event was
	// recorded under. Events written together share a transaction ID.
	TxID() string

	isEvent()
}

// RefUpdateEvent records a reference moving from one commit to
// another. An empty OldRef means the ref was created; an empty NewRef
// means it was deleted.
type RefUpdateEvent struct {
	Timestamp     time.Time
	TransactionID string
	RefName       string
	OldRef        repo.OID
	NewRef        repo.OID
	Message       string
}

// CommitEvent records a new commit being created.
type CommitEvent struct {
	Timestamp     time.Time
	TransactionID string
	CommitOID     repo.OID
}

// RewriteEvent records a commit being replaced by another, e.g. by an
// amend or a rebase. The old commit is obsolete; the new one stands in
// for it.
type RewriteEvent struct {
	Timestamp     time.Time
	TransactionID string
	OldCommitOID  repo.OID
	NewCommitOID  repo.OID
}

// HideEvent records a commit being explicitly hidden by the user.
type HideEvent struct {
	Timestamp     time.Time
	TransactionID string
	CommitOID     repo.OID
}

// UnhideEvent records a previously hidden commit being made visible
// again.
type UnhideEvent struct {
	Timestamp     time.Time
	TransactionID string
	CommitOID     repo.OID
}

func (e RefUpdateEvent) When() time.Time { return e.Timestamp }
func (e CommitEvent) When() time.Time    { return e.Timestamp }
func (e RewriteEvent) When() time.Time   { return e.Timestamp }
func (e HideEvent) When() time.Time      { return e.Timestamp }
func (e UnhideEvent) When() time.Time    { return e.Timestamp }

func (e RefUpdateEvent) TxID() string { return e.TransactionID }
func (e CommitEvent) TxID() string    { return e.TransactionID }
func (e RewriteEvent) TxID() string   { return e.TransactionID }
func (e HideEvent) TxID() string      { return e.TransactionID }
func (e UnhideEvent) TxID() string    { return e.TransactionID }

func (RefUpdateEvent) isEvent() {}
func (CommitEvent) isEvent()    {}
func (RewriteEvent) isEvent()   {}
func (HideEvent) isEvent()      {}
func (UnhideEvent) isEvent()    {}

// Event type discriminators as stored in the database.
const (
	typeRefMove = "ref-move"
	typeCommit  = "commit"
	typeRewrite = "rewrite"
	typeHide    = "hide"
	typeUnhide  = "unhide"
)

// HeadRefName is the ref name recorded for HEAD movements.
const HeadRefName = "HEAD"

// transientRefs are refs git moves constantly as scratch space during
// its own operations. Updates to them carry no information about the
// user's history, so the hooks never record them.
var transientRefs = map[string]bool{
	"ORIG_HEAD":        true,
	"REBASE_HEAD":      true,
	"CHERRY_PICK":      true,
	"CHERRY_PICK_HEAD": true,
	"FETCH_HEAD":       true,
}

// ShouldIgnoreRef reports whether updates to the named ref are
// excluded from the event log.
func ShouldIgnoreRef(refName string) bool {
	if strings.HasPrefix(refName, "refs/burl/") {
		return true
	}
	return transientRefs[refName]
}

// row is the flat database representation of an event.
type row struct {
	timestamp     float64
	transactionID string
	typ           string
	oldRef        sql.NullString
	newRef        sql.NullString
	refName       sql.NullString
	message       sql.NullString
}

func timeToStamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func stampToTime(stamp float64) time.Time {
	nanos := int64(stamp * float64(time.Second))
	return time.Unix(0, nanos).UTC()
}

func nullOID(oid repo.OID) sql.NullString {
	if oid == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(oid), Valid: true}
}

func oidFromNull(s sql.NullString) repo.OID {
	if !s.Valid {
		return ""
	}
	return repo.NormalizeOID(s.String)
}

func eventToRow(e Event) row {
	switch e := e.(type) {
	case RefUpdateEvent:
		r := row{
			timestamp:     timeToStamp(e.Timestamp),
			transactionID: e.TransactionID,
			typ:           typeRefMove,
			oldRef:        nullOID(e.OldRef),
			newRef:        nullOID(e.NewRef),
			refName:       sql.NullString{String: e.RefName, Valid: true},
		}
		if e.Message != "" {
			r.message = sql.NullString{String: e.Message, Valid: true}
		}
		return r
	case CommitEvent:
		return row{
			timestamp:     timeToStamp(e.Timestamp),
			transactionID: e.TransactionID,
			typ:           typeCommit,
			newRef:        nullOID(e.CommitOID),
		}
	case RewriteEvent:
		return row{
			timestamp:     timeToStamp(e.Timestamp),
			transactionID: e.TransactionID,
			typ:           typeRewrite,
			oldRef:        nullOID(e.OldCommitOID),
			newRef:        nullOID(e.NewCommitOID),
		}
	case HideEvent:
		return row{
			timestamp:     timeToStamp(e.Timestamp),
			transactionID: e.TransactionID,
			typ:           typeHide,
			newRef:        nullOID(e.CommitOID),
		}
	case UnhideEvent:
		return row{
			timestamp:     timeToStamp(e.Timestamp),
			transactionID: e.TransactionID,
			typ:           typeUnhide,
			newRef:        nullOID(e.CommitOID),
		}
	default:
		panic(fmt.Sprintf("unhandled event type %T", e))
	}
}

func eventFromRow(r row) (Event, error) {
	timestamp := stampToTime(r.timestamp)
	switch r.typ {
	case typeRefMove:
		if !r.refName.Valid {
			return nil, fmt.Errorf("ref-move event missing ref_name")
		}
		return RefUpdateEvent{
			Timestamp:     timestamp,
			TransactionID: r.transactionID,
			RefName:       r.refName.String,
			OldRef:        oidFromNull(r.oldRef),
			NewRef:        oidFromNull(r.newRef),
			Message:       r.message.String,
		}, nil
	case typeCommit:
		return CommitEvent{
			Timestamp:     timestamp,
			TransactionID: r.transactionID,
			CommitOID:     oidFromNull(r.newRef),
		}, nil
	case typeRewrite:
		return RewriteEvent{
			Timestamp:     timestamp,
			TransactionID: r.transactionID,
			OldCommitOID:  oidFromNull(r.oldRef),
			NewCommitOID:  oidFromNull(r.newRef),
		}, nil
	case typeHide:
		return HideEvent{
			Timestamp:     timestamp,
			TransactionID: r.transactionID,
			CommitOID:     oidFromNull(r.newRef),
		}, nil
	case typeUnhide:
		return UnhideEvent{
			Timestamp:     timestamp,
			TransactionID: r.transactionID,
			CommitOID:     oidFromNull(r.newRef),
		}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q in event log", r.typ)
	}
}
