package undo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/graph"
	"github.com/burl-vcs/burl/internal/mergebase"
	"github.com/burl-vcs/burl/internal/render"
	"github.com/burl-vcs/burl/internal/repo"
	"github.com/burl-vcs/burl/internal/storage"
)

// CheckoutOps performs the one external operation undo needs: a real
// checkout, so the working copy follows HEAD and hooks record the
// move.
type CheckoutOps interface {
	Checkout(ctx context.Context, target string) (int, error)
}

// Undoer previews and applies reversions of event log suffixes.
type Undoer struct {
	Objects  repo.ObjectStore
	Store    *storage.Store
	Log      *eventlog.Log
	Replayer *eventlog.Replayer
	Ops      CheckoutOps
	TxIDs    eventlog.TxIDGenerator
	Logger   *slog.Logger
	Out      io.Writer

	// MainBranch is the short name of the main branch.
	MainBranch string

	Glyphs render.Glyphs
}

// RenderAtCursor draws the commit graph as the repository looked at
// the given cursor, using the historical HEAD and branch positions
// from the event log rather than the live references.
func (u *Undoer) RenderAtCursor(ctx context.Context, cursor eventlog.Cursor) ([]string, error) {
	headOID, _ := u.Replayer.HeadOIDAt(cursor)

	refTargets := u.Replayer.RefTargetsAt(cursor, repo.BranchesPrefix)
	branchOIDs := make(map[repo.OID]bool)
	branchesByOID := make(map[repo.OID][]string)
	for refName, target := range refTargets {
		branchOIDs[target] = true
		branchesByOID[target] = append(branchesByOID[target], repo.BranchShortName(refName))
	}

	mainBranchOID, ok := u.Replayer.RefTargetAt(cursor, repo.BranchesPrefix+u.MainBranch)
	if !ok {
		// Before the first recorded move of the main branch, fall
		// back to its live position.
		mainBranchOID, ok, _ = u.Objects.ResolveRef(repo.BranchesPrefix + u.MainBranch)
		if !ok {
			return nil, fmt.Errorf("main branch %q not found", u.MainBranch)
		}
	}

	builder := &graph.Builder{
		Objects:  u.Objects,
		Bases:    mergebase.NewCache(u.Store, u.Objects),
		Replayer: u.Replayer,
		Logger:   u.Logger,
	}
	g, err := builder.Build(ctx, cursor, graph.Params{
		HeadOID:       headOID,
		MainBranchOID: mainBranchOID,
		BranchOIDs:    branchOIDs,
		PruneHidden:   true,
	})
	if err != nil {
		return nil, err
	}

	renderer := &render.Renderer{
		Glyphs: u.Glyphs,
		Bases:  mergebase.NewCache(u.Store, u.Objects),
	}
	return renderer.Render(ctx, g, render.Options{
		HeadOID:       headOID,
		BranchesByOID: branchesByOID,
	})
}

// Plan computes the inverse events that would restore the repository
// to the state at the cursor. An empty plan means there is nothing to
// undo.
func (u *Undoer) Plan(cursor eventlog.Cursor, now time.Time) ([]eventlog.Event, error) {
	txID, err := u.TxIDs.NewTxID()
	if err != nil {
		return nil, err
	}
	return InverseEvents(u.Replayer.EventsSince(cursor), now, txID), nil
}

// Apply executes a plan. The caller is responsible for having obtained
// the user's confirmation first; this method mutates the repository.
func (u *Undoer) Apply(ctx context.Context, plan []eventlog.Event) (int, error) {
	result := 0
	for _, event := range plan {
		update, ok := event.(eventlog.RefUpdateEvent)
		if !ok {
			// Hides, unhides, and rewrites take effect purely through
			// the log.
			if err := u.Log.Append(ctx, event); err != nil {
				return 0, err
			}
			continue
		}

		switch {
		case update.RefName == eventlog.HeadRefName && !update.NewRef.IsZero():
			// A real checkout, not a raw ref write: the user wants
			// their working copy back, and the hooks will log the
			// move for us.
			code, err := u.Ops.Checkout(ctx, update.NewRef.String())
			if err != nil {
				return 0, err
			}
			if code != 0 {
				result = code
			}
		case update.OldRef.IsZero() && update.NewRef.IsZero():
			// Nothing to do.
		case update.NewRef.IsZero():
			existed, err := u.Objects.DeleteRef(update.RefName)
			if err != nil {
				return 0, err
			}
			if !existed {
				fmt.Fprintf(u.Out, "Reference %s did not exist, not deleting it.\n", update.RefName)
			}
		default:
			if err := u.Objects.UpdateRef(update.RefName, update.NewRef); err != nil {
				return 0, err
			}
		}
	}

	noun := "inverse event"
	if len(plan) != 1 {
		noun = "inverse events"
	}
	fmt.Fprintf(u.Out, "Applied %d %s.\n", len(plan), noun)
	return result, nil
}
