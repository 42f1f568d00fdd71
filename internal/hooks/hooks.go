// Package hooks translates git hook payloads into event log entries.
// Each handler corresponds to one of the hooks installed into the
// repository; git invokes them after commits, rewrites, checkouts, and
// reference updates, and they are the only writers of the event log
// during normal operation.
package hooks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/burl-vcs/burl/internal/eventlog"
	"github.com/burl-vcs/burl/internal/repo"
)

// Handler processes hook invocations. All events appended by one
// invocation share a transaction ID.
type Handler struct {
	Objects repo.ObjectStore
	Log     *eventlog.Log
	TxIDs   eventlog.TxIDGenerator
	Now     func() time.Time
	Out     io.Writer

	// GitDir is the repository's .git directory, used to detect an
	// interactive rebase in progress. May be empty in tests.
	GitDir string
}

// PostCommit records the commit now at HEAD. The event carries the
// commit's own author time rather than the hook invocation time, so
// that replaying the log reproduces the commit's position in history.
func (h *Handler) PostCommit(ctx context.Context) error {
	fmt.Fprintln(h.Out, "burl: processing commit")

	headOID, ok, err := h.Objects.ResolveRef(eventlog.HeadRefName)
	if err != nil {
		return fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !ok {
		return fmt.Errorf("HEAD does not point to a commit")
	}
	commit, ok, err := h.Objects.GetCommit(headOID)
	if err != nil {
		return fmt.Errorf("failed to read HEAD commit: %w", err)
	}
	if !ok {
		return fmt.Errorf("HEAD commit %s not found", headOID)
	}

	txID, err := h.TxIDs.NewTxID()
	if err != nil {
		return err
	}
	return h.Log.Append(ctx, eventlog.CommitEvent{
		Timestamp:     commit.AuthorTime,
		TransactionID: txID,
		CommitOID:     commit.OID,
	})
}

// PostRewrite records the `<old> <new>` OID pairs git reports on stdin
// after an amend or rebase. During an interactive rebase git fires
// spurious amend notifications for intermediate steps; the events are
// still recorded, but the progress message is suppressed.
func (h *Handler) PostRewrite(ctx context.Context, rewriteType string, in io.Reader) error {
	now := h.Now()
	txID, err := h.TxIDs.NewTxID()
	if err != nil {
		return err
	}

	var events []eventlog.Event
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fmt.Errorf("invalid rewrite line: %q", line)
		}
		events = append(events, eventlog.RewriteEvent{
			Timestamp:     now,
			TransactionID: txID,
			OldCommitOID:  repo.NormalizeOID(fields[0]),
			NewCommitOID:  repo.NormalizeOID(fields[1]),
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read rewrite lines: %w", err)
	}

	spurious := rewriteType == "amend" && h.rebaseUnderway()
	if !spurious {
		fmt.Fprintf(h.Out, "burl: processing %s\n",
			pluralize(len(events), "rewritten commit", "rewritten commits"))
	}
	return h.Log.Append(ctx, events...)
}

// PostCheckout records a HEAD move. Git passes isBranchCheckout as 0
// for file checkouts, which do not move HEAD and are not recorded.
func (h *Handler) PostCheckout(ctx context.Context, previousHead, currentHead string, isBranchCheckout int) error {
	if isBranchCheckout == 0 {
		return nil
	}
	fmt.Fprintln(h.Out, "burl: processing checkout")

	txID, err := h.TxIDs.NewTxID()
	if err != nil {
		return err
	}
	return h.Log.Append(ctx, eventlog.RefUpdateEvent{
		Timestamp:     h.Now(),
		TransactionID: txID,
		RefName:       eventlog.HeadRefName,
		OldRef:        repo.NormalizeOID(previousHead),
		NewRef:        repo.NormalizeOID(currentHead),
	})
}

// ReferenceTransaction records the `<old> <new> <refname>` triples git
// reports on stdin once a reference transaction reaches the given
// state. Only committed transactions are recorded, and updates to
// transient refs are dropped.
func (h *Handler) ReferenceTransaction(ctx context.Context, state string, in io.Reader) error {
	if state != "committed" {
		return nil
	}
	now := h.Now()
	txID, err := h.TxIDs.NewTxID()
	if err != nil {
		return err
	}

	var events []eventlog.Event
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		event, ok, err := parseReferenceTransactionLine(line, now, txID)
		if err != nil {
			return err
		}
		if ok {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read reference-transaction lines: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	fmt.Fprintf(h.Out, "burl: processing %s\n",
		pluralize(len(events), "update to a branch/ref", "updates to branches/refs"))
	return h.Log.Append(ctx, events...)
}

func parseReferenceTransactionLine(line string, now time.Time, txID string) (eventlog.Event, bool, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, false, fmt.Errorf("unexpected number of fields in reference-transaction line: %q", line)
	}
	oldValue, newValue, refName := fields[0], fields[1], fields[2]
	if eventlog.ShouldIgnoreRef(refName) {
		return nil, false, nil
	}
	return eventlog.RefUpdateEvent{
		Timestamp:     now,
		TransactionID: txID,
		RefName:       refName,
		OldRef:        repo.NormalizeOID(oldValue),
		NewRef:        repo.NormalizeOID(newValue),
	}, true, nil
}

// rebaseUnderway reports whether an interactive or apply rebase has
// started but not finished.
func (h *Handler) rebaseUnderway() bool {
	if h.GitDir == "" {
		return false
	}
	for _, subdir := range []string{"rebase-apply", "rebase-merge"} {
		if _, err := os.Stat(filepath.Join(h.GitDir, subdir)); err == nil {
			return true
		}
	}
	return false
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
