package repo

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runner invokes the real git binary for operations that must go
// through git's own machinery (rebases, working-copy checkouts), so
// that hooks fire and the working tree is updated. Read-only object
// access goes through ObjectStore instead.
type Runner struct {
	// GitExecutable is the path or name of the git binary.
	GitExecutable string

	// Dir is the working directory for spawned processes.
	Dir string

	// Out and Err receive the subprocess output.
	Out io.Writer
	Err io.Writer
}

// Run executes git with the given arguments, echoing the command line
// first so the user can see what is being done on their behalf. It
// returns the process exit code.
func (r *Runner) Run(ctx context.Context, args ...string) (int, error) {
	fmt.Fprintf(r.Out, "burl: %s %s\n", r.GitExecutable, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, r.GitExecutable, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Out
	cmd.Stderr = r.Err
	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to run %s %s: %w", r.GitExecutable, strings.Join(args, " "), err)
	}
	return 0, nil
}

// Checkout detaches HEAD at the given target.
func (r *Runner) Checkout(ctx context.Context, target string) (int, error) {
	return r.Run(ctx, "checkout", "--detach", target)
}

// RebaseOnto replays source..branchTip onto the new base.
func (r *Runner) RebaseOnto(ctx context.Context, source, branchTip, newBase OID, preserveTimestamps bool) (int, error) {
	args := []string{"rebase", string(source), string(branchTip), "--onto", string(newBase)}
	if preserveTimestamps {
		args = append(args, "--committer-date-is-author-date")
	}
	return r.Run(ctx, args...)
}

// ForceBranch moves a branch to point at the given commit.
func (r *Runner) ForceBranch(ctx context.Context, branchName string, target OID) (int, error) {
	return r.Run(ctx, "branch", "-f", branchName, string(target))
}
