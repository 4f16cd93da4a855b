// Package gitrepo provides typed access to the git CLI for the
// exporter's publishing flow: a shallow disposable clone, author
// identity configuration, and a commit/push cycle verified to land as a
// fast-forward. All commands target a specific directory via the -C
// flag, which every Repository method injects.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Repository is a git working copy at a specific directory.
type Repository struct {
	dir string
}

// CloneShallow clones url into dir with depth 1 and returns the
// resulting working copy.
func CloneShallow(ctx context.Context, url, dir string) (*Repository, error) {
	var stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", "clone", "--depth", "1", url, dir)
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git clone %s: %w (stderr: %s)",
			url, err, strings.TrimSpace(stderr.String()))
	}
	return &Repository{dir: dir}, nil
}

// TempClone shallow-clones url into a fresh temporary directory. The
// returned cleanup removes the directory and must be called on every
// exit path; it is safe to call even when a later operation failed.
func TempClone(ctx context.Context, url string) (*Repository, func(), error) {
	dir, err := os.MkdirTemp("", "todoist-git-sync-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create working copy dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	repository, err := CloneShallow(ctx, url, dir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return repository, cleanup, nil
}

// Dir returns the working copy directory.
func (r *Repository) Dir() string {
	return r.dir
}

// run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// SetUser sets the commit-author identity in the local repository
// config.
func (r *Repository) SetUser(ctx context.Context, name, email string) error {
	if _, err := r.run(ctx, "config", "user.name", name); err != nil {
		return err
	}
	if _, err := r.run(ctx, "config", "user.email", email); err != nil {
		return err
	}
	return nil
}

// IsDirty reports whether the working copy has uncommitted changes,
// untracked files included.
func (r *Repository) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Add stages the given path.
func (r *Repository) Add(ctx context.Context, path string) error {
	_, err := r.run(ctx, "add", "--", path)
	return err
}

// Commit records staged changes with the given message.
func (r *Repository) Commit(ctx context.Context, message string) error {
	_, err := r.run(ctx, "commit", "-m", message)
	return err
}

// Head returns the abbreviated hash of the current commit.
func (r *Repository) Head(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Push pushes the current branch to origin and verifies from the
// porcelain ref status that the remote update was a fast-forward. A new
// ref, forced update, rejection or no-op all fail: the exporter must
// never publish over diverged history.
func (r *Repository) Push(ctx context.Context) error {
	out, err := r.run(ctx, "push", "--porcelain", "origin", "HEAD")
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	status, ok := pushRefStatus(out)
	if !ok {
		return fmt.Errorf("push: no ref status in output %q", out)
	}
	if status[0] != ' ' {
		return fmt.Errorf("push was not a fast-forward: %q", strings.TrimSpace(status))
	}
	return nil
}

// pushRefStatus extracts the ref status line from git push --porcelain
// output. The line starts with a one-character flag: ' ' fast-forward,
// '*' new ref, '+' forced, '!' rejected, '=' up to date.
func pushRefStatus(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "\t") {
			return line, true
		}
	}
	return "", false
}
