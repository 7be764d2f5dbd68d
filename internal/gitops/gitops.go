// Package gitops provides the git operations behind the optional
// commit stage.
package gitops

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitPrefix marks commits produced by the workflow.
const CommitPrefix = "[foreman]"

// CommitResult records the outcome of the commit stage.
type CommitResult struct {
	Success bool   `json:"success" yaml:"success"`
	SHA     string `json:"sha,omitempty" yaml:"sha,omitempty"`
	Message string `json:"message" yaml:"message"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Committer is the commit boundary consumed by the stage executor.
type Committer interface {
	CommitAll(dir, message string) (*CommitResult, error)
}

// Git commits workspace changes using go-git.
type Git struct {
	authorName  string
	authorEmail string
}

// Option configures a Git.
type Option func(*Git)

// WithAuthor sets the commit author identity.
func WithAuthor(name, email string) Option {
	return func(g *Git) {
		g.authorName = name
		g.authorEmail = email
	}
}

// New creates a Git committer.
func New(opts ...Option) *Git {
	g := &Git{
		authorName:  "foreman",
		authorEmail: "foreman@localhost",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CommitAll stages every change in dir and commits it with the given
// message. A repository with nothing to commit is a successful no-op.
func (g *Git) CommitAll(dir, message string) (*CommitResult, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		return &CommitResult{
			Success: true,
			Message: "nothing to commit",
		}, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("stage changes: %w", err)
	}

	message = CommitPrefix + " " + message
	sha, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.authorName,
			Email: g.authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &CommitResult{
		Success: true,
		SHA:     sha.String(),
		Message: message,
	}, nil
}
